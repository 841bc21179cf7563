// Package main is the interactive GophMart client: it browses the catalog,
// keeps a cart that follows the user across sign-in, and runs a mock
// checkout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"github.com/atinyakov/GophMart/internal/client/storage"
	"github.com/atinyakov/GophMart/internal/logger"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags, restores the cart and starts the shell.
func main() {
	var (
		baseURL   string
		cacheFile string
		caFile    string
		userID    string
		logLevel  string
		debounce  time.Duration
		showVer   bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&cacheFile, "cache", storage.DefaultCacheFile, "path to the local cart cache")
	flag.StringVar(&caFile, "ca", "", "path to a CA cert trusted for HTTPS")
	flag.StringVar(&userID, "user", "", "sign in as this user on start")
	flag.StringVar(&logLevel, "l", "warn", "log level")
	flag.DurationVar(&debounce, "debounce", cart.DefaultDebounce, "quiet period before cart changes are saved")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("GophMart Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.InitConsole(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client, err := storage.NewHTTPClient(caFile, storage.DefaultTimeout)
	if err != nil {
		log.Log.Fatal("cannot create HTTP client", zap.Error(err))
	}

	session := cart.NewSession(
		storage.NewCartStore(client, baseURL),
		storage.NewFileCache(cacheFile, log.Log),
		cart.WithDebounce(debounce),
		cart.WithLogger(log.Log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := newShell(session, storage.NewCatalogClient(client, baseURL), os.Stdout)
	defer sh.close(context.Background())

	identity := cart.Anonymous()
	if userID != "" {
		identity = cart.SignedIn(userID)
	}
	if err := session.SetIdentity(ctx, identity); err != nil {
		fmt.Println("warning:", err)
	}

	sh.run(ctx, os.Stdin)
}
