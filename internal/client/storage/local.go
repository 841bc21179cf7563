// Package storage implements the client's cart stores: a JSON file that
// caches the anonymous cart, and HTTP clients for the server's cart and
// catalog APIs.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"go.uber.org/zap"
)

// DefaultCacheFile is where the anonymous cart is kept when no path is given.
const DefaultCacheFile = "cart.json"

// FileCache keeps the anonymous cart in a JSON file. It never fails:
// unreadable files read as an empty cart, write errors are logged.
type FileCache struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

// NewFileCache returns a cache stored at path.
func NewFileCache(path string, log *zap.Logger) *FileCache {
	if path == "" {
		path = DefaultCacheFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileCache{path: path, log: log}
}

// Path returns the cache file location.
func (fc *FileCache) Path() string { return fc.path }

// ReadLocal loads the cached cart.
func (fc *FileCache) ReadLocal() cart.Cart {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	f, err := os.Open(fc.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fc.log.Warn("failed to open cart cache", zap.String("path", fc.path), zap.Error(err))
		}
		return cart.Cart{}
	}
	defer f.Close()

	var c cart.Cart
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		fc.log.Warn("corrupt cart cache, starting empty", zap.String("path", fc.path), zap.Error(err))
		return cart.Cart{}
	}
	return c
}

// WriteLocal replaces the cached cart.
func (fc *FileCache) WriteLocal(c cart.Cart) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := fc.save(c); err != nil {
		fc.log.Error("failed to write cart cache", zap.String("path", fc.path), zap.Error(err))
	}
}

// save writes through a temporary file renamed over the cache.
func (fc *FileCache) save(c cart.Cart) error {
	if dir := filepath.Dir(fc.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := fc.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return errors.Join(err, os.Remove(tmp))
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, fc.path)
}

// ClearLocal removes the cache file.
func (fc *FileCache) ClearLocal() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := os.Remove(fc.path); err != nil && !os.IsNotExist(err) {
		fc.log.Error("failed to clear cart cache", zap.String("path", fc.path), zap.Error(err))
	}
}
