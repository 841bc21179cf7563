package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"github.com/atinyakov/GophMart/internal/client/storage"
	"github.com/atinyakov/GophMart/internal/models"
	"github.com/shopspring/decimal"
)

const helpText = `Available commands:
  items [query]        list items, optionally filtered
  items -c <cat> [q]   list the items of one category
  categories           list categories
  show <id>            show one item
  rate <id> <1-5>      rate an item
  sell <title> <price> [category]
                       put an item up for sale (signed in only)
  add <id> [qty]       add an item to the cart
  remove <id>          remove an item from the cart
  qty <id> <n>         set the quantity of an item (0 removes it)
  cart                 show the cart
  clear                empty the cart
  checkout             buy everything in the cart
  login <user>         sign in; the local cart is merged into yours
  logout               sign out
  whoami               show the signed-in user
  exit`

// catalog is the part of the catalog API the shell needs.
type catalog interface {
	ListItems(ctx context.Context, query, categoryID string) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ItemsByCategory(ctx context.Context, categoryID string) ([]models.Item, error)
	CreateItem(ctx context.Context, sellerID string, it models.Item) (*models.Item, error)
	RateItem(ctx context.Context, id string, rating int) (*models.Item, error)
}

// shell is the interactive command loop.
type shell struct {
	session *cart.Session
	catalog catalog
	out     io.Writer

	count       atomic.Int64
	unsubscribe func()
}

func newShell(session *cart.Session, catalog catalog, out io.Writer) *shell {
	sh := &shell{session: session, catalog: catalog, out: out}
	sh.unsubscribe = session.Subscribe(func(c cart.Cart) {
		sh.count.Store(int64(c.TotalItems()))
	})
	return sh
}

// close saves a pending cart change before shutting the session down.
func (sh *shell) close(ctx context.Context) {
	sh.unsubscribe()
	_ = sh.session.Scheduler().FlushPending(ctx)
	sh.session.Close()
}

func (sh *shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) prompt() string {
	who := "guest"
	if id := sh.session.Identity(); id.Authenticated() {
		who = id.UserID
	}
	return fmt.Sprintf("gophmart %s [%d]> ", who, sh.count.Load())
}

// run reads commands from in until exit, EOF or ctx is done.
func (sh *shell) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return
		}
		sh.printf("%s", sh.prompt())
		if !scanner.Scan() {
			sh.printf("\n")
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if !sh.exec(ctx, args) {
			return
		}
	}
}

// exec runs one command; it returns false when the shell should exit.
func (sh *shell) exec(ctx context.Context, args []string) bool {
	switch args[0] {
	case "help":
		sh.printf("%s\n", helpText)
	case "items":
		if len(args) > 1 && args[1] == "-c" {
			if len(args) < 3 {
				sh.printf("Usage: items -c <category> [query]\n")
				break
			}
			sh.listItems(ctx, strings.Join(args[3:], " "), args[2])
			break
		}
		sh.listItems(ctx, strings.Join(args[1:], " "), "")
	case "categories":
		sh.listCategories(ctx)
	case "show":
		if len(args) < 2 {
			sh.printf("Usage: show <id>\n")
			break
		}
		sh.showItem(ctx, args[1])
	case "rate":
		if len(args) < 3 {
			sh.printf("Usage: rate <id> <1-5>\n")
			break
		}
		sh.rateItem(ctx, args[1], args[2])
	case "sell":
		if len(args) < 3 {
			sh.printf("Usage: sell <title> <price> [category]\n")
			break
		}
		sh.sell(ctx, args[1:])
	case "add":
		if len(args) < 2 {
			sh.printf("Usage: add <id> [qty]\n")
			break
		}
		qty := 1
		if len(args) > 2 {
			qty = cart.ParseQuantity(args[2])
		}
		sh.addItem(ctx, args[1], qty)
	case "remove":
		if len(args) < 2 {
			sh.printf("Usage: remove <id>\n")
			break
		}
		if sh.session.Remove(args[1]) {
			sh.printf("Removed %s\n", args[1])
		} else {
			sh.printf("Not in cart\n")
		}
	case "qty":
		if len(args) < 3 {
			sh.printf("Usage: qty <id> <n>\n")
			break
		}
		sh.setQuantity(args[1], cart.ParseQuantity(args[2]))
	case "cart":
		sh.showCart()
	case "clear":
		if err := sh.session.Clear(ctx); err != nil {
			sh.printf("Cart cleared here, but saving failed: %v\n", err)
			break
		}
		sh.printf("Cart cleared\n")
	case "checkout":
		sh.checkout(ctx)
	case "login":
		if len(args) < 2 {
			sh.printf("Usage: login <user>\n")
			break
		}
		if err := sh.session.SetIdentity(ctx, cart.SignedIn(args[1])); err != nil {
			sh.printf("Signed in, but the merged cart was not saved: %v\n", err)
			break
		}
		sh.printf("Signed in as %s\n", args[1])
	case "logout":
		_ = sh.session.SetIdentity(ctx, cart.Anonymous())
		sh.printf("Signed out\n")
	case "whoami":
		if id := sh.session.Identity(); id.Authenticated() {
			sh.printf("%s\n", id.UserID)
		} else {
			sh.printf("guest\n")
		}
	case "exit", "quit":
		sh.printf("Bye\n")
		return false
	default:
		sh.printf("Unknown command. Type 'help' for a list of commands.\n")
	}
	return true
}

func (sh *shell) listItems(ctx context.Context, query, categoryID string) {
	var (
		items []models.Item
		err   error
	)
	if categoryID != "" && query == "" {
		items, err = sh.catalog.ItemsByCategory(ctx, categoryID)
	} else {
		items, err = sh.catalog.ListItems(ctx, query, categoryID)
	}
	if err != nil {
		sh.printf("Cannot list items: %v\n", err)
		return
	}
	if len(items) == 0 {
		sh.printf("No items found\n")
		return
	}
	for _, it := range items {
		sh.printf("%s  %-30s %10s  ★%.1f (%d)\n", it.ID, it.Title, it.Price.StringFixed(2), it.Rating, it.RatedBy)
	}
}

func (sh *shell) listCategories(ctx context.Context) {
	categories, err := sh.catalog.ListCategories(ctx)
	if err != nil {
		sh.printf("Cannot list categories: %v\n", err)
		return
	}
	for _, c := range categories {
		sh.printf("%s  %s\n", c.ID, c.Name)
	}
}

func (sh *shell) showItem(ctx context.Context, id string) {
	it, err := sh.catalog.GetItem(ctx, id)
	if err != nil {
		sh.printf("Cannot load item: %v\n", err)
		return
	}
	sh.printf("ID: %s\nTitle: %s\nPrice: %s\nRating: %.2f (%d)\nDescription: %s\nImage: %s\n",
		it.ID, it.Title, it.Price.String(), it.Rating, it.RatedBy, it.Description, it.ImageURL)
	if sh.session.Contains(it.ID) {
		sh.printf("(in your cart)\n")
	}
}

func (sh *shell) rateItem(ctx context.Context, id, value string) {
	rating, err := strconv.Atoi(value)
	if err != nil || rating < 1 || rating > 5 {
		sh.printf("Rating must be a number from 1 to 5\n")
		return
	}
	it, err := sh.catalog.RateItem(ctx, id, rating)
	if err != nil {
		sh.printf("Cannot rate item: %v\n", err)
		return
	}
	sh.printf("%s is now rated %.2f by %d users\n", it.Title, it.Rating, it.RatedBy)
}

// sell lists an item. The price is the last argument, or the one before it
// when the last is a category ID; everything before the price is the title.
func (sh *shell) sell(ctx context.Context, args []string) {
	id := sh.session.Identity()
	if !id.Authenticated() {
		sh.printf("Sign in to sell\n")
		return
	}

	var categoryID string
	price, err := decimal.NewFromString(args[len(args)-1])
	titleEnd := len(args) - 1
	if err != nil && len(args) > 2 {
		categoryID = args[len(args)-1]
		price, err = decimal.NewFromString(args[len(args)-2])
		titleEnd = len(args) - 2
	}
	if err != nil || price.IsNegative() {
		sh.printf("Price must be a non-negative number\n")
		return
	}

	it, err := sh.catalog.CreateItem(ctx, id.UserID, models.Item{
		Title:      strings.Join(args[:titleEnd], " "),
		Price:      price,
		CategoryID: categoryID,
	})
	if err != nil {
		sh.printf("Cannot list item: %v\n", err)
		return
	}
	sh.printf("Listed %s for %s as %s\n", it.Title, it.Price.String(), it.ID)
}

func (sh *shell) addItem(ctx context.Context, id string, qty int) {
	if qty <= 0 {
		sh.printf("Quantity must be positive\n")
		return
	}
	it, err := sh.catalog.GetItem(ctx, id)
	if err != nil {
		sh.printf("Cannot load item: %v\n", err)
		return
	}
	sh.session.Add(storage.CartItem(*it), qty)
	sh.printf("Added %d × %s\n", qty, it.Title)
}

func (sh *shell) setQuantity(id string, qty int) {
	if !sh.session.Contains(id) && qty > 0 {
		sh.printf("Not in cart, use add\n")
		return
	}
	sh.session.SetQuantity(id, qty)
	if qty <= 0 {
		sh.printf("Removed %s\n", id)
		return
	}
	sh.printf("%s quantity set to %d\n", id, qty)
}

func (sh *shell) showCart() {
	c := sh.session.Cart()
	if c.IsEmpty() {
		sh.printf("Cart is empty\n")
		return
	}
	for _, l := range c.Lines() {
		sh.printf("%s  %-30s %4d × %-10s = %s\n", l.ItemID, l.Title, l.Quantity, l.Price.String(), l.Subtotal().String())
	}
	sh.printf("Total: %d items, %s\n", c.TotalItems(), c.TotalPrice().String())
}

func (sh *shell) checkout(ctx context.Context) {
	receipt, err := sh.session.Checkout(ctx)
	if errors.Is(err, cart.ErrEmptyCart) {
		sh.printf("Cart is empty\n")
		return
	}
	if err != nil {
		sh.printf("Checkout failed: %v\n", err)
		return
	}
	sh.printf("Paid %s for %d items. Thank you!\n", receipt.TotalPrice.String(), receipt.TotalItems)
	if receipt.SaveErr != nil {
		sh.printf("Warning: the emptied cart was not saved: %v\n", receipt.SaveErr)
	}
}
