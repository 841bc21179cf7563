// Package cart holds the client-side shopping cart: the in-memory state
// container, the merge applied on sign-in, and the debounced persistence
// that keeps the authoritative store in sync.
package cart

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is the catalog snapshot a line is created from. Its fields are
// copied into the line at add time and never refreshed afterwards.
type Item struct {
	ID       string
	Title    string
	Price    decimal.Decimal
	ImageURL string
}

// Line is one cart row.
type Line struct {
	ItemID   string          `json:"item_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Quantity int             `json:"quantity"`
}

// Subtotal is Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a set of lines keyed by item ID, kept in insertion order.
// Quantities are always >= 1. The zero value is an empty cart.
//
// A Cart is not safe for concurrent use; Session serializes access.
type Cart struct {
	lines []Line
}

// FromLines builds a cart from arbitrary lines: lines without an item ID
// or with a non-positive quantity are dropped, repeated items are folded
// into the first occurrence by summing quantities.
func FromLines(lines []Line) Cart {
	var c Cart
	for _, l := range lines {
		if l.ItemID == "" || l.Quantity <= 0 {
			continue
		}
		if i := c.index(l.ItemID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) index(itemID string) int {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Add puts quantity units of item into the cart, summing with an existing
// line. Non-positive quantities are ignored; the return value reports
// whether the cart changed.
func (c *Cart) Add(item Item, quantity int) bool {
	if quantity <= 0 || item.ID == "" {
		return false
	}
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		return true
	}
	c.lines = append(c.lines, Line{
		ItemID:   item.ID,
		Title:    item.Title,
		Price:    item.Price,
		ImageURL: item.ImageURL,
		Quantity: quantity,
	})
	return true
}

// Remove deletes the line for itemID, if any.
func (c *Cart) Remove(itemID string) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// SetQuantity overwrites the quantity of itemID. A non-positive quantity
// removes the line. An absent item is inserted as a bare line carrying
// only its ID.
func (c *Cart) SetQuantity(itemID string, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(itemID)
	}
	if itemID == "" {
		return false
	}
	if i := c.index(itemID); i >= 0 {
		if c.lines[i].Quantity == quantity {
			return false
		}
		c.lines[i].Quantity = quantity
		return true
	}
	c.lines = append(c.lines, Line{ItemID: itemID, Quantity: quantity})
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() bool {
	if len(c.lines) == 0 {
		return false
	}
	c.lines = nil
	return true
}

// TotalItems is the sum of all quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice is the sum of quantity × price over all lines, unrounded.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Contains reports whether itemID has a line.
func (c Cart) Contains(itemID string) bool {
	return c.index(itemID) >= 0
}

// Line returns the line for itemID.
func (c Cart) Line(itemID string) (Line, bool) {
	if i := c.index(itemID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Lines returns a copy of the lines in cart order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len is the number of distinct items.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Clone returns a cart that shares no memory with c.
func (c Cart) Clone() Cart {
	if c.lines == nil {
		return Cart{}
	}
	return Cart{lines: c.Lines()}
}

// MarshalJSON encodes the cart as an array of lines.
func (c Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines())
}

// UnmarshalJSON decodes an array of lines, normalizing as FromLines does.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*c = FromLines(lines)
	return nil
}

// ParseQuantity converts user input to a quantity. Input that is not an
// integer falls back to 1; the caller decides what a non-positive result
// means.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return n
}
