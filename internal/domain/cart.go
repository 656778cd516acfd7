package domain

import (
	"github.com/blackcave0/ecommerc-memonto/pkg/money"
)

// Cart is the shopping cart state. TotalItems and TotalPrice are derived from
// Items and are only ever produced by Recompute.
type Cart struct {
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice string     `json:"totalPrice"`
}

// LineItem is a single purchasable unit in the cart. Name, Image and Price are
// a snapshot of the product taken when the item was first added.
type LineItem struct {
	ID        string  `json:"id"`
	ProductID int64   `json:"productId"`
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	Price     string  `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
}

// DisplayPrice implements money.Priced.
func (i LineItem) DisplayPrice() string { return i.Price }

// Qty implements money.Priced.
func (i LineItem) Qty() int { return i.Quantity }

// UnitAmount returns the parsed unit price in minor units.
func (i LineItem) UnitAmount() money.Amount {
	return money.FromDisplay(i.Price)
}

// LineTotal returns unit price × quantity in minor units.
func (i LineItem) LineTotal() money.Amount {
	return i.UnitAmount().Mul(i.Quantity)
}

// EmptyCart returns the canonical empty cart.
func EmptyCart() Cart {
	return Cart{
		Items:      []LineItem{},
		TotalItems: 0,
		TotalPrice: money.Zero.String(),
	}
}

// Recompute builds a cart from items with freshly derived aggregates.
func Recompute(items []LineItem) Cart {
	if items == nil {
		items = []LineItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return Cart{
		Items:      items,
		TotalItems: count,
		TotalPrice: money.SumLineItems(items),
	}
}

// Total returns the cart total in minor units.
func (c Cart) Total() money.Amount {
	return money.Total(c.Items)
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = item.clone()
	}
	c.Items = items
	return c
}

func (i LineItem) clone() LineItem {
	i.Size = cloneString(i.Size)
	i.Color = cloneString(i.Color)
	return i
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// sameOption compares two optional variant attributes; two nils are equal.
func sameOption(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindMatch returns the index of the line item with the same product, size and
// color, or -1 when there is none.
func FindMatch(items []LineItem, productID int64, size, color *string) int {
	for i := range items {
		if items[i].ProductID == productID &&
			sameOption(items[i].Size, size) &&
			sameOption(items[i].Color, color) {
			return i
		}
	}
	return -1
}

// AddOrMerge returns a new item slice with quantity added to the matching line
// item, or with candidate appended under a fresh id from newID. The input slice
// is never modified.
func AddOrMerge(items []LineItem, candidate LineItem, quantity int, newID func() string) []LineItem {
	out := make([]LineItem, len(items), len(items)+1)
	copy(out, items)

	if idx := FindMatch(items, candidate.ProductID, candidate.Size, candidate.Color); idx >= 0 {
		out[idx].Quantity += quantity
		return out
	}

	item := candidate.clone()
	item.ID = newID()
	item.Quantity = quantity
	return append(out, item)
}

// IndexOf returns the index of the item with the given id, or -1.
func IndexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Valid reports whether the cart's items satisfy the identity and quantity
// invariants. It is used to reject persisted data of the wrong shape.
func (c Cart) Valid() bool {
	seen := make(map[string]struct{}, len(c.Items))
	for i, item := range c.Items {
		if item.ID == "" || item.Quantity < 1 {
			return false
		}
		if _, dup := seen[item.ID]; dup {
			return false
		}
		seen[item.ID] = struct{}{}
		if FindMatch(c.Items[:i], item.ProductID, item.Size, item.Color) >= 0 {
			return false
		}
	}
	return true
}
