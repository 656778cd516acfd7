package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/money"
	"github.com/blackcave0/ecommerc-memonto/pkg/pagination"
	"github.com/blackcave0/ecommerc-memonto/pkg/slug"
)

//go:embed products.json
var seed []byte

// Sort orders accepted by List.
const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
)

// Filter selects and orders catalog products. Nil and empty fields do not
// filter.
type Filter struct {
	Category *string
	Search   *string
	MinPrice *money.Amount
	MaxPrice *money.Amount
	Sizes    []string
	Colors   []string
	Sort     string
	Page     int
	PerPage  int
}

// Catalog is a read-only, in-memory product catalog.
type Catalog struct {
	products   []domain.Product
	reviews    []domain.Review
	byID       map[int64]int
	bySlug     map[string]int
	categories []string
}

type seedFile struct {
	Products []domain.Product `json:"products"`
	Reviews  []domain.Review  `json:"reviews"`
}

// New loads the embedded product catalog.
func New() (*Catalog, error) {
	return Load(seed)
}

// Load builds a catalog from a JSON document holding products and reviews.
func Load(data []byte) (*Catalog, error) {
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		products: f.Products,
		reviews:  f.Reviews,
		byID:     make(map[int64]int, len(f.Products)),
		bySlug:   make(map[string]int, len(f.Products)),
	}
	for i, p := range f.Products {
		if p.ID <= 0 || p.Name == "" {
			return nil, fmt.Errorf("catalog product %d: id and name are required", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog product %d: duplicate id", p.ID)
		}
		if p.Slug == "" {
			c.products[i].Slug = slug.Generate(p.Name)
		}
		key := c.products[i].Slug
		if _, dup := c.bySlug[key]; dup {
			return nil, fmt.Errorf("catalog product %d: duplicate slug %q", p.ID, key)
		}
		c.byID[p.ID] = i
		c.bySlug[key] = i
		if !slices.Contains(c.categories, p.Category) {
			c.categories = append(c.categories, p.Category)
		}
	}
	return c, nil
}

// List returns one page of products matching filter and the total match count.
func (c *Catalog) List(filter Filter) ([]domain.Product, int) {
	matched := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}

	switch filter.Sort {
	case SortPriceLow:
		slices.SortStableFunc(matched, func(a, b domain.Product) int {
			return compareAmount(money.FromDisplay(a.Price), money.FromDisplay(b.Price))
		})
	case SortPriceHigh:
		slices.SortStableFunc(matched, func(a, b domain.Product) int {
			return compareAmount(money.FromDisplay(b.Price), money.FromDisplay(a.Price))
		})
	case SortRating:
		slices.SortStableFunc(matched, func(a, b domain.Product) int {
			switch {
			case a.Rating > b.Rating:
				return -1
			case a.Rating < b.Rating:
				return 1
			}
			return 0
		})
	}

	page := pagination.Slice(matched, pagination.New(filter.Page, filter.PerPage))
	return page, len(matched)
}

func matches(p domain.Product, f Filter) bool {
	if f.Category != nil && *f.Category != "" && !strings.EqualFold(p.Category, *f.Category) {
		return false
	}

	price := money.FromDisplay(p.Price)
	if f.MinPrice != nil && price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && price > *f.MaxPrice {
		return false
	}

	if len(f.Sizes) > 0 && len(p.Sizes) > 0 && !slices.ContainsFunc(f.Sizes, p.HasSize) {
		return false
	}
	if len(f.Colors) > 0 && len(p.Colors) > 0 && !slices.ContainsFunc(f.Colors, p.HasColor) {
		return false
	}

	if f.Search != nil && *f.Search != "" {
		q := strings.ToLower(*f.Search)
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	}
	return true
}

func compareAmount(a, b money.Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// GetByID returns the product with the given id.
func (c *Catalog) GetByID(id int64) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", fmt.Sprint(id))
	}
	return c.products[i], nil
}

// GetBySlug returns the product with the given slug. The slug is normalized
// before lookup.
func (c *Catalog) GetBySlug(s string) (domain.Product, error) {
	i, ok := c.bySlug[slug.Generate(s)]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", s)
	}
	return c.products[i], nil
}

// Categories returns the distinct product categories in catalog order.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

// Related returns the related products of a product, skipping ids that are
// not in the catalog.
func (c *Catalog) Related(id int64) ([]domain.Product, error) {
	p, err := c.GetByID(id)
	if err != nil {
		return nil, err
	}
	related := make([]domain.Product, 0, len(p.RelatedProducts))
	for _, rid := range p.RelatedProducts {
		if i, ok := c.byID[rid]; ok {
			related = append(related, c.products[i])
		}
	}
	return related, nil
}

// Reviews returns the reviews of a product.
func (c *Catalog) Reviews(productID int64) []domain.Review {
	out := []domain.Review{}
	for _, r := range c.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}
