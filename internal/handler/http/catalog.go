package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/blackcave0/ecommerc-memonto/internal/catalog"
	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
	"github.com/blackcave0/ecommerc-memonto/pkg/money"
	"github.com/blackcave0/ecommerc-memonto/pkg/pagination"
)

// CatalogHandler serves the read-only product catalog.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(c *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

// ProductDetail is a product with its reviews and related products.
type ProductDetail struct {
	domain.Product
	Reviews []domain.Review  `json:"reviews"`
	Related []domain.Product `json:"related"`
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, total := h.catalog.List(filter)
	httputil.WritePage(w, products, total, pagination.New(filter.Page, filter.PerPage))
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	related, err := h.catalog.Related(p.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ProductDetail{
		Product: p,
		Reviews: h.catalog.Reviews(p.ID),
		Related: related,
	})
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.catalog.Categories())
}

func parseProductFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	params := pagination.FromRequest(r)
	f := catalog.Filter{
		Sizes:   splitList(q["size"]),
		Colors:  splitList(q["color"]),
		Sort:    q.Get("sort"),
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := q.Get("category"); v != "" {
		f.Category = &v
	}
	if v := strings.TrimSpace(q.Get("q")); v != "" {
		f.Search = &v
	}

	switch f.Sort {
	case "", catalog.SortFeatured, catalog.SortPriceLow, catalog.SortPriceHigh, catalog.SortRating:
	default:
		return f, apperrors.InvalidInput("unknown sort order: " + f.Sort)
	}

	var err error
	if f.MinPrice, err = parsePrice(q.Get("min_price")); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(q.Get("max_price")); err != nil {
		return f, err
	}
	return f, nil
}

func parsePrice(v string) (*money.Amount, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return nil, apperrors.InvalidInput("invalid price: " + v)
	}
	a := money.FromFloat(n)
	return &a, nil
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
