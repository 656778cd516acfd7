package domain

// Product is a catalog entry as served to the storefront.
type Product struct {
	ID                  int64          `json:"id"`
	Slug                string         `json:"slug"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	Price               string         `json:"price"`
	Image               string         `json:"image"`
	Category            string         `json:"category"`
	DetailedDescription string         `json:"detailedDescription,omitempty"`
	Features            []string       `json:"features,omitempty"`
	Sizes               []string       `json:"sizes,omitempty"`
	Colors              []ProductColor `json:"colors,omitempty"`
	Material            string         `json:"material,omitempty"`
	Care                []string       `json:"care,omitempty"`
	Images              []string       `json:"images,omitempty"`
	Rating              float64        `json:"rating,omitempty"`
	ReviewCount         int            `json:"reviewCount,omitempty"`
	Stock               int            `json:"stock,omitempty"`
	SKU                 string         `json:"sku,omitempty"`
	RelatedProducts     []int64        `json:"relatedProducts,omitempty"`
}

// Review is a customer review of a product.
type Review struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`
	Rating    int    `json:"rating"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
	Helpful   int    `json:"helpful,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
}

// ProductColor is a named color option.
type ProductColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Snapshot builds the line item candidate for this product with the chosen
// variant attributes. The id and quantity are filled in by the cart.
func (p Product) Snapshot(size, color *string) LineItem {
	return LineItem{
		ProductID: p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Size:      cloneString(size),
		Color:     cloneString(color),
	}
}

// HasSize reports whether size is one of the product's sizes.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// HasColor reports whether color names one of the product's colors.
func (p Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c.Name == color {
			return true
		}
	}
	return false
}
