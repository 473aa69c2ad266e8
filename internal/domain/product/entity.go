// internal/domain/product/entity.go
package product

import "time"

type Product struct {
	ID        string    `json:"_id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SKU       string    `json:"sku,omitempty" db:"sku"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Category  string    `json:"category,omitempty" db:"category"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OutOfStock reports whether the product has no sellable stock left.
func (p *Product) OutOfStock() bool {
	return p.Quantity <= 0
}
