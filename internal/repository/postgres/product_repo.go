// internal/repository/postgres/product_repo.go
package postgres

import (
	"context"
	"fmt"

	"duka-service/internal/domain/product"
)

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// OutOfStock retrieves every product with no sellable stock left.
func (r *ProductRepository) OutOfStock(ctx context.Context) ([]product.Product, error) {
	query := `
		SELECT id, name, sku, quantity, category, updated_at
		FROM products
		WHERE quantity <= 0
		ORDER BY updated_at DESC
	`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list out-of-stock products: %w", err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Quantity, &p.Category, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
