package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-api/internal/domain"
	"catalog-api/internal/listing"

	"github.com/google/uuid"
)

const productColumns = `id, name, description, price, stock, active, owner_id, created_at, updated_at`

// searchVector must match the expression of the products_search_idx GIN index
const searchVector = `to_tsvector('simple', name || ' ' || description)`

// sortColumns whitelists the columns a listing may be ordered by
var sortColumns = map[string]string{
	listing.FieldName:      "name",
	listing.FieldPrice:     "price",
	listing.FieldStock:     "stock",
	listing.FieldCreatedAt: "created_at",
	listing.FieldUpdatedAt: "updated_at",
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a PostgreSQL-backed ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Active,
		product.Owner,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update saves the mutable fields of an existing product. The owner and
// creation time are never rewritten.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, active = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Active,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID regardless of its active flag
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product := &domain.Product{}
	err := scanProduct(r.db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves one page of products matching the query
func (r *productRepository) List(ctx context.Context, q listing.Query) ([]*domain.Product, error) {
	where, args := buildProductWhere(q.Filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, buildProductOrder(q.Sort), len(args)+1, len(args)+2)

	args = append(args, q.Limit, q.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Count returns the number of products matching the filter
func (r *productRepository) Count(ctx context.Context, filter listing.Filter) (int64, error) {
	where, args := buildProductWhere(filter)

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}

func buildProductWhere(filter listing.Filter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}

	if filter.Search != "" {
		args = append(args, filter.Search)
		conditions = append(conditions, fmt.Sprintf("%s @@ plainto_tsquery('simple', $%d)", searchVector, len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func buildProductOrder(sort []listing.SortField) string {
	if len(sort) == 0 {
		sort = listing.DefaultSort
	}

	terms := make([]string, 0, len(sort)+1)
	for _, s := range sort {
		column, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		order := listing.SortOrderAsc
		if s.Order == listing.SortOrderDesc {
			order = listing.SortOrderDesc
		}
		terms = append(terms, column+" "+string(order))
	}

	// stable pagination when sort keys tie
	terms = append(terms, "id ASC")
	return strings.Join(terms, ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Active,
		&product.Owner,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}
