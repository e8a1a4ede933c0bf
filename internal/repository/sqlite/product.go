package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using SQLite.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new SQLite-backed product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, old_price, stock, category, image_url, origin, unit, is_organic, is_active, updated_at`

// List returns the products matching filter ordered by category and name.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (products []domain.Product, err error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.OnlyActive {
		conditions = append(conditions, "is_active = 1")
	}
	if filter.OnlyOrganic {
		conditions = append(conditions, "is_organic = 1")
	}
	if filter.Query != "" {
		conditions = append(conditions, "(lower(name) LIKE ? OR lower(description) LIKE ?)")
		like := "%" + strings.ToLower(filter.Query) + "%"
		args = append(args, like, like)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY category, name"

	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// GetByID returns a single product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}
	return p, nil
}

// Upsert inserts a product or replaces every field of an existing one.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			old_price = excluded.old_price,
			stock = excluded.stock,
			category = excluded.category,
			image_url = excluded.image_url,
			origin = excluded.origin,
			unit = excluded.unit,
			is_organic = excluded.is_organic,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`

	var oldPrice sql.NullInt64
	if p.OldPrice != nil {
		oldPrice = sql.NullInt64{Int64: *p.OldPrice, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		oldPrice,
		p.Stock,
		p.Category,
		p.ImageURL,
		p.Origin,
		p.Unit,
		boolToInt(p.IsOrganic),
		boolToInt(p.IsActive),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, "product", id)
}

// SetActive toggles whether a product is listed to shoppers.
func (r *ProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}
	return requireAffected(res, "product", id)
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, id)
	}
	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		oldPrice  sql.NullInt64
		isOrganic int
		isActive  int
		updatedAt int64
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&oldPrice,
		&p.Stock,
		&p.Category,
		&p.ImageURL,
		&p.Origin,
		&p.Unit,
		&isOrganic,
		&isActive,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if oldPrice.Valid {
		v := oldPrice.Int64
		p.OldPrice = &v
	}
	p.IsOrganic = isOrganic == 1
	p.IsActive = isActive == 1
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
