package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// CartRepository implements repository.CartRepository using SQLite.
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new SQLite-backed cart repository.
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

const cartColumns = `product_id, name, unit_price, quantity, image_url, position, added_at`

// List returns all cart lines in insertion order.
func (r *CartRepository) List(ctx context.Context) (lines []domain.CartLine, err error) {
	query := `SELECT ` + cartColumns + ` FROM cart_lines ORDER BY position, added_at`
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "ListCartLines", query)
	defer func() { end(err) }()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines = make([]domain.CartLine, 0)
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// Get returns the cart line for productID.
func (r *CartRepository) Get(ctx context.Context, productID string) (*domain.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_lines WHERE product_id = ?`
	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("cart line", productID)
		}
		return nil, err
	}
	return line, nil
}

// Upsert inserts the line or replaces the stored one with the same product.
func (r *CartRepository) Upsert(ctx context.Context, line domain.CartLine) (err error) {
	query := `
		INSERT INTO cart_lines (` + cartColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			name = excluded.name,
			unit_price = excluded.unit_price,
			quantity = excluded.quantity,
			image_url = excluded.image_url,
			position = excluded.position`
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "UpsertCartLine", query)
	defer func() { end(err) }()

	_, err = r.db.ExecContext(ctx, query,
		line.ProductID,
		line.Name,
		line.UnitPrice,
		line.Quantity,
		line.ImageURL,
		line.Position,
		toMillis(line.AddedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

// Delete removes the line for productID, if any.
func (r *CartRepository) Delete(ctx context.Context, productID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// DeleteAll empties the cart.
func (r *CartRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines`); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (*domain.CartLine, error) {
	var (
		line    domain.CartLine
		addedAt int64
	)
	if err := row.Scan(
		&line.ProductID,
		&line.Name,
		&line.UnitPrice,
		&line.Quantity,
		&line.ImageURL,
		&line.Position,
		&addedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan cart line: %w", err)
	}
	line.AddedAt = fromMillis(addedAt)
	return &line, nil
}
