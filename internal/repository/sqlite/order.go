package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using SQLite.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new SQLite-backed order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_email, status, total_amount, shipping_address, delivery_date, tracking_number, notes, created_at, updated_at`

// Create inserts a new order and its items atomically within a transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "CreateOrder", "INSERT INTO orders; INSERT INTO order_items")
	defer func() { end(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deliveryDate sql.NullInt64
	if o.DeliveryDate != nil {
		deliveryDate = sql.NullInt64{Int64: toMillis(*o.DeliveryDate), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.UserEmail,
		string(o.Status),
		o.TotalAmount,
		o.ShippingAddress,
		deliveryDate,
		o.TrackingNumber,
		o.Notes,
		toMillis(o.CreatedAt),
		toMillis(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
		VALUES (?, ?, ?, ?, ?, ?)`

	ids := make([]int64, len(o.Items))
	for i, item := range o.Items {
		res, err := tx.ExecContext(ctx, itemQuery,
			o.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("order item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for i := range o.Items {
		o.Items[i].ID = ids[i]
		o.Items[i].OrderID = o.ID
	}
	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, err
	}

	items, err := r.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (orders []domain.Order, err error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserEmail != nil {
		conditions = append(conditions, "user_email = ?")
		args = append(args, *filter.UserEmail)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders = make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems batch-loads the items of every order in a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]any, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id IN (` + placeholders(len(ids)) + `)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("batch load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return err
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate batch order item rows: %w", err)
	}

	for i := range orders {
		if items, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return nil
}

// Items returns the items of one order in insertion order.
func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// UpdateStatus changes the status and tracking number of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber string, updatedAt time.Time) (err error) {
	query := `UPDATE orders SET status = ?, tracking_number = ?, updated_at = ? WHERE id = ?`
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "UpdateOrderStatus", query)
	defer func() { end(err) }()

	res, err := r.db.ExecContext(ctx, query, string(status), trackingNumber, toMillis(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return requireAffected(res, "order", id)
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o            domain.Order
		status       string
		deliveryDate sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(
		&o.ID,
		&o.UserEmail,
		&status,
		&o.TotalAmount,
		&o.ShippingAddress,
		&deliveryDate,
		&o.TrackingNumber,
		&o.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	if deliveryDate.Valid {
		d := fromMillis(deliveryDate.Int64)
		o.DeliveryDate = &d
	}
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	return &o, nil
}

func scanOrderItem(row rowScanner) (domain.OrderItem, error) {
	var item domain.OrderItem
	if err := row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.ProductName,
		&item.Quantity,
		&item.UnitPrice,
		&item.TotalPrice,
	); err != nil {
		return item, fmt.Errorf("scan order item: %w", err)
	}
	return item, nil
}
