package pgorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/models"
)

const orderColumns = `
  id, order_number, customer_id, delivery_address,
  status, order_date, estimated_delivery_date,
  total_amount_cents, created_at, updated_at`

// CreateOrder persists the order and its line items atomically. The caller is
// expected to have assigned ID, OrderNumber and TotalAmountCents already.
func (s *Storage) CreateOrder(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO orders (
  id, order_number, customer_id, delivery_address,
  status, order_date, estimated_delivery_date,
  total_amount_cents, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
`, o.ID, o.OrderNumber, o.CustomerID, o.DeliveryAddress,
		o.Status, o.OrderDate, o.EstimatedDeliveryDate,
		o.TotalAmountCents, now)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	for _, it := range o.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents)
VALUES ($1,$2,$3,$4,$5)
`, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPriceCents)
		if err != nil {
			return errors.Wrap(err, "insert order item")
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Storage) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	return s.scanWithItems(ctx, row)
}

func (s *Storage) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	return s.scanWithItems(ctx, row)
}

func (s *Storage) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+orderColumns+`
FROM orders
WHERE customer_id = $1
ORDER BY order_date DESC
`, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "select orders by customer")
	}
	return s.collect(ctx, rows)
}

func (s *Storage) ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+orderColumns+`
FROM orders
ORDER BY order_date DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	return s.collect(ctx, rows)
}

// UpdateOrder rewrites the mutable order fields. Line items never change after
// creation, so only the orders row is touched.
func (s *Storage) UpdateOrder(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now().UTC()

	tag, err := s.db.Exec(ctx, `
UPDATE orders
SET delivery_address = $2,
    status = $3,
    estimated_delivery_date = $4,
    total_amount_cents = $5,
    updated_at = $6
WHERE id = $1
`, o.ID, o.DeliveryAddress, o.Status, o.EstimatedDeliveryDate, o.TotalAmountCents, o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order %s not found", o.ID)
	}
	return nil
}

func (s *Storage) scanWithItems(ctx context.Context, row pgx.Row) (*models.Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Storage) collect(ctx context.Context, rows pgx.Rows) ([]*models.Order, error) {
	defer rows.Close()

	out := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	for _, o := range out {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Storage) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := s.db.Query(ctx, `
SELECT product_id, product_name, quantity, unit_price_cents
FROM order_items
WHERE order_id = $1
ORDER BY id
`, o.ID)
	if err != nil {
		return errors.Wrap(err, "select order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it models.LineItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPriceCents); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, it)
	}
	return errors.Wrap(rows.Err(), "rows")
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var estimated *time.Time
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.DeliveryAddress,
		&o.Status, &o.OrderDate, &estimated,
		&o.TotalAmountCents, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan order")
	}
	o.EstimatedDeliveryDate = estimated
	return &o, nil
}
