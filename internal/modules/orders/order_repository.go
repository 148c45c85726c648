package orders

import (
	"context"
	"errors"
	"fmt"

	"taxi-booking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the order repository.
type RepositoryInterface interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	ListVisibleTo(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	UpdatePayment(ctx context.Context, orderID string, info *models.PaymentInfo) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new order repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const orderColumns = `id::text, customer_name, customer_email, customer_phone, pickup_date, pickup_time,
		start_address, end_address, start_point, end_point, distance, price, additional_notes,
		created_at, status, user_id::text, payment_id, payment_status, payment_url`

func pointParam(p *models.Point) []float64 {
	if p == nil {
		return nil
	}
	return []float64{p.Lat(), p.Lon()}
}

func pointFromArray(a []float64) *models.Point {
	if len(a) != 2 {
		return nil
	}
	return models.NewPoint(a[0], a[1])
}

// scanOrder is a helper function to scan a row into an Order model.
func (r *Repository) scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var start, end []float64
	var status string
	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.PickupDate,
		&order.PickupTime,
		&order.StartAddress,
		&order.EndAddress,
		&start,
		&end,
		&order.Distance,
		&order.Price,
		&order.AdditionalNotes,
		&order.CreatedAt,
		&status,
		&order.UserID,
		&order.PaymentID,
		&order.PaymentStatus,
		&order.PaymentURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	order.StartPoint = pointFromArray(start)
	order.EndPoint = pointFromArray(end)
	order.Status = models.OrderStatus(status)
	return &order, nil
}

func (r *Repository) collect(rows pgx.Rows) ([]*models.Order, error) {
	defer rows.Close()
	orders := []*models.Order{}
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Create inserts a new order. ID and created_at are generated by the database.
func (r *Repository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (customer_name, customer_email, customer_phone, pickup_date, pickup_time,
			start_address, end_address, start_point, end_point, distance, price, additional_notes, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.PickupDate, o.PickupTime,
		o.StartAddress, o.EndAddress, pointParam(o.StartPoint), pointParam(o.EndPoint),
		o.Distance, o.Price, o.AdditionalNotes, string(o.Status), o.UserID,
	)
	order, err := r.scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return order, nil
}

// FindByID retrieves a single order by its ID.
func (r *Repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return order, nil
}

// ListAll retrieves every order, newest first (admin use).
func (r *Repository) ListAll(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAll.Query: %w", err)
	}
	orders, err := r.collect(rows)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAll.Scan: %w", err)
	}
	return orders, nil
}

// ListVisibleTo retrieves the orders a regular user may see: their own and
// those created without a session.
func (r *Repository) ListVisibleTo(ctx context.Context, userID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 OR user_id IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListVisibleTo.Query: %w", err)
	}
	orders, err := r.collect(rows)
	if err != nil {
		return nil, fmt.Errorf("repository.ListVisibleTo.Scan: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the order status.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	query := `UPDATE orders SET status = $1 WHERE id = $2 RETURNING ` + orderColumns

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, string(status), orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	return order, nil
}

// UpdatePayment stores the payment session fields on the order.
func (r *Repository) UpdatePayment(ctx context.Context, orderID string, info *models.PaymentInfo) (*models.Order, error) {
	query := `
		UPDATE orders
		SET payment_id = $1, payment_status = $2, payment_url = $3
		WHERE id = $4
		RETURNING ` + orderColumns

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, info.ID, string(info.Status), info.RedirectURL, orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.UpdatePayment: %w", err)
	}
	return order, nil
}

// UpdatePaymentStatus updates an order's payment status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*models.Order, error) {
	query := `UPDATE orders SET payment_status = $1 WHERE id = $2 RETURNING ` + orderColumns

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, string(status), orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.UpdatePaymentStatus: %w", err)
	}
	return order, nil
}

// Delete removes an order.
func (r *Repository) Delete(ctx context.Context, orderID string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
