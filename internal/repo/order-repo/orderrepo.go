package orderrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const orderColumns = "id, user_id, status, total_amount, notes, last_actor_id, last_actor_role, created_at, updated_at"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanOrder(row pgx.Row, order *domain.Order) error {
	return row.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.Notes,
		&order.LastActorID, &order.LastActorRole, &order.CreatedAt, &order.UpdatedAt)
}

func (r *Repository) findOne(ctx context.Context, query string, id int) (*domain.Order, error) {
	var order domain.Order
	err := scanOrder(r.db.QueryRow(ctx, query, id), &order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.Int("orderID", id), zap.Error(err))
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate locks the order row until the surrounding transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
        FOR UPDATE
    `
	return r.findOne(ctx, query, id)
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *Repository) FindItems(ctx context.Context, orderID int) ([]domain.OrderItem, error) {
	query := `
        SELECT id, order_id, product_ref, quantity, unit_price, line_total
        FROM order_items
        WHERE order_id = $1
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("can't get order items", zap.Error(err))
		return nil, err
	}
	return scanItems(rows)
}

// FindItemsByOrderIDs loads the items of several orders in one round trip.
func (r *Repository) FindItemsByOrderIDs(ctx context.Context, orderIDs []int) ([]domain.OrderItem, error) {
	query := `
        SELECT id, order_id, product_ref, quantity, unit_price, line_total
        FROM order_items
        WHERE order_id = ANY($1)
        ORDER BY order_id, id
    `
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		zap.L().Error("can't get order items", zap.Ints("orderIDs", orderIDs), zap.Error(err))
		return nil, err
	}
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]domain.OrderItem, error) {
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductRef, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			zap.L().Error("can't scan order item row", zap.Error(err))
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists the mutable fields of an order.
func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	query := `
        UPDATE orders
        SET status = $1, notes = $2, last_actor_id = $3, last_actor_role = $4, updated_at = $5
        WHERE id = $6
    `
	_, err := r.db.Exec(ctx, query, order.Status, order.Notes, order.LastActorID, order.LastActorRole, order.UpdatedAt, order.ID)
	if err != nil {
		zap.L().Error("failed to update order", zap.Int("orderID", order.ID), zap.Error(err))
		return err
	}
	return nil
}

// TransitionStatus moves the order to status "to" only while it is in status
// "from" and reports whether a row changed.
func (r *Repository) TransitionStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) (bool, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, to, at, id, from)
	if err != nil {
		zap.L().Error("failed to transition order", zap.Int("orderID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
