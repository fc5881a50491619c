package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rnistala/pocket-sync/internal/schema"
)

// Orders implements Store.Orders.
func (db *DB) Orders(ctx context.Context) ([]schema.Order, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, fields FROM orders ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []schema.Order
	for rows.Next() {
		var o schema.Order
		var fields string
		if err := rows.Scan(&o.ID, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &o.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ReplaceOrders implements Store.ReplaceOrders.
func (db *DB) ReplaceOrders(ctx context.Context, orders []schema.Order) error {
	return db.replaceAll(ctx, "orders", len(orders), func(tx *sql.Tx, i int) error {
		o := orders[i]
		if err := o.Validate(); err != nil {
			return fmt.Errorf("invalid order: %w", err)
		}
		fields, err := json.Marshal(o.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal order %s: %w", o.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO orders (id, fields) VALUES (?, ?)", o.ID, string(fields)); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
		return nil
	})
}
