// Package backend is a self-contained development stand-in for the order
// and analytics services. It loads the order dataset from CSV into SQLite
// and serves the same endpoints the real services expose.
package backend

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mkarlsen/shopchat/pkg/connectors"
	"github.com/mkarlsen/shopchat/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_date       TEXT,
	customer_id      INTEGER,
	gender           TEXT,
	device_type      TEXT,
	product_category TEXT,
	product          TEXT,
	sales            REAL,
	profit           REAL,
	shipping_cost    REAL,
	order_priority   TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_priority ON orders(order_priority);
`

type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path. Use ":memory:"
// for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// columns in the dataset CSV, by header name.
var csvColumns = []string{
	"Order_Date", "Customer_Id", "Gender", "Device_Type",
	"Product_Category", "Product", "Sales", "Profit",
	"Shipping_Cost", "Order_Priority",
}

// LoadCSV imports the order dataset. Rows with unparsable numeric fields
// are skipped with a warning rather than aborting the import.
func (s *Store) LoadCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read dataset header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return 0, fmt.Errorf("dataset missing column %q", col)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO orders
		(order_date, customer_id, gender, device_type, product_category,
		 product, sales, profit, shipping_cost, order_priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted, skipped int
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("read dataset row: %w", err)
		}

		cid, err1 := strconv.Atoi(strings.TrimSpace(row[idx["Customer_Id"]]))
		sales, err2 := parseFloat(row[idx["Sales"]])
		profit, err3 := parseFloat(row[idx["Profit"]])
		shipping, err4 := parseFloat(row[idx["Shipping_Cost"]])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			skipped++
			continue
		}

		_, err = stmt.ExecContext(ctx,
			row[idx["Order_Date"]], cid, row[idx["Gender"]], row[idx["Device_Type"]],
			row[idx["Product_Category"]], row[idx["Product"]],
			sales, profit, shipping, row[idx["Order_Priority"]])
		if err != nil {
			return inserted, fmt.Errorf("insert order: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}

	if skipped > 0 {
		logger.WarnCF("backend", "Skipped malformed dataset rows", map[string]interface{}{
			"skipped": skipped,
		})
	}
	logger.InfoCF("backend", "Dataset loaded", map[string]interface{}{
		"rows": inserted,
	})
	return inserted, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

const orderColumns = `order_date, customer_id, gender, device_type,
	product_category, product, sales, profit, shipping_cost, order_priority`

func (s *Store) OrdersByCustomer(ctx context.Context, customerID int) ([]connectors.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY order_date DESC`,
		customerID)
}

func (s *Store) OrdersByPriority(ctx context.Context, level string) ([]connectors.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_priority = ? COLLATE NOCASE ORDER BY order_date DESC`,
		level)
}

func (s *Store) HighProfitOrders(ctx context.Context, limit int) ([]connectors.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY profit DESC LIMIT ?`,
		limit)
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...interface{}) ([]connectors.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []connectors.Order
	for rows.Next() {
		var o connectors.Order
		if err := rows.Scan(&o.OrderDate, &o.CustomerID, &o.Gender, &o.DeviceType,
			&o.Category, &o.Product, &o.Sales, &o.Profit, &o.ShippingCost, &o.Priority); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) SalesByCategory(ctx context.Context) ([]connectors.CategorySales, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_category, SUM(sales) FROM orders GROUP BY product_category ORDER BY SUM(sales) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connectors.CategorySales
	for rows.Next() {
		var c connectors.CategorySales
		if err := rows.Scan(&c.Category, &c.Sales); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ProfitByGender(ctx context.Context) ([]connectors.GenderProfit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gender, SUM(profit) FROM orders GROUP BY gender`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connectors.GenderProfit
	for rows.Next() {
		var g connectors.GenderProfit
		if err := rows.Scan(&g.Gender, &g.Profit); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ShippingSummary(ctx context.Context) (connectors.ShippingSummary, error) {
	var sum connectors.ShippingSummary
	var avg, min, max sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(shipping_cost), MIN(shipping_cost), MAX(shipping_cost) FROM orders`).
		Scan(&avg, &min, &max)
	if err != nil {
		return sum, err
	}
	sum.Average, sum.Min, sum.Max = avg.Float64, min.Float64, max.Float64
	return sum, nil
}
