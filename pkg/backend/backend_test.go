package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkarlsen/shopchat/pkg/connectors"
)

const testCSV = `Order_Date,Time,Aging,Customer_Id,Gender,Device_Type,Customer_Login_type,Product_Category,Product,Sales,Quantity,Discount,Profit,Shipping_Cost,Order_Priority,Payment_method
2024-02-20,10:15,3,37077,Female,Web,Member,Electronics,Wireless Headphones,89.99,1,0.1,30.5,5.5,High,credit_card
2024-01-15,11:00,2,37077,Female,Web,Member,Home,Desk Lamp,20.00,1,0,5.0,3.0,Low,credit_card
2024-03-01,09:30,1,41066,Male,Mobile,Guest,Electronics,Monitor,199.99,1,0,80.0,9.99,High,money_order
bad-row,,,not-a-number,,,,,,x,,,y,z,,
`

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := store.LoadCSV(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows loaded (malformed row skipped), got %d", n)
	}
	return store
}

func TestStore_OrdersByCustomer(t *testing.T) {
	store := newTestStore(t)

	orders, err := store.OrdersByCustomer(context.Background(), 37077)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].Product != "Wireless Headphones" {
		t.Errorf("orders should come back most-recent first, got %q", orders[0].Product)
	}
}

func TestStore_Analytics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sales, err := store.SalesByCategory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 2 || sales[0].Category != "Electronics" {
		t.Errorf("sales by category = %+v", sales)
	}

	profit, err := store.ProfitByGender(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(profit) != 2 {
		t.Errorf("profit by gender = %+v", profit)
	}

	sum, err := store.ShippingSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Min != 3.0 || sum.Max != 9.99 {
		t.Errorf("shipping summary = %+v", sum)
	}

	top, err := store.HighProfitOrders(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Product != "Monitor" {
		t.Errorf("high profit orders = %+v", top)
	}
}

func TestServer_CustomerRoutes(t *testing.T) {
	srv := NewServer(newTestStore(t), "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/data/customer/37077", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var orders []connectors.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 || orders[0].CustomerID != 37077 {
		t.Errorf("orders = %+v", orders)
	}
}

func TestServer_UnknownCustomerIs404(t *testing.T) {
	srv := NewServer(newTestStore(t), "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/data/customer/99999", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_PriorityRouteCaseInsensitive(t *testing.T) {
	srv := NewServer(newTestStore(t), "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/data/order-priority/high", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var orders []connectors.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 high-priority orders, got %d", len(orders))
	}
}

func TestServer_ShippingSummaryRoute(t *testing.T) {
	srv := NewServer(newTestStore(t), "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/data/shipping-cost-summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var sum connectors.ShippingSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Max != 9.99 {
		t.Errorf("summary = %+v", sum)
	}
}
