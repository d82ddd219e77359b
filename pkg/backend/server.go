package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkarlsen/shopchat/pkg/logger"
)

const highProfitLimit = 10

// Server exposes the dataset over the same routes the production order and
// analytics services use, so the connectors work against either.
type Server struct {
	echo  *echo.Echo
	store *Store
	addr  string
}

func NewServer(store *Store, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, store: store, addr: addr}

	e.GET("/data/customer/:id", s.handleCustomerOrders)
	e.GET("/data/order-priority/:level", s.handlePriorityOrders)
	e.GET("/data/total-sales-by-category", s.handleSalesByCategory)
	e.GET("/data/profit-by-gender", s.handleProfitByGender)
	e.GET("/data/shipping-cost-summary", s.handleShippingSummary)
	e.GET("/data/high-profit-products", s.handleHighProfit)
	e.GET("/health", s.handleHealth)

	return s
}

func (s *Server) handleCustomerOrders(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Customer ID must be numeric"})
	}

	orders, err := s.store.OrdersByCustomer(c.Request().Context(), id)
	if err != nil {
		return s.storeFailure(c, err)
	}
	if len(orders) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("No orders found for customer %d", id),
		})
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) handlePriorityOrders(c echo.Context) error {
	level := c.Param("level")

	orders, err := s.store.OrdersByPriority(c.Request().Context(), level)
	if err != nil {
		return s.storeFailure(c, err)
	}
	if len(orders) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("No orders found with priority %s", level),
		})
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) handleSalesByCategory(c echo.Context) error {
	rows, err := s.store.SalesByCategory(c.Request().Context())
	if err != nil {
		return s.storeFailure(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleProfitByGender(c echo.Context) error {
	rows, err := s.store.ProfitByGender(c.Request().Context())
	if err != nil {
		return s.storeFailure(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleShippingSummary(c echo.Context) error {
	sum, err := s.store.ShippingSummary(c.Request().Context())
	if err != nil {
		return s.storeFailure(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleHighProfit(c echo.Context) error {
	orders, err := s.store.HighProfitOrders(c.Request().Context(), highProfitLimit)
	if err != nil {
		return s.storeFailure(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) storeFailure(c echo.Context, err error) error {
	logger.ErrorCF("backend", "Store query failed", map[string]interface{}{
		"path":  c.Path(),
		"error": err.Error(),
	})
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
}

func (s *Server) Start() error {
	logger.InfoCF("backend", "Data service listening", map[string]interface{}{
		"addr": s.addr,
	})
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("backend listen: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
