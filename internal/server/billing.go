package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solvance/cashier-polar/internal/billable"
)

func refFromParams(c *gin.Context) billable.Ref {
	return billable.Ref{
		Kind: strings.TrimSpace(c.Param("type")),
		ID:   strings.TrimSpace(c.Param("id")),
	}
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.polar.ListProducts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) GetProductByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "invalid_product", "invalid product id"))
		return
	}

	product, err := s.polar.GetProduct(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req billable.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Products) == 0 {
		AbortWithError(c, newValidationError("products", "invalid_products", "at least one product is required"))
		return
	}

	checkout, err := s.billableSvc.Checkout(c.Request.Context(), refFromParams(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordCheckout(c.Request.Context())
	}

	c.JSON(http.StatusCreated, gin.H{"data": checkout})
}

func (s *Server) GetOrCreateCustomer(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.billableSvc.GetOrCreateCustomer(c.Request.Context(), refFromParams(c), strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

func (s *Server) GetSubscription(c *gin.Context) {
	subscription, err := s.billableSvc.Subscription(c.Request.Context(), refFromParams(c), c.Query("type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscription})
}

func (s *Server) GetSubscribed(c *gin.Context) {
	ref := refFromParams(c)
	ctx := c.Request.Context()

	var (
		subscribed bool
		err        error
	)
	switch {
	case c.Query("price_id") != "":
		subscribed, err = s.billableSvc.OnPlan(ctx, ref, c.Query("price_id"))
	case c.Query("product_id") != "":
		subscribed, err = s.billableSvc.SubscribedToProduct(ctx, ref, c.Query("product_id"), c.Query("type"))
	default:
		subscribed, err = s.billableSvc.Subscribed(ctx, ref, c.Query("type"))
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
}

func (s *Server) ListTransactions(c *gin.Context) {
	transactions, err := s.billableSvc.Transactions(c.Request.Context(), refFromParams(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": transactions})
}

func (s *Server) ListOrders(c *gin.Context) {
	orders, err := s.billableSvc.Orders(c.Request.Context(), refFromParams(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) GetOrderInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "invalid_order", "invalid order id"))
		return
	}

	url, err := s.billableSvc.GetInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
