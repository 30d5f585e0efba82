package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commerce-cms/internal/access"
	"commerce-cms/internal/i18n"
	"commerce-cms/internal/models"
	"commerce-cms/internal/service"
	"commerce-cms/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const orderSecretHeader = "X-ORDER-SECRET"

// Handler contains HTTP handlers
type Handler struct {
	orderService   *service.OrderService
	catalogService *service.CatalogService
	orderSecret    string
}

// NewHandler creates a new HTTP handler. orderSecret gates the public order
// creation endpoint; empty means the endpoint is unconfigured.
func NewHandler(orderService *service.OrderService, catalogService *service.CatalogService, orderSecret string) *Handler {
	return &Handler{
		orderService:   orderService,
		catalogService: catalogService,
		orderSecret:    orderSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/public")
	{
		public.POST("/orders", h.createPublicOrder)
		public.GET("/products", h.listPublicProducts)
		public.GET("/products/:slug", h.getPublicProduct)
		public.GET("/posts", h.listPublicPosts)
		public.GET("/posts/:slug", h.getPublicPost)
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id", h.updateOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.POST("/products", h.createProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.POST("/posts", h.createPost)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createPublicOrder handles storefront order creation, gated by a shared
// secret header instead of a user session. Status is forced to pending.
func (h *Handler) createPublicOrder(c *gin.Context) {
	if h.orderSecret == "" {
		util.PublicOrdersRejectedTotal.WithLabelValues("unconfigured").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "ORDER_SECRET is not configured",
		})
		return
	}

	provided := c.GetHeader(orderSecretHeader)
	if provided == "" || provided != h.orderSecret {
		util.PublicOrdersRejectedTotal.WithLabelValues("unauthorized").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "unauthorized",
		})
		return
	}

	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	// Public creates never choose their own status.
	req.Status = models.OrderStatusPending

	order, err := h.orderService.CreateOrderTrusted(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// createOrder handles authenticated order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID, identityFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// listOrders filters orders by customer phone, or looks one up by its
// order number.
func (h *Handler) listOrders(c *gin.Context) {
	if number := c.Query("number"); number != "" {
		order, err := h.orderService.GetOrderByNumber(c.Request.Context(), number, identityFrom(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": []interface{}{order}})
		return
	}

	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone or number query parameter is required"})
		return
	}

	orders, err := h.orderService.ListOrdersByPhone(c.Request.Context(), phone, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// updateOrder applies a partial order patch. Status transitions, including
// into paid, flow through here.
func (h *Handler) updateOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req service.UpdateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), orderID, &req, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// deleteOrder removes an order
func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), orderID, identityFrom(c)); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "order not found",
			"details": err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// createProduct handles admin product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// updateProduct handles admin product updates
func (h *Handler) updateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), productID, &req, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// createPost handles admin post creation
func (h *Handler) createPost(c *gin.Context) {
	var req service.PostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	post, err := h.catalogService.CreatePost(c.Request.Context(), &req, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// getPublicProduct serves a product with resolved SEO
func (h *Handler) getPublicProduct(c *gin.Context) {
	doc, err := h.catalogService.GetPublicProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// listPublicProducts serves the public product list
func (h *Handler) listPublicProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	products, err := h.catalogService.ListPublicProducts(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": products})
}

// getPublicPost serves a post with resolved SEO
func (h *Handler) getPublicPost(c *gin.Context) {
	doc, err := h.catalogService.GetPublicPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// listPublicPosts serves the public post list
func (h *Handler) listPublicPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	posts, err := h.catalogService.ListPublicPosts(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": posts})
}

// respondError maps service errors onto the JSON error envelope, localizing
// user-correctable messages.
func (h *Handler) respondError(c *gin.Context, err error) {
	loc := localeFrom(c)

	if errors.Is(err, service.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Localized(loc),
			"code":      "insufficient_stock",
			"available": stockErr.Available,
			"required":  stockErr.Required,
		})
		return
	}

	var valErr *service.ValidationError
	if errors.As(err, &valErr) {
		status := http.StatusBadRequest
		if valErr.Code == service.CodeVariantNotFound || valErr.Code == service.CodeProductNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error": valErr.Localized(loc),
			"code":  valErr.Code,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal error",
		"details": err.Error(),
	})
}

// identityFrom reads the acting identity injected by the upstream auth
// layer. Token verification happens there, not here.
func identityFrom(c *gin.Context) *access.Identity {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil {
		return nil
	}

	role := access.Role(c.GetHeader("X-User-Role"))
	if role == "" {
		role = access.RoleUser
	}

	return &access.Identity{UserID: userID, Role: role}
}

// localeFrom resolves the response locale (?locale= wins, then the first
// Accept-Language tag), defaulting to English.
func localeFrom(c *gin.Context) i18n.Locale {
	if q := c.Query("locale"); q != "" {
		return i18n.ParseLocale(q)
	}

	header := c.GetHeader("Accept-Language")
	if header != "" {
		first := strings.TrimSpace(strings.Split(header, ",")[0])
		if idx := strings.IndexAny(first, "-;"); idx > 0 {
			first = first[:idx]
		}
		return i18n.ParseLocale(first)
	}

	return i18n.LocaleEN
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
