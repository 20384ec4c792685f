package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/catalog"
	"github.com/caseloft/store-service/internal/discount"
)

// ProductHandler serves the public catalog reads and the admin product CRUD.
type ProductHandler struct {
	store  *catalog.Store
	logger zerolog.Logger
}

// NewProductHandler creates a product handler over the given store. The store
// may be nil when no database is configured; every endpoint then answers 503.
func NewProductHandler(store *catalog.Store, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{store: store, logger: logger}
}

func (h *ProductHandler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog storage not configured"})
		return false
	}
	return true
}

// ProductRequest represents the admin payload for creating or updating a product
type ProductRequest struct {
	Name              string   `json:"name" binding:"required" jsonschema:"required"`
	Description       string   `json:"description"`
	Price             int64    `json:"price" binding:"required,min=1" jsonschema:"required,minimum=1"`
	Currency          string   `json:"currency"`
	ImageURL          string   `json:"imageUrl"`
	Compatibility     []string `json:"compatibility"`
	Stock             int      `json:"stock" binding:"min=0" jsonschema:"minimum=0"`
	Category          string   `json:"category"`
	DiscountApplied   string   `json:"discountApplied" jsonschema:"enum=Y,enum=N"`
	DiscountRate      int      `json:"discountRate" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
	DiscountStartDate string   `json:"discountStartDate"`
	DiscountEndDate   string   `json:"discountEndDate"`
}

func (r *ProductRequest) toProduct() *catalog.Product {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	compatibility := r.Compatibility
	if compatibility == nil {
		compatibility = []string{}
	}
	return &catalog.Product{
		Name:              r.Name,
		Description:       r.Description,
		Price:             r.Price,
		Currency:          currency,
		ImageURL:          r.ImageURL,
		Compatibility:     compatibility,
		Stock:             r.Stock,
		Category:          r.Category,
		DiscountApplied:   r.DiscountApplied,
		DiscountRate:      r.DiscountRate,
		DiscountStartDate: r.DiscountStartDate,
		DiscountEndDate:   r.DiscountEndDate,
	}
}

// List returns the whole catalog. Each product's discount state is evaluated
// against the current instant, so a window the sweep has not caught up with
// yet still renders correctly.
// GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	now := time.Now()
	for i := range products {
		discount.Normalize(&products[i], now)
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// Get returns one product.
// GET /api/products/:productId
func (h *ProductHandler) Get(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch product")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	discount.Normalize(p, time.Now())
	c.JSON(http.StatusOK, p)
}

// Create inserts a new product.
// POST /admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := req.toProduct()
	discount.Normalize(p, time.Now())

	if err := h.store.Create(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Update rewrites a product's catalog fields.
// PUT /admin/products/:productId
func (h *ProductHandler) Update(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := req.toProduct()
	p.ID = c.Param("productId")
	discount.Normalize(p, time.Now())

	ok, err := h.store.Update(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete removes a product.
// DELETE /admin/products/:productId
func (h *ProductHandler) Delete(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id := c.Param("productId")
	ok, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully", "productId": id})
}
