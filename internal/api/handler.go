// Package api exposes the HTTP trigger surface: product CRUD plus the
// on-demand check and sweep endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/checker"
	"github.com/ytopcu/pricewatch/internal/fetcher"
	"github.com/ytopcu/pricewatch/internal/products"
	"github.com/ytopcu/pricewatch/internal/scheduler"
)

const historyDisplayLimit = 10

// Store is the persistence surface the handlers need. *products.Repository
// satisfies it.
type Store interface {
	InsertProduct(ctx context.Context, p *products.Product) (int, error)
	ListProducts(ctx context.Context) ([]products.Product, error)
	GetProductByID(ctx context.Context, id int) (*products.Product, error)
	DeleteProduct(ctx context.Context, id int) error
	GetPriceHistory(ctx context.Context, productID, limit int) ([]products.PriceSample, error)
}

// Sweeper runs checks through the scheduler's single write path.
type Sweeper interface {
	CheckAndPersist(ctx context.Context, p *products.Product) (checker.Outcome, error)
	RunSweep(ctx context.Context) (scheduler.SweepResult, error)
}

type Handler struct {
	store   Store
	sweeper Sweeper
	log     *zap.Logger
}

func NewHandler(store Store, sweeper Sweeper, log *zap.Logger) *Handler {
	return &Handler{store: store, sweeper: sweeper, log: log}
}

// Register mounts all routes under /api.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.POST("/products", h.CreateProduct)
		api.GET("/products/:id", h.GetProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.GET("/products/:id/history", h.GetPriceHistory)
		api.POST("/products/:id/check", h.CheckProduct)
		api.POST("/sweep", h.RunSweep)
	}
}

type createProductRequest struct {
	URL         string `json:"url" binding:"required,url"`
	NotifyEmail string `json:"notify_email" binding:"omitempty,email"`
}

// CreateProduct starts tracking a URL. It runs one synchronous extraction so
// the product is born with a real title and, when the page cooperates, an
// initial price sample. A page that yields nothing still creates the product
// with a zero-valued start, never a fake price row.
func (h *Handler) CreateProduct(c *gin.Context) {
	var input createProductRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ctx := c.Request.Context()

	p := &products.Product{URL: input.URL, Name: "Unknown Product", NotifyEmail: input.NotifyEmail}
	if _, err := h.store.InsertProduct(ctx, p); err != nil {
		h.log.Error("insert product failed", zap.String("url", input.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to insert"})
		return
	}

	// The initial check also backfills the real title and currency via the
	// snapshot write. A page that yields nothing leaves the zero-valued start.
	if _, err := h.sweeper.CheckAndPersist(ctx, p); err != nil {
		h.log.Warn("initial extraction failed, product created without price",
			zap.Int("product_id", p.ID), zap.Error(err))
	}

	created, err := h.store.GetProductByID(ctx, p.ID)
	if err != nil {
		c.JSON(http.StatusCreated, p)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.log.Error("list products failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	p, err := h.store.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error("get product failed", zap.Int("product_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error("delete product failed", zap.Int("product_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPriceHistory(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	hist, err := h.store.GetPriceHistory(c.Request.Context(), id, historyDisplayLimit)
	if err != nil {
		h.log.Error("get price history failed", zap.Int("product_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, hist)
}

// CheckProduct runs a manual "check now" through the same persist-and-notify
// path as the scheduled sweep.
func (h *Handler) CheckProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error("get product failed", zap.Int("product_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}

	out, err := h.sweeper.CheckAndPersist(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, checker.ErrCheckInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "check already in flight"})
		case isFetchError(err):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			h.log.Error("manual check failed", zap.Int("product_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "check failed"})
		}
		return
	}

	resp := gin.H{"updated": out.Updated}
	if out.Updated {
		resp["price"] = out.NewPrice
		resp["currency"] = out.NewCurrency
	}
	if out.DroppedFrom != nil {
		resp["dropped_from"] = out.DroppedFrom
	}
	c.JSON(http.StatusOK, resp)
}

// RunSweep triggers a full sweep and reports the aggregate counts.
func (h *Handler) RunSweep(c *gin.Context) {
	res, err := h.sweeper.RunSweep(c.Request.Context())
	if err != nil {
		h.log.Error("sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func isFetchError(err error) bool {
	var fe *fetcher.FetchError
	return errors.As(err, &fe)
}
