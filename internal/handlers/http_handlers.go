package handlers

import (
	"context"
	"errors"
	"net/http"

	"luckyenvelope/internal/models"
	"luckyenvelope/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
)

// Envelope is the part of the envelope service the HTTP layer calls.
type Envelope interface {
	Check(ctx context.Context, code string) (*models.CheckResult, error)
	UpdateStatus(ctx context.Context, code, requested string) (*models.UpdateResult, error)
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service Envelope
	metrics http.Handler
}

// NewHTTPHandler creates a new HTTPHandler. metricsHandler may be nil.
func NewHTTPHandler(service Envelope, metricsHandler http.Handler) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		metrics: metricsHandler,
	}
}

// RegisterRoutes registers all the application routes. The game endpoints
// are served both at the root and under /api, where the front-end calls them.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
	for _, g := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api")} {
		g.GET("/check", h.Check)
		g.POST("/update", h.Update)
	}
}

// RequestIDMiddleware tags every request with an X-Request-ID, keeping one
// supplied by the caller.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Health answers liveness probes.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Check handles the eligibility lookup for a code.
func (h *HTTPHandler) Check(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing random_code"})
		return
	}

	res, err := h.service.Check(c.Request.Context(), code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type updateRequest struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

// Update handles a status transition. The server decides the prize; any
// prize sent by the client is ignored.
func (h *HTTPHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	res, err := h.service.UpdateStatus(c.Request.Context(), req.Code, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeError translates a service error into a response.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code format"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.As(err, &conflict):
		body := gin.H{"error": "Transition blocked", "currentStatus": conflict.Current}
		if conflict.PrizeID != "" {
			body["prize"] = conflict.PrizeName
			body["prizeId"] = conflict.PrizeID
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, services.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Request is being processed. Please wait."})
	case errors.Is(err, services.ErrOutOfStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "All prizes are out of stock!"})
	default:
		logger.Errorf("Request %s failed: %v", c.GetString("requestID"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
