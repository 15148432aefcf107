package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/sensor"
	"parking-gate-service/internal/service"
)

type Handler struct {
	adminService *service.AdminService
	log          zerolog.Logger
}

func NewHandler(adminService *service.AdminService, log zerolog.Logger) *Handler {
	return &Handler{
		adminService: adminService,
		log:          log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.health)

	// Camera ingestion
	ingest := r.Group("/api/v1")
	ingest.Use(authMiddleware, RequireRole(RoleCamera, RoleAdmin))
	{
		ingest.POST("/anpr/events", h.createANPREvent)
	}

	// Operator endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware, RequireRole(RoleAdmin))
	{
		protected.GET("/plate-logs", h.listPlateLogs)
		protected.POST("/plate-logs/:plate/mark-paid", h.markPaid)
		protected.GET("/plate-logs/:plate/events", h.listLaneEvents)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createANPREvent(c *gin.Context) {
	var payload parking.EventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.adminService.ProcessIncomingEvent(c.Request.Context(), payload)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, successResponse(result))
}

func (h *Handler) listPlateLogs(c *gin.Context) {
	var plateQuery *string
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}

	var open *bool
	if o := c.Query("open"); o != "" {
		parsed, err := strconv.ParseBool(o)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("open must be true or false"))
			return
		}
		open = &parsed
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := h.adminService.FindRecords(c.Request.Context(), plateQuery, open, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(records))
}

type markPaidRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (h *Handler) markPaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	payment, err := h.adminService.MarkPaid(c.Request.Context(), c.Param("plate"), req.Amount)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(payment))
}

func (h *Handler) listLaneEvents(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.adminService.FindEvents(c.Request.Context(), c.Param("plate"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrLowConfidence):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, parking.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrLaneUnavailable), errors.Is(err, sensor.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
