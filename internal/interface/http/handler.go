package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
	"github.com/yanqian/power-predictor/pkg/metrics"
)

// Handler wires the HTTP transport to the prediction form service.
type Handler struct {
	svc     prediction.Service
	counter *metrics.OutcomeCounter
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc prediction.Service, counter *metrics.OutcomeCounter, logger *slog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		counter: counter,
		logger:  logger.With("component", "http.handler"),
	}
}

type sessionResponse struct {
	prediction.Session
	CanSubmit bool `json:"canSubmit"`
}

func toSessionResponse(s prediction.Session) sessionResponse {
	return sessionResponse{Session: s, CanSubmit: s.Outcome.Status != prediction.StatusSubmitting}
}

// OpenSession starts a new form session.
func (h *Handler) OpenSession(c *gin.Context) {
	session, err := h.svc.Open(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(session))
}

// GetSession returns the current fields and outcome of a session.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.svc.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

// UpdateFields applies one or more field-change events.
func (h *Handler) UpdateFields(c *gin.Context) {
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "body must be an object of field names to string values", err))
		return
	}
	changes := make(map[prediction.Field]string, len(body))
	for name, value := range body {
		changes[prediction.Field(name)] = value
	}

	session, err := h.svc.UpdateFields(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

// SubmitSession runs the submission pipeline and returns the resolved session.
func (h *Handler) SubmitSession(c *gin.Context) {
	session, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

// Predict is the stateless variant: raw input in, outcome out.
func (h *Handler) Predict(c *gin.Context) {
	var raw prediction.RawInput
	if err := c.ShouldBindJSON(&raw); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "form fields must be strings", err))
		return
	}

	outcome := h.svc.Predict(c.Request.Context(), raw)
	switch outcome.Status {
	case prediction.StatusSuccess:
		c.JSON(http.StatusOK, outcome)
	case prediction.StatusValidationError:
		abortWithError(c, NewHTTPError(http.StatusBadRequest, string(outcome.Status), outcome.Message, nil))
	case prediction.StatusAPIError:
		abortWithError(c, NewHTTPError(http.StatusBadGateway, string(outcome.Status), outcome.Message, nil))
	default:
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, string(outcome.Status), outcome.Message, nil))
	}
}

// History lists the most recent prediction log records.
func (h *Handler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	records, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Metrics reports outcome counts since process start.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"outcomes": h.counter.Snapshot(),
		"total":    h.counter.Total(),
	})
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
