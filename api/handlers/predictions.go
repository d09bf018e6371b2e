package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/pkg/models"
)

// HistoryStore reads persisted predictions, newest first.
type HistoryStore interface {
	History(ctx context.Context, eventID string, limit int) ([]*models.PredictionRecord, error)
}

type PredictionHandler struct {
	service    *catalog.Service
	history    HistoryStore
	page       Pagination
	maxFactors int
}

func NewPredictionHandler(service *catalog.Service, history HistoryStore, page Pagination, maxFactors int) *PredictionHandler {
	return &PredictionHandler{
		service:    service,
		history:    history,
		page:       page,
		maxFactors: maxFactors,
	}
}

type PredictionResponse struct {
	EventID    string             `json:"eventId"`
	Prediction *models.Prediction `json:"prediction"`
}

type DisplayResponse struct {
	EventID    string             `json:"eventId"`
	Prediction *models.Prediction `json:"prediction"`
	Display    prediction.Display `json:"display"`
}

type FactorsResponse struct {
	Factors []prediction.Definition `json:"factors"`
	Count   int                     `json:"count" example:"10"`
}

type HistoryResponse struct {
	EventID string                     `json:"eventId"`
	History []*models.PredictionRecord `json:"history"`
	Count   int                        `json:"count"`
}

// ForEvent godoc
// @Summary Attendance prediction of an event
// @Tags Predictions
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} PredictionResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/predictions/event/{id} [get]
func (h *PredictionHandler) ForEvent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	p, err := h.service.Predict(ctx, id)
	if err != nil {
		respondError(c, err, "failed to compute prediction")
		return
	}
	c.JSON(http.StatusOK, PredictionResponse{EventID: id, Prediction: p})
}

// Display godoc
// @Summary Prediction with its rendering data
// @Description Meter colors, ranked factor list and outlook summary
// @Tags Predictions
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} DisplayResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/predictions/event/{id}/display [get]
func (h *PredictionHandler) Display(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	p, err := h.service.Predict(ctx, id)
	if err != nil {
		respondError(c, err, "failed to compute prediction")
		return
	}
	c.JSON(http.StatusOK, DisplayResponse{
		EventID:    id,
		Prediction: p,
		Display:    prediction.NewDisplay(p, h.maxFactors),
	})
}

// Factors godoc
// @Summary Factor catalog
// @Tags Predictions
// @Produce json
// @Success 200 {object} FactorsResponse
// @Router /api/predictions/factors [get]
func (h *PredictionHandler) Factors(c *gin.Context) {
	factors := prediction.Factors()
	c.JSON(http.StatusOK, FactorsResponse{Factors: factors, Count: len(factors)})
}

// Score godoc
// @Summary Score ad-hoc attributes
// @Description Rates attributes of an event that is not in the catalog
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.EventAttributes true "Attributes"
// @Success 200 {object} models.Prediction
// @Failure 400 {object} ErrorResponse
// @Router /api/predictions/score [post]
func (h *PredictionHandler) Score(c *gin.Context) {
	var attrs models.EventAttributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.service.Score(attrs)
	if err != nil {
		respondError(c, err, "failed to score attributes")
		return
	}
	c.JSON(http.StatusOK, p)
}

// History godoc
// @Summary Prediction history of an event
// @Tags Predictions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param limit query int false "Records to return"
// @Success 200 {object} HistoryResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/predictions/event/{id}/history [get]
func (h *PredictionHandler) History(c *gin.Context) {
	limit, err := h.page.limit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if _, err := h.service.Get(ctx, id); err != nil {
		respondError(c, err, "failed to fetch event")
		return
	}

	records := []*models.PredictionRecord{}
	if h.history != nil {
		if records, err = h.history.History(ctx, id, limit); err != nil {
			respondError(c, err, "failed to fetch prediction history")
			return
		}
	}
	c.JSON(http.StatusOK, HistoryResponse{EventID: id, History: records, Count: len(records)})
}
