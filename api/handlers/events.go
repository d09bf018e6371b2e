package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictify/api/middleware"
	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/pkg/models"
)

type EventHandler struct {
	service *catalog.Service
	page    Pagination
	timeout time.Duration
}

func NewEventHandler(service *catalog.Service, page Pagination, timeout time.Duration) *EventHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EventHandler{service: service, page: page, timeout: timeout}
}

// EventListResponse wraps every listing endpoint.
type EventListResponse struct {
	Events []*models.Event `json:"events"`
	Count  int             `json:"count" example:"5"`
}

type InterestResponse struct {
	EventID         string `json:"eventId"`
	InterestedCount int    `json:"interestedCount" example:"121"`
}

func (h *EventHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func listResponse(events []*models.Event) EventListResponse {
	return EventListResponse{Events: events, Count: len(events)}
}

// List godoc
// @Summary List published events
// @Description Filters by search text, category, price, location, probability, size and date
// @Tags Events
// @Produce json
// @Param search query string false "Text in title, description or city"
// @Param category query string false "Comma-separated categories"
// @Param priceType query string false "all, free or paid"
// @Param maxPrice query number false "Upper price bound"
// @Param locationType query string false "PHYSICAL, VIRTUAL or HYBRID"
// @Param city query string false "City"
// @Param minProbability query int false "Lowest probability"
// @Param maxProbability query int false "Highest probability"
// @Param size query string false "small, medium or large"
// @Param date query string false "today, week or month"
// @Param from query string false "First start date (YYYY-MM-DD)"
// @Param to query string false "Last start date (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} EventListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/events [get]
func (h *EventHandler) List(c *gin.Context) {
	filters, err := h.parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	events, err := h.service.List(ctx, filters)
	if err != nil {
		respondError(c, err, "failed to list events")
		return
	}
	c.JSON(http.StatusOK, listResponse(events))
}

func (h *EventHandler) parseFilters(c *gin.Context) (catalog.Filters, error) {
	f := catalog.Filters{
		Search:       strings.TrimSpace(c.Query("search")),
		City:         strings.TrimSpace(c.Query("city")),
		PriceType:    catalog.PriceType(strings.ToLower(c.Query("priceType"))),
		LocationType: models.LocationType(strings.ToUpper(c.Query("locationType"))),
		Size:         models.EventSize(strings.ToLower(c.Query("size"))),
		DatePreset:   catalog.DatePreset(strings.ToLower(c.Query("date"))),
	}

	for _, raw := range c.QueryArray("category") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Categories = append(f.Categories, models.EventCategory(strings.ToUpper(part)))
			}
		}
	}

	switch f.PriceType {
	case "", catalog.PriceAll, catalog.PriceFree, catalog.PricePaid:
	default:
		return f, fmt.Errorf("priceType must be one of all, free, paid")
	}
	if f.LocationType != "" && !f.LocationType.IsValid() {
		return f, fmt.Errorf("locationType must be one of PHYSICAL, VIRTUAL, HYBRID")
	}
	switch f.Size {
	case "", models.SizeSmall, models.SizeMedium, models.SizeLarge:
	default:
		return f, fmt.Errorf("size must be one of small, medium, large")
	}
	switch f.DatePreset {
	case "", catalog.DateToday, catalog.DateWeek, catalog.DateMonth:
	default:
		return f, fmt.Errorf("date must be one of today, week, month")
	}

	if raw := c.Query("maxPrice"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			return f, fmt.Errorf("maxPrice must be a non-negative number")
		}
		f.MaxPrice = &price
	}

	var err error
	if f.MinProbability, err = optionalPercent(c, "minProbability"); err != nil {
		return f, err
	}
	if f.MaxProbability, err = optionalPercent(c, "maxProbability"); err != nil {
		return f, err
	}
	if f.From, err = optionalDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = optionalDate(c, "to"); err != nil {
		return f, err
	}

	if f.Limit, err = h.page.limit(c); err != nil {
		return f, err
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
		f.Offset = offset
	}

	return f, nil
}

func optionalPercent(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 100 {
		return nil, fmt.Errorf("%s must be an integer between 0 and 100", name)
	}
	return &v, nil
}

func optionalDate(c *gin.Context, name string) (*models.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD form", name)
	}
	return &d, nil
}

type listFunc func(ctx context.Context, limit int) ([]*models.Event, error)

func (h *EventHandler) limited(c *gin.Context, list listFunc) {
	limit, err := h.page.limit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	events, err := list(ctx, limit)
	if err != nil {
		respondError(c, err, "failed to list events")
		return
	}
	c.JSON(http.StatusOK, listResponse(events))
}

// Upcoming godoc
// @Summary Upcoming events
// @Tags Events
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {object} EventListResponse
// @Router /api/events/upcoming [get]
func (h *EventHandler) Upcoming(c *gin.Context) {
	h.limited(c, h.service.Upcoming)
}

// Featured godoc
// @Summary Featured events
// @Tags Events
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {object} EventListResponse
// @Router /api/events/featured [get]
func (h *EventHandler) Featured(c *gin.Context) {
	h.limited(c, h.service.Featured)
}

// Trending godoc
// @Summary Trending events, most interest first
// @Tags Events
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {object} EventListResponse
// @Router /api/events/trending [get]
func (h *EventHandler) Trending(c *gin.Context) {
	h.limited(c, h.service.Trending)
}

// Search godoc
// @Summary Keyword search
// @Tags Events
// @Produce json
// @Param q query string true "Keyword"
// @Param limit query int false "Page size"
// @Success 200 {object} EventListResponse
// @Router /api/events/search [get]
func (h *EventHandler) Search(c *gin.Context) {
	keyword := c.Query("q")
	h.limited(c, func(ctx context.Context, limit int) ([]*models.Event, error) {
		return h.service.Search(ctx, keyword, limit)
	})
}

// Get godoc
// @Summary Get an event with its prediction
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} ErrorResponse
// @Router /api/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	event, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to fetch event")
		return
	}
	c.JSON(http.StatusOK, event)
}

// GetBySlug godoc
// @Summary Get an event by slug
// @Tags Events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} models.Event
// @Failure 404 {object} ErrorResponse
// @Router /api/events/slug/{slug} [get]
func (h *EventHandler) GetBySlug(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	event, err := h.service.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, err, "failed to fetch event")
		return
	}
	c.JSON(http.StatusOK, event)
}

// MyEvents godoc
// @Summary Events organized by the caller
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} EventListResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/events/my-events [get]
func (h *EventHandler) MyEvents(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	events, err := h.service.ByOrganizer(ctx, middleware.GetActor(c).OrganizerID())
	if err != nil {
		respondError(c, err, "failed to list events")
		return
	}
	c.JSON(http.StatusOK, listResponse(events))
}

// Create godoc
// @Summary Create a draft event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Event true "Event"
// @Success 201 {object} models.Event
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var input models.Event
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	event, err := h.service.Create(ctx, middleware.GetActor(c), &input)
	if err != nil {
		respondError(c, err, "failed to create event")
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Update godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body models.Event true "Event"
// @Success 200 {object} models.Event
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var input models.Event
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	event, err := h.service.Update(ctx, middleware.GetActor(c), c.Param("id"), &input)
	if err != nil {
		respondError(c, err, "failed to update event")
		return
	}
	c.JSON(http.StatusOK, event)
}

// Publish godoc
// @Summary Publish a draft
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Invalid status transition"
// @Router /api/events/{id}/publish [post]
func (h *EventHandler) Publish(c *gin.Context) {
	h.transition(c, h.service.Publish)
}

// Cancel godoc
// @Summary Cancel an event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Invalid status transition"
// @Router /api/events/{id}/cancel [post]
func (h *EventHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *EventHandler) transition(c *gin.Context, apply func(context.Context, catalog.Actor, string) (*models.Event, error)) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	event, err := apply(ctx, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to change event status")
		return
	}
	c.JSON(http.StatusOK, event)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.Delete(ctx, middleware.GetActor(c), c.Param("id")); err != nil {
		respondError(c, err, "failed to delete event")
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterInterest godoc
// @Summary Mark interest in an event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} InterestResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already interested or event not published"
// @Router /api/events/{id}/interest [post]
func (h *EventHandler) RegisterInterest(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id := c.Param("id")
	count, err := h.service.RegisterInterest(ctx, middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err, "failed to register interest")
		return
	}
	c.JSON(http.StatusOK, InterestResponse{EventID: id, InterestedCount: count})
}
