package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/ilindan-dev/auction-watchlist/internal/service"
	"github.com/ilindan-dev/auction-watchlist/internal/watchlist"
	"github.com/rs/zerolog"
)

const (
	defaultRequestTimeout = 5 * time.Second

	// RemovedMessageKey explains why a watched listing could not be opened.
	RemovedMessageKey = "watchlist.removed"
)

// Watchlist is the watch cache as seen by the API.
type Watchlist interface {
	IsWatching(userID, listingID uuid.UUID) bool
	WatchedListingIDs(userID uuid.UUID) []uuid.UUID
	WatchedListings(userID uuid.UUID) []*model.Listing
	WatchlistCount(userID uuid.UUID) int
	Live(listingID uuid.UUID) (*model.Listing, bool)
	Add(userID, listingID uuid.UUID, cb async.Callback[bool])
	Remove(userID, listingID uuid.UUID, cb async.Callback[bool])
}

// Notifications queues messages for users.
type Notifications interface {
	Queue(userID uuid.UUID, messageKey string, placeholders map[string]string)
}

// Localizer renders message keys.
type Localizer interface {
	Render(key string, placeholders map[string]string) string
}

// Options tune the handlers.
type Options struct {
	WatchlistEnabled bool
	RequestTimeout   time.Duration
}

// Handlers serves the watchlist, notification, session and listing endpoints.
type Handlers struct {
	watchlist     Watchlist
	notifications Notifications
	lifecycle     *service.LifecycleService
	localizer     Localizer
	opts          Options
	logger        zerolog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(
	watchlist Watchlist,
	notifications Notifications,
	lifecycle *service.LifecycleService,
	localizer Localizer,
	opts Options,
	logger *zerolog.Logger,
) *Handlers {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Handlers{
		watchlist:     watchlist,
		notifications: notifications,
		lifecycle:     lifecycle,
		localizer:     localizer,
		opts:          opts,
		logger:        logger.With().Str("layer", "http_handler").Logger(),
	}
}

// RegisterRoutes sets up the routing for the API.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		users := api.Group("/users/:user_id", h.requireUserID)

		watched := users.Group("/watchlist", h.requireWatchlist)
		watched.GET("", h.ListWatchlist)
		watched.GET("/ids", h.ListWatchlistIDs)
		watched.GET("/count", h.CountWatchlist)
		watched.GET("/:listing_id", h.OpenWatchedListing)
		watched.PUT("/:listing_id", h.Watch)
		watched.DELETE("/:listing_id", h.Unwatch)

		users.POST("/notifications", h.QueueNotification)

		api.POST("/sessions", h.JoinSession)
		api.DELETE("/sessions/:user_id", h.requireUserID, h.LeaveSession)

		api.POST("/listings", h.CreateListing)
		api.POST("/listings/:listing_id/end", h.EndListing)
	}
}

func (h *Handlers) requireWatchlist(c *gin.Context) {
	if !h.opts.WatchlistEnabled {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "watchlist is not enabled"})
		return
	}
	c.Next()
}

func (h *Handlers) requireUserID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID format"})
		return
	}
	c.Set("user_id", id)
	c.Next()
}

func userIDFrom(c *gin.Context) uuid.UUID {
	return c.MustGet("user_id").(uuid.UUID)
}

func listingIDFrom(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// ListWatchlist returns the user's live watched listings, soonest expiry first.
func (h *Handlers) ListWatchlist(c *gin.Context) {
	listings := h.watchlist.WatchedListings(userIDFrom(c))
	watchlist.SortByExpiry(listings)

	resp := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l))
	}
	c.JSON(http.StatusOK, resp)
}

// ListWatchlistIDs returns the raw watched IDs, stale ones included.
func (h *Handlers) ListWatchlistIDs(c *gin.Context) {
	ids := h.watchlist.WatchedListingIDs(userIDFrom(c))
	if ids == nil {
		ids = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, WatchlistIDsResponse{ListingIDs: ids})
}

// CountWatchlist returns the size of the user's watchlist.
func (h *Handlers) CountWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, WatchlistCountResponse{Count: h.watchlist.WatchlistCount(userIDFrom(c))})
}

// OpenWatchedListing returns one watched listing. A listing that is no longer
// live is dropped from the watchlist and reported gone.
func (h *Handlers) OpenWatchedListing(c *gin.Context) {
	userID := userIDFrom(c)
	listingID, ok := listingIDFrom(c)
	if !ok {
		return
	}

	if !h.watchlist.IsWatching(userID, listingID) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing is not on the watchlist"})
		return
	}

	if l, live := h.watchlist.Live(listingID); live {
		c.JSON(http.StatusOK, toListingResponse(l))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
	defer cancel()
	_, err := async.Await(ctx, func(cb async.Callback[bool]) {
		h.watchlist.Remove(userID, listingID, cb)
	})
	if err != nil {
		h.logger.Error().Err(err).Stringer("listing_id", listingID).Msg("failed to remove stale watch entry")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to remove stale listing"})
		return
	}

	c.JSON(http.StatusGone, ErrorResponse{Error: h.localizer.Render(RemovedMessageKey, nil)})
}

// Watch adds a live listing to the user's watchlist.
func (h *Handlers) Watch(c *gin.Context) {
	userID := userIDFrom(c)
	listingID, ok := listingIDFrom(c)
	if !ok {
		return
	}

	if _, live := h.watchlist.Live(listingID); !live {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
	defer cancel()
	added, err := async.Await(ctx, func(cb async.Callback[bool]) {
		h.watchlist.Add(userID, listingID, cb)
	})
	if err != nil {
		h.logger.Error().Err(err).Stringer("user_id", userID).Stringer("listing_id", listingID).Msg("failed to watch listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to watch listing"})
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, WatchResponse{ListingID: listingID, Added: added})
}

// Unwatch removes a listing from the user's watchlist.
func (h *Handlers) Unwatch(c *gin.Context) {
	userID := userIDFrom(c)
	listingID, ok := listingIDFrom(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
	defer cancel()
	_, err := async.Await(ctx, func(cb async.Callback[bool]) {
		h.watchlist.Remove(userID, listingID, cb)
	})
	if err != nil {
		h.logger.Error().Err(err).Stringer("user_id", userID).Stringer("listing_id", listingID).Msg("failed to unwatch listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to unwatch listing"})
		return
	}

	c.Status(http.StatusNoContent)
}

// QueueNotification stores a message for the user's next session.
func (h *Handlers) QueueNotification(c *gin.Context) {
	var req QueueNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	h.notifications.Queue(userIDFrom(c), req.MessageKey, req.Placeholders)
	c.Status(http.StatusAccepted)
}

// JoinSession announces a connected user.
func (h *Handlers) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	_, err := h.lifecycle.JoinSession(c.Request.Context(), req.UserID, model.Channel(req.Channel), req.Email, req.TelegramChatID)
	if err != nil {
		h.writeServiceError(c, err, "failed to join session")
		return
	}
	c.Status(http.StatusAccepted)
}

// LeaveSession announces a disconnected user.
func (h *Handlers) LeaveSession(c *gin.Context) {
	if err := h.lifecycle.LeaveSession(c.Request.Context(), userIDFrom(c)); err != nil {
		h.writeServiceError(c, err, "failed to leave session")
		return
	}
	c.Status(http.StatusAccepted)
}

// CreateListing persists a listing and puts it into the catalog.
func (h *Handlers) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	listing, err := h.lifecycle.CreateListing(
		c.Request.Context(),
		req.SellerID,
		req.Title,
		req.Price,
		time.Duration(req.DurationSeconds)*time.Second,
	)
	if err != nil {
		h.writeServiceError(c, err, "failed to create listing")
		return
	}

	c.JSON(http.StatusCreated, toListingResponse(listing))
}

// EndListing announces that a listing left circulation.
func (h *Handlers) EndListing(c *gin.Context) {
	listingID, ok := listingIDFrom(c)
	if !ok {
		return
	}

	var req EndListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.lifecycle.EndListing(c.Request.Context(), listingID, req.Reason); err != nil {
		h.writeServiceError(c, err, "failed to end listing")
		return
	}
	c.Status(http.StatusAccepted)
}

// writeServiceError maps service errors to status codes. Internal details are not exposed.
func (h *Handlers) writeServiceError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrDuplicateRecord):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}
