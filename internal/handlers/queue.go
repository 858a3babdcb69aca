package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"

	"leap/internal/auth"
	"leap/internal/queue"
	"leap/internal/response"
	"leap/internal/ws"
)

// TurnTokens issues and verifies the QR turn tokens.
type TurnTokens interface {
	Issue(userID, venueID string) (string, time.Time, error)
	Parse(token string) (userID, venueID string, err error)
}

// QueueHandler exposes the queue service over HTTP.
type QueueHandler struct {
	service *queue.Service
	tokens  TurnTokens
	hub     *ws.Hub
	logger  *log.Logger
}

func NewQueueHandler(service *queue.Service, tokens TurnTokens, hub *ws.Hub, logger *log.Logger) *QueueHandler {
	return &QueueHandler{service: service, tokens: tokens, hub: hub, logger: logger}
}

// Register mounts the venue routes on rg, which must already run the auth middleware.
func (h *QueueHandler) Register(rg *gin.RouterGroup, venues VenueChecker) {
	venue := rg.Group("/queue/:venueId", RequireVenue(venues, h.logger))
	{
		venue.POST("/open", h.OpenQueueHandler)
		venue.POST("/close", h.CloseQueueHandler)
		venue.GET("/status", h.GetQueueStatusHandler)
		venue.POST("/join", h.JoinQueueHandler)
		venue.POST("/leave", h.LeaveQueueHandler)
		venue.DELETE("/members/:userId", h.RemoveMemberHandler)
		venue.POST("/validate", h.ValidateNextHandler)
		venue.GET("/position", h.GetPositionHandler)
		venue.GET("/turn-token", h.GetTurnTokenHandler)
		venue.GET("/ws", h.QueueWebSocketHandler)
	}
	rg.GET("/ws", h.AllVenuesWebSocketHandler)
}

type openQueueRequest struct {
	MaxQueueLength int `json:"maxQueueLength" binding:"gte=0" example:"250"`
}

type validateRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// OpenQueueHandler opens or resets a venue's queue
// @Summary		Open queue
// @Description	Opens the venue queue, dropping anyone still waiting. maxQueueLength defaults to 250.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			venueId	path		string				true	"Venue ID"
// @Param			input	body		openQueueRequest	false	"Capacity"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueLengthResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_REQUEST"
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/open [post]
func (h *QueueHandler) OpenQueueHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req openQueueRequest
	// an empty body selects the default capacity
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	length, err := h.service.Open(c.Request.Context(), caller, c.Param("venueId"), req.MaxQueueLength)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.QueueLengthResponse{Message: "queue opened", QueueLength: length})
}

// CloseQueueHandler closes a venue's queue
// @Summary		Close queue
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404	{object}	response.ErrorResponse	"QUEUE_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/close [post]
func (h *QueueHandler) CloseQueueHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.Close(c.Request.Context(), caller, c.Param("venueId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "queue closed"})
}

// GetQueueStatusHandler returns the queue contents
// @Summary		Queue status
// @Description	Users only see open queues; employees only their own venue.
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueStatusResponse
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404	{object}	response.ErrorResponse	"QUEUE_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/status [get]
func (h *QueueHandler) GetQueueStatusHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), caller, c.Param("venueId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.QueueStatusResponse{
		VenueID:   status.VenueID,
		IsOpen:    status.IsOpen,
		MaxLength: status.MaxLength,
		Length:    status.Length,
		Members:   status.Members,
	})
}

// JoinQueueHandler adds the caller to the back of the queue
// @Summary		Join queue
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueLengthResponse
// @Failure		400	{object}	response.ErrorResponse	"QUEUE_NOT_OPEN, QUEUE_FULL, RECENTLY_SERVED"
// @Failure		409	{object}	response.ErrorResponse	"ALREADY_IN_QUEUE"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/join [post]
func (h *QueueHandler) JoinQueueHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	venueID := c.Param("venueId")
	if err := queue.Authorize(queue.OpJoin, caller, venueID); err != nil {
		h.writeError(c, err)
		return
	}
	length, err := h.service.Join(c.Request.Context(), venueID, caller.UserID, caller.DisplayName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.QueueLengthResponse{Message: "joined queue", QueueLength: length})
}

// LeaveQueueHandler removes the caller from the queue
// @Summary		Leave queue
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueLengthResponse
// @Failure		400	{object}	response.ErrorResponse	"QUEUE_NOT_OPEN, NOT_IN_QUEUE"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/leave [post]
func (h *QueueHandler) LeaveQueueHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	venueID := c.Param("venueId")
	if err := queue.Authorize(queue.OpLeave, caller, venueID); err != nil {
		h.writeError(c, err)
		return
	}
	length, err := h.service.Leave(c.Request.Context(), venueID, caller.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.QueueLengthResponse{Message: "left queue", QueueLength: length})
}

// RemoveMemberHandler lets staff take someone out of the queue
// @Summary		Remove member
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Param			userId	path	string	true	"Member to remove"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueLengthResponse
// @Failure		400	{object}	response.ErrorResponse	"QUEUE_NOT_OPEN"
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404	{object}	response.ErrorResponse	"QUEUE_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/members/{userId} [delete]
func (h *QueueHandler) RemoveMemberHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	length, err := h.service.RemoveMember(c.Request.Context(), caller, c.Param("venueId"), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.QueueLengthResponse{Message: "member removed", QueueLength: length})
}

// ValidateNextHandler serves the member at the front of the queue
// @Summary		Validate next
// @Description	Accepts either the scanned turn token or the member's user id.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			venueId	path	string			true	"Venue ID"
// @Param			input	body	validateRequest	true	"Token or user id"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_REQUEST, QUEUE_NOT_OPEN, INVALID_TURN"
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404	{object}	response.ErrorResponse	"QUEUE_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/validate [post]
func (h *QueueHandler) ValidateNextHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.UserID == "" && req.Token == "") {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "userId or token required",
		})
		return
	}

	venueID := c.Param("venueId")
	claimed := req.UserID
	if req.Token != "" {
		userID, tokenVenue, err := h.tokens.Parse(req.Token)
		if err != nil || tokenVenue != venueID || (claimed != "" && claimed != userID) {
			h.logger.Info().Str("venue_id", venueID).Str("by", caller.UserID).Msg("rejected turn token")
			// an empty claim never matches, so the service reports its own earlier failures first
			userID = ""
		}
		claimed = userID
	}

	if err := h.service.ValidateNext(c.Request.Context(), caller, venueID, claimed); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "member validated"})
}

// GetPositionHandler tells the caller their place in line
// @Summary		Queue position
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.PositionResponse
// @Failure		400	{object}	response.ErrorResponse	"QUEUE_NOT_OPEN, NOT_IN_QUEUE"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/position [get]
func (h *QueueHandler) GetPositionHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	venueID := c.Param("venueId")
	if err := queue.Authorize(queue.OpPosition, caller, venueID); err != nil {
		h.writeError(c, err)
		return
	}
	position, length, err := h.service.Position(c.Request.Context(), venueID, caller.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.PositionResponse{VenueID: venueID, Position: position, Length: length})
}

// GetTurnTokenHandler issues the QR token for a waiting member
// @Summary		Turn token
// @Description	Short-lived signed token shown as a QR code and scanned by staff at validation.
// @Tags			queue
// @Produce		json
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Success		200	{object}	response.TurnTokenResponse
// @Failure		400	{object}	response.ErrorResponse	"QUEUE_NOT_OPEN, NOT_IN_QUEUE"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/queue/{venueId}/turn-token [get]
func (h *QueueHandler) GetTurnTokenHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	venueID := c.Param("venueId")
	if err := queue.Authorize(queue.OpTurnToken, caller, venueID); err != nil {
		h.writeError(c, err)
		return
	}
	if _, _, err := h.service.Position(c.Request.Context(), venueID, caller.UserID); err != nil {
		h.writeError(c, err)
		return
	}

	token, expires, err := h.tokens.Issue(caller.UserID, venueID)
	if err != nil {
		h.logger.Error().Err(err).Str("venue_id", venueID).Str("user_id", caller.UserID).Msg("failed to issue turn token")
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "TOKEN_ERROR",
			Message: "could not issue turn token",
		})
		return
	}
	c.JSON(http.StatusOK, response.TurnTokenResponse{Token: token, ExpiresAt: expires.Unix()})
}

// QueueWebSocketHandler streams one venue's queue events
// @Summary		Venue event stream
// @Description	Websocket carrying queue-status and queue-updated events as {"event","data"} frames.
// @Tags			queue
// @Param			venueId	path	string	true	"Venue ID"
// @Security		BearerAuth
// @Router			/api/queue/{venueId}/ws [get]
func (h *QueueHandler) QueueWebSocketHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	venueID := c.Param("venueId")
	if err := queue.Authorize(queue.OpStatus, caller, venueID); err != nil {
		h.writeError(c, err)
		return
	}
	// users may only watch queues they may read
	if caller.Role == queue.RoleUser {
		if _, err := h.service.Status(c.Request.Context(), caller, venueID); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.hub.Serve(c, venueID)
}

// AllVenuesWebSocketHandler streams every venue's events to admins
// @Summary		All venues event stream
// @Tags			queue
// @Security		BearerAuth
// @Router			/api/ws [get]
func (h *QueueHandler) AllVenuesWebSocketHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	if caller.Role != queue.RoleAdmin {
		h.writeError(c, queue.ErrForbidden)
		return
	}
	h.hub.Serve(c, ws.AllVenues)
}

// HealthHandler reports liveness
// @Summary	Health check
// @Tags		system
// @Produce	json
// @Success	200	{object}	response.SuccessResponse
// @Router		/health [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "ok"})
}

// VenueChecker is the part of the venue directory the routes need.
type VenueChecker interface {
	VenueExists(ctx context.Context, venueID string) (bool, error)
}

// RequireVenue rejects requests for venues the directory does not know. A nil checker accepts
// every venue.
func RequireVenue(venues VenueChecker, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if venues == nil {
			c.Next()
			return
		}
		venueID := c.Param("venueId")
		exists, err := venues.VenueExists(c.Request.Context(), venueID)
		if err != nil {
			logger.Error().Err(err).Str("venue_id", venueID).Msg("venue lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ErrorResponse{
				Code:      "STORE_UNAVAILABLE",
				Message:   "venue directory unavailable",
				Retryable: true,
			})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "VENUE_NOT_FOUND",
				Message: "venue not found",
			})
			return
		}
		c.Next()
	}
}

func callerOrAbort(c *gin.Context) (queue.Caller, bool) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "NO_AUTH_HEADER",
			Message: "authorization required",
		})
	}
	return caller, ok
}

// errorStatus maps a queue error kind to its HTTP status and code.
func errorStatus(kind queue.Kind) (int, string) {
	switch kind {
	case queue.KindNotFound:
		return http.StatusNotFound, "QUEUE_NOT_FOUND"
	case queue.KindForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case queue.KindInvalidState:
		return http.StatusBadRequest, "QUEUE_NOT_OPEN"
	case queue.KindAlreadyJoined:
		return http.StatusConflict, "ALREADY_IN_QUEUE"
	case queue.KindNotInQueue:
		return http.StatusBadRequest, "NOT_IN_QUEUE"
	case queue.KindFull:
		return http.StatusBadRequest, "QUEUE_FULL"
	case queue.KindInvalidTurn:
		return http.StatusBadRequest, "INVALID_TURN"
	case queue.KindRecentlyServed:
		return http.StatusBadRequest, "RECENTLY_SERVED"
	case queue.KindStoreUnavailable:
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func (h *QueueHandler) writeError(c *gin.Context, err error) {
	status, code := errorStatus(queue.KindOf(err))
	body := response.ErrorResponse{
		Code:      code,
		Message:   err.Error(),
		Retryable: queue.IsRetryable(err),
	}
	var qe *queue.Error
	if errors.As(err, &qe) {
		body.Message = qe.Message
		if qe.Err != nil {
			body.Details = qe.Err.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("venue_id", c.Param("venueId")).Msg("queue operation failed")
	}
	c.AbortWithStatusJSON(status, body)
}
