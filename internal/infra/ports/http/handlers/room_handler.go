package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/ArenaChat/internal/usecase"
)

// RoomHandler is the polling HTTP binding of the room service: fetch
// messages since an id, post one message. Same block-list, slow-mode and
// ordering rules as the websocket path, because both go through the same
// usecase.
type RoomHandler struct {
	rooms usecase.RoomUsecase
	polls usecase.PollUsecase
}

func NewRoomHandler(rooms usecase.RoomUsecase, polls usecase.PollUsecase) *RoomHandler {
	return &RoomHandler{rooms: rooms, polls: polls}
}

type postMessageRequest struct {
	Message string `json:"message"`
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	roomID := c.Param("roomId")

	room, count, err := h.rooms.RoomInfo(c.Request().Context(), roomID)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"roomId":     room.RoomID,
		"settings":   room.Settings,
		"userCount":  count,
		"activePoll": h.polls.ActiveForRoom(c.Request().Context(), roomID),
	})
}

func (h *RoomHandler) GetMessages(c echo.Context) error {
	roomID := c.Param("roomId")

	afterID, _ := strconv.ParseInt(c.QueryParam("after"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	messages, err := h.rooms.FetchSince(c.Request().Context(), roomID, afterID, limit)
	if err != nil {
		return h.mapError(c, err)
	}

	wire := make([]events.ChatMessageEvent, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, events.NewChatMessageEvent(msg))
	}

	return c.JSON(http.StatusOK, map[string]any{"messages": wire})
}

func (h *RoomHandler) PostMessage(c echo.Context) error {
	identity, ok := appctx.IdentityFrom(c.Request().Context())
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	msg, err := h.rooms.PostMessage(c.Request().Context(), identity, c.Param("roomId"), req.Message)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, events.NewChatMessageEvent(msg))
}

func (h *RoomHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrDenied) {
		return c.NoContent(http.StatusForbidden)
	}

	if rejected, ok := usecase.AsRejected(err); ok {
		status := http.StatusUnprocessableEntity
		if rejected.Reason == usecase.ReasonSlowMode {
			status = http.StatusTooManyRequests
		}

		return c.JSON(status, map[string]any{
			"reason":            string(rejected.Reason),
			"message":           rejected.Message,
			"retryAfterSeconds": int(rejected.RetryAfter.Seconds()),
		})
	}

	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error, try again"})
}
