package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/MeetPoint/internal/application/constant"
	"github.com/qrave1/MeetPoint/internal/domain/input"
	"github.com/qrave1/MeetPoint/internal/infra/appctx"
	"github.com/qrave1/MeetPoint/internal/infra/ports/http/dto"
	"github.com/qrave1/MeetPoint/internal/usecase"
)

type MeetingHandler struct {
	meetingUsecase usecase.MeetingUsecase
}

func NewMeetingHandler(meetingUsecase usecase.MeetingUsecase) *MeetingHandler {
	return &MeetingHandler{meetingUsecase: meetingUsecase}
}

func (h *MeetingHandler) ListMeetingsHandler(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user"})
	}

	meetings, err := h.meetingUsecase.GetMeetingsByHost(c.Request().Context(), userID)
	if err != nil {
		slog.Error("get meetings by host", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get meetings"})
	}

	resp := dto.ListMeetingsResponse{
		Meetings: make([]dto.MeetingResponse, 0, len(meetings)),
	}

	for _, m := range meetings {
		resp.Meetings = append(resp.Meetings, dto.NewMeetingResponseFromModel(m))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *MeetingHandler) GetMeetingHandler(c echo.Context) error {
	roomID := c.Param("roomId")

	meeting, err := h.meetingUsecase.GetMeeting(c.Request().Context(), roomID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	return c.JSON(http.StatusOK, dto.NewMeetingResponseFromModel(meeting))
}

func (h *MeetingHandler) CreateMeetingHandler(c echo.Context) error {
	var req dto.CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.RoomID == "" || req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "room_id and title are required"})
	}

	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user"})
	}

	createMeetingInput := &input.CreateMeetingInput{
		RoomID: req.RoomID,
		Title:  req.Title,
		HostID: userID,
	}

	meeting, err := h.meetingUsecase.CreateMeeting(c.Request().Context(), createMeetingInput)
	if err != nil {
		slog.Error("create meeting", slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create meeting"})
	}

	return c.JSON(http.StatusCreated, dto.NewMeetingResponseFromModel(meeting))
}

func (h *MeetingHandler) UpdateMeetingHandler(c echo.Context) error {
	roomID := c.Param("roomId")

	var req dto.UpdateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user"})
	}

	// Менять встречу может только её создатель
	meeting, err := h.meetingUsecase.GetMeeting(c.Request().Context(), roomID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	if meeting.HostID != userID {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "only meeting host can update the meeting"})
	}

	updated, err := h.meetingUsecase.UpdateMeeting(c.Request().Context(), &input.UpdateMeetingInput{
		RoomID: roomID,
		Title:  req.Title,
		HostID: userID,
	})
	if err != nil {
		slog.Error("update meeting", slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update meeting"})
	}

	return c.JSON(http.StatusOK, dto.NewMeetingResponseFromModel(updated))
}

func (h *MeetingHandler) DeleteMeetingHandler(c echo.Context) error {
	roomID := c.Param("roomId")

	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user"})
	}

	meeting, err := h.meetingUsecase.GetMeeting(c.Request().Context(), roomID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	if meeting.HostID != userID {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "only meeting host can delete the meeting"})
	}

	if err := h.meetingUsecase.DeleteMeeting(c.Request().Context(), roomID); err != nil {
		slog.Error("delete meeting", slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete meeting"})
	}

	return c.NoContent(http.StatusOK)
}

func (h *MeetingHandler) StartMeetingHandler(c echo.Context) error {
	roomID := c.Param("roomId")

	meeting, err := h.meetingUsecase.StartMeeting(c.Request().Context(), roomID)
	if err != nil {
		if errors.Is(err, usecase.ErrMeetingAlreadyActive) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "meeting is already started"})
		}

		slog.Error("start meeting", slog.String(constant.RoomID, roomID), slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start meeting"})
	}

	return c.JSON(http.StatusOK, dto.NewMeetingResponseFromModel(meeting))
}

func (h *MeetingHandler) EndMeetingHandler(c echo.Context) error {
	roomID := c.Param("roomId")

	meeting, err := h.meetingUsecase.EndMeeting(c.Request().Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMeetingNotStarted):
			return c.JSON(http.StatusConflict, map[string]string{"error": "meeting is not started"})
		case errors.Is(err, usecase.ErrMeetingAlreadyEnded):
			return c.JSON(http.StatusConflict, map[string]string{"error": "meeting is already ended"})
		}

		slog.Error("end meeting", slog.String(constant.RoomID, roomID), slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to end meeting"})
	}

	return c.JSON(http.StatusOK, dto.NewMeetingResponseFromModel(meeting))
}
