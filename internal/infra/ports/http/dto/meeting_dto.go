package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/MeetPoint/internal/domain/models"
)

type CreateMeetingRequest struct {
	RoomID string `json:"room_id"`
	Title  string `json:"title"`
}

type UpdateMeetingRequest struct {
	Title string `json:"title"`
}

type MeetingResponse struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    string     `json:"room_id"`
	Title     string     `json:"title"`
	HostID    uuid.UUID  `json:"host_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  int64      `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

type ListMeetingsResponse struct {
	Meetings []MeetingResponse `json:"meetings"`
}

func NewMeetingResponseFromModel(m *models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Title:     m.Title,
		HostID:    m.HostID,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Duration:  m.Duration,
		CreatedAt: m.CreatedAt,
	}
}
