package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/MeetPoint/internal/domain/input"
)

// Meeting - запланированная или идущая встреча. Комната в памяти живёт только
// пока в ней есть участники, Meeting переживает её и хранит итоги.
type Meeting struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	RoomID    string     `json:"room_id" db:"room_id"`
	Title     string     `json:"title" db:"title"`
	HostID    uuid.UUID  `json:"host_id" db:"host_id"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	// Длительность в секундах, заполняется при завершении.
	Duration  int64     `json:"duration" db:"duration"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewMeeting(in *input.CreateMeetingInput) *Meeting {
	return &Meeting{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		Title:     in.Title,
		HostID:    in.HostID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}
