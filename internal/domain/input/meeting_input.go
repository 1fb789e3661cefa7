package input

import "github.com/google/uuid"

type CreateMeetingInput struct {
	RoomID string
	Title  string
	HostID uuid.UUID
}

type UpdateMeetingInput struct {
	RoomID string
	Title  string
	HostID uuid.UUID
}
