package runtime

import "time"

// Participant - участник комнаты, уникален по ConnectionID.
type Participant struct {
	ConnectionID string
	UserID       string
	DisplayName  string
}

// Room - ad-hoc комната, создаётся первым входом и удаляется, когда пустеет.
//
// Host фиксируется при создании и не передаётся, даже если хост отключился,
// пока другие участники остаются в комнате.
type Room struct {
	ID   string
	Host Participant

	// Participants сохраняет порядок входа.
	Participants []Participant

	Locked bool

	// Removed - user_id, навсегда исключённые из этой комнаты.
	Removed map[string]struct{}

	CreatedAt time.Time
}
