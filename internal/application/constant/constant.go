package constant

// Общие ключи для атрибутов slog
const (
	Error        = "error"
	UserID       = "user_id"
	UserName     = "user_name"
	ConnectionID = "connection_id"
	RoomID       = "room_id"
	EventType    = "event_type"
)
