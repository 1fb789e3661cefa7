package runtime

import "time"

// KnownUser - агрегированная запись присутствия, одна на каждый user_id,
// замеченный за время жизни процесса.
type KnownUser struct {
	UserID      string
	DisplayName string

	// ConnectionID пустой, когда пользователь оффлайн.
	ConnectionID string
	Online       bool
	LastSeenAt   *time.Time
}
