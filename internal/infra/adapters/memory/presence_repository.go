package memory

import (
	"sync"
	"time"

	"github.com/qrave1/MeetPoint/internal/domain/runtime"
)

// PresenceRepository - реестр соединений и агрегированного присутствия.
//
// Запись на каждый user_id живёт до конца процесса: онлайн пользователи
// держат идентификатор текущего соединения, оффлайн - момент выхода.
type PresenceRepository interface {
	// Register upserts the presence record for the user, superseding any
	// previous connection of the same user_id. The superseded connection id
	// stays dangling until its own disconnect arrives.
	Register(connectionID, userID, displayName string)

	// Unregister marks the owner of connectionID offline and returns the
	// updated record. Returns false if the connection never identified or
	// was already superseded by a newer one.
	Unregister(connectionID string) (runtime.KnownUser, bool)

	// Identity returns the user currently owning connectionID.
	Identity(connectionID string) (runtime.KnownUser, bool)

	// Resolve maps a user_id to its current connection id.
	Resolve(userID string) (string, bool)

	// Snapshot returns every known user, online and offline, in first-seen order.
	Snapshot() []runtime.KnownUser
}

type presenceRepository struct {
	users  map[string]*runtime.KnownUser
	byConn map[string]string

	// order хранит user_id в порядке первого появления
	order []string

	mu sync.RWMutex
}

func NewPresenceRepository() PresenceRepository {
	return &presenceRepository{
		users:  make(map[string]*runtime.KnownUser),
		byConn: make(map[string]string),
	}
}

func (r *presenceRepository) Register(connectionID, userID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		user = &runtime.KnownUser{UserID: userID}
		r.users[userID] = user
		r.order = append(r.order, userID)
	}

	user.DisplayName = displayName
	user.ConnectionID = connectionID
	user.Online = true
	user.LastSeenAt = nil

	r.byConn[connectionID] = userID
}

func (r *presenceRepository) Unregister(connectionID string) (runtime.KnownUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return runtime.KnownUser{}, false
	}

	delete(r.byConn, connectionID)

	user := r.users[userID]
	if user.ConnectionID != connectionID {
		// Устаревшая сессия: пользователь уже переподключился под новым
		// соединением, его присутствие не трогаем.
		return runtime.KnownUser{}, false
	}

	now := time.Now()
	user.ConnectionID = ""
	user.Online = false
	user.LastSeenAt = &now

	return *user, true
}

func (r *presenceRepository) Identity(connectionID string) (runtime.KnownUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return runtime.KnownUser{}, false
	}

	user := r.users[userID]
	if user.ConnectionID != connectionID {
		return runtime.KnownUser{}, false
	}

	return *user, true
}

func (r *presenceRepository) Resolve(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok || !user.Online {
		return "", false
	}

	return user.ConnectionID, true
}

func (r *presenceRepository) Snapshot() []runtime.KnownUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]runtime.KnownUser, 0, len(r.order))
	for _, userID := range r.order {
		snapshot = append(snapshot, *r.users[userID])
	}

	return snapshot
}
