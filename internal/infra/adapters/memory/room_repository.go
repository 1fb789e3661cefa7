package memory

import (
	"sync"
	"time"

	"github.com/qrave1/MeetPoint/internal/domain/runtime"
)

type JoinStatus int

const (
	Joined JoinStatus = iota
	RejectedLocked
	RejectedRemoved
)

// JoinResult - исход попытки входа в комнату.
//
// Others - участники на момент входа без самого входящего и без хоста,
// хост возвращается отдельно.
type JoinResult struct {
	Status JoinStatus
	Others []runtime.Participant
	Host   runtime.Participant
}

// Departure - комната, затронутая зачисткой отключившегося соединения.
type Departure struct {
	RoomID    string
	Left      runtime.Participant
	Remaining []runtime.Participant
}

// RoomRepository - хранилище ad-hoc комнат.
//
// Все мутации сериализуются одним мьютексом на хранилище, поэтому гонка
// двух входов в несуществующую комнату разрешается детерминированно:
// победитель становится хостом, проигравший проверяется против уже
// созданной комнаты.
type RoomRepository interface {
	Join(roomID string, p runtime.Participant) JoinResult

	// Leave removes the participant with the given connection id.
	// Deletes the room once it empties. No-op if the room or participant
	// is absent.
	Leave(roomID, connectionID string) (runtime.Participant, []runtime.Participant, bool)

	// RemoveConnection scans every room for the connection, used on
	// disconnect. A connection normally sits in at most one room, but the
	// scan tolerates more.
	RemoveConnection(connectionID string) []Departure

	Participants(roomID string) []runtime.Participant
	FindByUser(roomID, userID string) (runtime.Participant, bool)

	IsHost(roomID, connectionID string) bool
	SetLocked(roomID string, locked bool) bool
	MarkRemoved(roomID, userID string) bool

	Count() int
}

type roomRepository struct {
	rooms map[string]*runtime.Room
	mu    sync.RWMutex
}

func NewRoomRepository() RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*runtime.Room),
	}
}

func (r *roomRepository) Join(roomID string, p runtime.Participant) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = &runtime.Room{
			ID:           roomID,
			Host:         p,
			Participants: []runtime.Participant{p},
			Removed:      make(map[string]struct{}),
			CreatedAt:    time.Now(),
		}
		r.rooms[roomID] = room

		return JoinResult{Status: Joined, Host: p}
	}

	if _, removed := room.Removed[p.UserID]; removed {
		return JoinResult{Status: RejectedRemoved}
	}

	if room.Locked && p.UserID != room.Host.UserID {
		return JoinResult{Status: RejectedLocked}
	}

	others := make([]runtime.Participant, 0, len(room.Participants))
	replaced := false

	for i, existing := range room.Participants {
		if existing.ConnectionID == p.ConnectionID {
			room.Participants[i] = p
			replaced = true
			continue
		}

		if existing.ConnectionID != room.Host.ConnectionID {
			others = append(others, existing)
		}
	}

	if !replaced {
		room.Participants = append(room.Participants, p)
	}

	return JoinResult{Status: Joined, Others: others, Host: room.Host}
}

func (r *roomRepository) Leave(roomID, connectionID string) (runtime.Participant, []runtime.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return runtime.Participant{}, nil, false
	}

	left, removed := r.removeParticipant(room, connectionID)
	if !removed {
		return runtime.Participant{}, nil, false
	}

	return left, copyParticipants(room.Participants), true
}

func (r *roomRepository) RemoveConnection(connectionID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure

	for roomID, room := range r.rooms {
		left, removed := r.removeParticipant(room, connectionID)
		if !removed {
			continue
		}

		departures = append(departures, Departure{
			RoomID:    roomID,
			Left:      left,
			Remaining: copyParticipants(room.Participants),
		})
	}

	return departures
}

// removeParticipant вызывается только под уже захваченным mu.
func (r *roomRepository) removeParticipant(room *runtime.Room, connectionID string) (runtime.Participant, bool) {
	for i, p := range room.Participants {
		if p.ConnectionID != connectionID {
			continue
		}

		room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)

		if len(room.Participants) == 0 {
			delete(r.rooms, room.ID)
		}

		return p, true
	}

	return runtime.Participant{}, false
}

func (r *roomRepository) Participants(roomID string) []runtime.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	return copyParticipants(room.Participants)
}

func (r *roomRepository) FindByUser(roomID, userID string) (runtime.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return runtime.Participant{}, false
	}

	for _, p := range room.Participants {
		if p.UserID == userID {
			return p, true
		}
	}

	return runtime.Participant{}, false
}

func (r *roomRepository) IsHost(roomID, connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	return ok && room.Host.ConnectionID == connectionID
}

func (r *roomRepository) SetLocked(roomID string, locked bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	room.Locked = locked
	return true
}

func (r *roomRepository) MarkRemoved(roomID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	room.Removed[userID] = struct{}{}
	return true
}

func (r *roomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func copyParticipants(participants []runtime.Participant) []runtime.Participant {
	out := make([]runtime.Participant, len(participants))
	copy(out, participants)
	return out
}
