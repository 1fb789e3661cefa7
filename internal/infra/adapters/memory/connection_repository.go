package memory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/qrave1/MeetPoint/internal/application/constant"
)

// ConnectionRepository интерфейс для работы с активными websocket сессиями в памяти
type ConnectionRepository interface {
	Add(connectionID string, conn *websocket.Conn)
	Remove(connectionID string)

	// Write отправляет payload одному соединению. Если соединения уже нет,
	// отправка молча пропускается.
	Write(connectionID string, payload any)

	Has(connectionID string) bool

	// Broadcast отправляет payload всем живым соединениям.
	Broadcast(payload any)
}

type safeWS struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWS) writeJSON(payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteJSON(payload)
}

type connectionRepository struct {
	// conns хранит map[connection_id]*ws.conn
	conns map[string]*safeWS

	mu sync.RWMutex
}

func NewConnectionRepository() ConnectionRepository {
	return &connectionRepository{
		conns: make(map[string]*safeWS, 10),
	}
}

func (r *connectionRepository) Add(connectionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connectionID] = &safeWS{conn: conn}
}

func (r *connectionRepository) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, connectionID)
}

func (r *connectionRepository) Write(connectionID string, payload any) {
	ws, ok := r.getSafeWS(connectionID)
	if !ok {
		slog.Debug("write to absent connection", slog.String(constant.ConnectionID, connectionID))
		return
	}

	if err := ws.writeJSON(payload); err != nil {
		slog.Error("write to websocket", slog.String(constant.ConnectionID, connectionID), slog.Any(constant.Error, err))
	}
}

func (r *connectionRepository) Has(connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[connectionID]
	return ok
}

func (r *connectionRepository) Broadcast(payload any) {
	r.mu.RLock()
	targets := make(map[string]*safeWS, len(r.conns))
	for id, ws := range r.conns {
		targets[id] = ws
	}
	r.mu.RUnlock()

	for id, ws := range targets {
		if err := ws.writeJSON(payload); err != nil {
			slog.Error("broadcast to websocket", slog.String(constant.ConnectionID, id), slog.Any(constant.Error, err))
		}
	}
}

func (r *connectionRepository) getSafeWS(connectionID string) (*safeWS, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connectionID]
	return conn, ok
}
