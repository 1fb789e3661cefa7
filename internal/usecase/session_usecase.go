package usecase

import (
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/qrave1/MeetPoint/internal/application/constant"
	"github.com/qrave1/MeetPoint/internal/application/metric"
	"github.com/qrave1/MeetPoint/internal/domain/events"
	"github.com/qrave1/MeetPoint/internal/domain/runtime"
	"github.com/qrave1/MeetPoint/internal/infra/adapters/memory"
)

// SessionUsecase - жизненный цикл одного соединения: connect, identify,
// вход и выход из комнат, сквозной сигналинг и зачистка при disconnect.
//
// Каждая мутация состояния и последующая рассылка выполняются как один
// синхронный шаг; снапшоты берутся под теми же блокировками, что и записи.
type SessionUsecase interface {
	HandleConnect(connID string, conn *websocket.Conn)
	HandleDisconnect(connID string)

	HandleIdentify(connID string, ev events.IdentifyEvent) error
	HandleJoinRoom(connID string, ev events.JoinRoomEvent) error
	HandleLeaveRoom(connID string, ev events.LeaveRoomEvent) error
	HandleLockRoom(connID string, ev events.LockRoomEvent) error
	HandleRemoveUser(connID string, ev events.RemoveUserEvent) error

	HandleCallControl(connID string, t events.Type, ev events.TargetedEvent) error
	HandleSdp(connID string, t events.Type, ev events.SdpEvent) error
	HandleCandidate(connID string, ev events.IceCandidateEvent) error
	HandleChat(connID string, ev events.ChatEvent) error
	HandleRoomInvite(connID string, ev events.RoomInviteEvent) error

	HandlePing(connID string)
}

type sessionUsecase struct {
	connRepo memory.ConnectionRepository
	presence memory.PresenceRepository
	roomRepo memory.RoomRepository

	relay RelayUsecase
}

func NewSessionUsecase(
	connRepo memory.ConnectionRepository,
	presence memory.PresenceRepository,
	roomRepo memory.RoomRepository,
	relay RelayUsecase,
) SessionUsecase {
	return &sessionUsecase{
		connRepo: connRepo,
		presence: presence,
		roomRepo: roomRepo,
		relay:    relay,
	}
}

func (s *sessionUsecase) HandleConnect(connID string, conn *websocket.Conn) {
	s.connRepo.Add(connID, conn)

	s.send(connID, events.TypeConnected, events.ConnectedEvent{ConnectionID: connID})
}

func (s *sessionUsecase) HandleIdentify(connID string, ev events.IdentifyEvent) error {
	if ev.UserID == "" || ev.DisplayName == "" {
		return fmt.Errorf("identify: missing user_id or display_name")
	}

	s.presence.Register(connID, ev.UserID, ev.DisplayName)

	// Полный снапшот всем подключённым, не только новичку.
	s.broadcastSnapshot()

	return nil
}

func (s *sessionUsecase) HandleJoinRoom(connID string, ev events.JoinRoomEvent) error {
	if ev.RoomID == "" {
		return fmt.Errorf("join room: missing room_id")
	}

	participant := runtime.Participant{
		ConnectionID: connID,
		UserID:       ev.UserID,
		DisplayName:  ev.DisplayName,
	}

	if participant.UserID == "" {
		identity, ok := s.presence.Identity(connID)
		if !ok {
			return fmt.Errorf("join room: connection has no identity")
		}

		participant.UserID = identity.UserID
		participant.DisplayName = identity.DisplayName
	}

	result := s.roomRepo.Join(ev.RoomID, participant)

	switch result.Status {
	case memory.RejectedLocked:
		s.send(connID, events.TypeRoomRejected, events.RoomRejectedEvent{
			RoomID: ev.RoomID,
			Reason: events.RejectReasonLocked,
		})
		return nil

	case memory.RejectedRemoved:
		s.send(connID, events.TypeRoomRejected, events.RoomRejectedEvent{
			RoomID: ev.RoomID,
			Reason: events.RejectReasonRemoved,
		})
		return nil
	}

	metric.SetActiveRooms(s.roomRepo.Count())

	s.send(connID, events.TypeRoomJoined, events.RoomJoinedEvent{
		RoomID:       ev.RoomID,
		Participants: toParticipantInfos(result.Others),
		Host:         toParticipantInfo(result.Host),
	})

	s.relay.BroadcastRoom(ev.RoomID, connID, events.TypeUserJoinedRoom, events.RoomPresenceEvent{
		RoomID:       ev.RoomID,
		ConnectionID: connID,
		UserID:       participant.UserID,
		DisplayName:  participant.DisplayName,
	})

	return nil
}

func (s *sessionUsecase) HandleLeaveRoom(connID string, ev events.LeaveRoomEvent) error {
	if ev.RoomID == "" {
		return fmt.Errorf("leave room: missing room_id")
	}

	left, remaining, ok := s.roomRepo.Leave(ev.RoomID, connID)
	if !ok {
		// Выход из комнаты, в которой не состоял - не ошибка.
		return nil
	}

	metric.SetActiveRooms(s.roomRepo.Count())

	s.relay.Fanout(remaining, connID, events.TypeUserLeftRoom, events.RoomPresenceEvent{
		RoomID:       ev.RoomID,
		ConnectionID: connID,
		UserID:       left.UserID,
		DisplayName:  left.DisplayName,
	})

	return nil
}

func (s *sessionUsecase) HandleLockRoom(connID string, ev events.LockRoomEvent) error {
	if ev.RoomID == "" {
		return fmt.Errorf("lock room: missing room_id")
	}

	if !s.roomRepo.IsHost(ev.RoomID, connID) {
		return fmt.Errorf("lock room: connection is not the host of %s", ev.RoomID)
	}

	if !s.roomRepo.SetLocked(ev.RoomID, ev.Locked) {
		return nil
	}

	s.relay.BroadcastRoom(ev.RoomID, connID, events.TypeRoomLocked, events.RoomLockedEvent{
		RoomID: ev.RoomID,
		Locked: ev.Locked,
	})

	return nil
}

func (s *sessionUsecase) HandleRemoveUser(connID string, ev events.RemoveUserEvent) error {
	if ev.RoomID == "" || ev.UserID == "" {
		return fmt.Errorf("remove user: missing room_id or user_id")
	}

	if !s.roomRepo.IsHost(ev.RoomID, connID) {
		return fmt.Errorf("remove user: connection is not the host of %s", ev.RoomID)
	}

	s.roomRepo.MarkRemoved(ev.RoomID, ev.UserID)

	target, ok := s.roomRepo.FindByUser(ev.RoomID, ev.UserID)
	if !ok {
		// Пользователь не в комнате: бан записан, выкидывать некого.
		return nil
	}

	_, remaining, ok := s.roomRepo.Leave(ev.RoomID, target.ConnectionID)
	if !ok {
		return nil
	}

	metric.SetActiveRooms(s.roomRepo.Count())

	s.send(target.ConnectionID, events.TypeRemovedFromRoom, events.RoomPresenceEvent{
		RoomID:       ev.RoomID,
		ConnectionID: target.ConnectionID,
		UserID:       target.UserID,
		DisplayName:  target.DisplayName,
	})

	s.relay.Fanout(remaining, connID, events.TypeUserLeftRoom, events.RoomPresenceEvent{
		RoomID:       ev.RoomID,
		ConnectionID: target.ConnectionID,
		UserID:       target.UserID,
		DisplayName:  target.DisplayName,
	})

	return nil
}

func (s *sessionUsecase) HandleCallControl(connID string, t events.Type, ev events.TargetedEvent) error {
	if ev.To == "" {
		return fmt.Errorf("%s: missing destination", t)
	}

	s.relay.RelayOpaque(connID, ev.To, t, ev.Payload)

	return nil
}

func (s *sessionUsecase) HandleSdp(connID string, t events.Type, ev events.SdpEvent) error {
	if ev.To == "" || len(ev.SDP) == 0 {
		return fmt.Errorf("%s: missing destination or sdp", t)
	}

	s.relay.RelaySdp(connID, ev.To, t, ev.SDP)

	return nil
}

func (s *sessionUsecase) HandleCandidate(connID string, ev events.IceCandidateEvent) error {
	if ev.To == "" || len(ev.Candidate) == 0 {
		return fmt.Errorf("ice candidate: missing destination or candidate")
	}

	s.relay.RelayCandidate(connID, ev.To, ev.Candidate)

	return nil
}

func (s *sessionUsecase) HandleChat(connID string, ev events.ChatEvent) error {
	s.relay.Chat(connID, ev.SenderName, ev.To, ev.Text)

	return nil
}

func (s *sessionUsecase) HandleRoomInvite(connID string, ev events.RoomInviteEvent) error {
	if ev.RoomID == "" || ev.To == "" {
		return fmt.Errorf("room invite: missing room_id or destination")
	}

	inviterName := ev.InviterName
	if inviterName == "" {
		if identity, ok := s.presence.Identity(connID); ok {
			inviterName = identity.DisplayName
		}
	}

	s.relay.Invite(connID, ev.To, ev.RoomID, inviterName)

	return nil
}

func (s *sessionUsecase) HandlePing(connID string) {
	s.send(connID, events.TypePong, nil)
}

// HandleDisconnect - терминальная зачистка, идемпотентная даже при
// частичном состоянии (disconnect до identify).
//
// Порядок важен: сперва реестр, чтобы рассылаемый снапшот уже видел
// пользователя оффлайн.
func (s *sessionUsecase) HandleDisconnect(connID string) {
	user, identified := s.presence.Unregister(connID)

	departures := s.roomRepo.RemoveConnection(connID)

	s.connRepo.Remove(connID)

	for _, d := range departures {
		s.relay.Fanout(d.Remaining, connID, events.TypeUserLeftRoom, events.RoomPresenceEvent{
			RoomID:       d.RoomID,
			ConnectionID: connID,
			UserID:       d.Left.UserID,
			DisplayName:  d.Left.DisplayName,
		})
	}

	metric.SetActiveRooms(s.roomRepo.Count())

	s.broadcastSnapshot()

	left := events.UserLeftEvent{ConnectionID: connID}
	if identified {
		left.UserID = user.UserID
	}

	s.broadcast(events.TypeUserLeft, left)
}

func (s *sessionUsecase) broadcastSnapshot() {
	snapshot := s.presence.Snapshot()

	users := make([]events.KnownUserInfo, 0, len(snapshot))
	for _, u := range snapshot {
		users = append(users, events.KnownUserInfo{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			Online:      u.Online,
			LastSeenAt:  u.LastSeenAt,
		})
	}

	s.broadcast(events.TypeUsersSnapshot, events.UsersSnapshotEvent{Users: users})
}

func (s *sessionUsecase) send(connID string, t events.Type, payload any) {
	msg, err := events.NewMessage(t, payload)
	if err != nil {
		slog.Error("marshal event", slog.Any(constant.Error, err), slog.String(constant.EventType, string(t)))
		return
	}

	s.connRepo.Write(connID, msg)
}

func (s *sessionUsecase) broadcast(t events.Type, payload any) {
	msg, err := events.NewMessage(t, payload)
	if err != nil {
		slog.Error("marshal broadcast event", slog.Any(constant.Error, err), slog.String(constant.EventType, string(t)))
		return
	}

	s.connRepo.Broadcast(msg)
}

func toParticipantInfo(p runtime.Participant) events.ParticipantInfo {
	return events.ParticipantInfo{
		ConnectionID: p.ConnectionID,
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
	}
}

func toParticipantInfos(participants []runtime.Participant) []events.ParticipantInfo {
	infos := make([]events.ParticipantInfo, 0, len(participants))
	for _, p := range participants {
		infos = append(infos, toParticipantInfo(p))
	}

	return infos
}
