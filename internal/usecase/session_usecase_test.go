package usecase

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/qrave1/MeetPoint/internal/domain/events"
	"github.com/qrave1/MeetPoint/internal/infra/adapters/memory"
)

// fakeConnRepo записывает все отправленные события вместо реальных
// websocket соединений.
type fakeConnRepo struct {
	mu sync.Mutex

	conns  map[string]bool
	writes map[string][]events.Message
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{
		conns:  make(map[string]bool),
		writes: make(map[string][]events.Message),
	}
}

func (f *fakeConnRepo) Add(connectionID string, _ *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.conns[connectionID] = true
}

func (f *fakeConnRepo) Remove(connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.conns, connectionID)
}

func (f *fakeConnRepo) Write(connectionID string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.conns[connectionID] {
		return
	}

	msg, ok := payload.(events.Message)
	if !ok {
		return
	}

	f.writes[connectionID] = append(f.writes[connectionID], msg)
}

func (f *fakeConnRepo) Has(connectionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.conns[connectionID]
}

func (f *fakeConnRepo) Broadcast(payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := payload.(events.Message)
	if !ok {
		return
	}

	for connID := range f.conns {
		f.writes[connID] = append(f.writes[connID], msg)
	}
}

func (f *fakeConnRepo) sent(connID string) []events.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]events.Message, len(f.writes[connID]))
	copy(out, f.writes[connID])
	return out
}

func (f *fakeConnRepo) lastOfType(connID string, t events.Type) (events.Message, bool) {
	for _, msg := range f.sent(connID) {
		if msg.Type == t {
			return msg, true
		}
	}
	return events.Message{}, false
}

func decodeInto(t *testing.T, msg events.Message, dst any) {
	t.Helper()

	if err := json.Unmarshal(msg.Data, dst); err != nil {
		t.Fatalf("decode %s payload: %v", msg.Type, err)
	}
}

type fixture struct {
	conns    *fakeConnRepo
	presence memory.PresenceRepository
	rooms    memory.RoomRepository
	session  SessionUsecase
}

func newFixture() *fixture {
	conns := newFakeConnRepo()
	presence := memory.NewPresenceRepository()
	rooms := memory.NewRoomRepository()
	relay := NewRelayUsecase(conns, rooms, presence)

	return &fixture{
		conns:    conns,
		presence: presence,
		rooms:    rooms,
		session:  NewSessionUsecase(conns, presence, rooms, relay),
	}
}

func (fx *fixture) connectIdentified(t *testing.T, connID, userID, name string) {
	t.Helper()

	fx.session.HandleConnect(connID, nil)
	if err := fx.session.HandleIdentify(connID, events.IdentifyEvent{UserID: userID, DisplayName: name}); err != nil {
		t.Fatalf("identify %s: %v", connID, err)
	}
}

func TestConnectSendsConnectionID(t *testing.T) {
	fx := newFixture()

	fx.session.HandleConnect("conn-1", nil)

	msg, ok := fx.conns.lastOfType("conn-1", events.TypeConnected)
	if !ok {
		t.Fatal("expected connected event")
	}

	var ev events.ConnectedEvent
	decodeInto(t, msg, &ev)

	if ev.ConnectionID != "conn-1" {
		t.Errorf("expected conn-1, got %q", ev.ConnectionID)
	}
}

func TestIdentifyBroadcastsSnapshotToEveryone(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	msg, ok := fx.conns.lastOfType("conn-1", events.TypeUsersSnapshot)
	if !ok {
		t.Fatal("expected snapshot on the already connected client")
	}

	var ev events.UsersSnapshotEvent
	decodeInto(t, msg, &ev)

	if len(ev.Users) == 0 {
		t.Fatal("expected users in snapshot")
	}
}

func TestIdentifyRejectsIncompletePayload(t *testing.T) {
	fx := newFixture()
	fx.session.HandleConnect("conn-1", nil)

	tests := []struct {
		name string
		ev   events.IdentifyEvent
	}{
		{"missing user id", events.IdentifyEvent{DisplayName: "Alice"}},
		{"missing display name", events.IdentifyEvent{UserID: "user-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fx.session.HandleIdentify("conn-1", tt.ev); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJoinRoomExcludesSelfAndHostFromOthers(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-host", "user-host", "Host")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")
	fx.connectIdentified(t, "conn-3", "user-3", "Carol")

	joinRoom(t, fx, "conn-host", "user-host", "Host")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")
	joinRoom(t, fx, "conn-3", "user-3", "Carol")

	msg, ok := fx.conns.lastOfType("conn-3", events.TypeRoomJoined)
	if !ok {
		t.Fatal("expected room-joined event")
	}

	var ev events.RoomJoinedEvent
	decodeInto(t, msg, &ev)

	if len(ev.Participants) != 1 || ev.Participants[0].ConnectionID != "conn-2" {
		t.Errorf("expected only conn-2 in participants, got %+v", ev.Participants)
	}
	if ev.Host.ConnectionID != "conn-host" {
		t.Errorf("expected conn-host as host, got %q", ev.Host.ConnectionID)
	}

	// Остальные участники получают уведомление о новичке.
	if _, ok := fx.conns.lastOfType("conn-2", events.TypeUserJoinedRoom); !ok {
		t.Error("expected user-joined-room on conn-2")
	}
}

func joinRoom(t *testing.T, fx *fixture, connID, userID, name string) {
	t.Helper()

	err := fx.session.HandleJoinRoom(connID, events.JoinRoomEvent{
		RoomID:      "room-1",
		UserID:      userID,
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("join room for %s: %v", connID, err)
	}
}

func TestJoinLockedRoomRejected(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-host", "user-host", "Host")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	joinRoom(t, fx, "conn-host", "user-host", "Host")

	if err := fx.session.HandleLockRoom("conn-host", events.LockRoomEvent{RoomID: "room-1", Locked: true}); err != nil {
		t.Fatalf("lock room: %v", err)
	}

	joinRoom(t, fx, "conn-2", "user-2", "Bob")

	msg, ok := fx.conns.lastOfType("conn-2", events.TypeRoomRejected)
	if !ok {
		t.Fatal("expected room-rejected event")
	}

	var ev events.RoomRejectedEvent
	decodeInto(t, msg, &ev)

	if ev.Reason != events.RejectReasonLocked {
		t.Errorf("expected locked reason, got %q", ev.Reason)
	}
}

func TestLockRoomRequiresHost(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-host", "user-host", "Host")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	joinRoom(t, fx, "conn-host", "user-host", "Host")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")

	if err := fx.session.HandleLockRoom("conn-2", events.LockRoomEvent{RoomID: "room-1", Locked: true}); err == nil {
		t.Error("expected non-host lock to fail")
	}
}

func TestRemoveUserKicksAndBansTarget(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-host", "user-host", "Host")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	joinRoom(t, fx, "conn-host", "user-host", "Host")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")

	err := fx.session.HandleRemoveUser("conn-host", events.RemoveUserEvent{RoomID: "room-1", UserID: "user-2"})
	if err != nil {
		t.Fatalf("remove user: %v", err)
	}

	if _, ok := fx.conns.lastOfType("conn-2", events.TypeRemovedFromRoom); !ok {
		t.Error("expected removed-from-room on the target")
	}

	// Повторный вход забаненного должен быть отклонён.
	err = fx.session.HandleJoinRoom("conn-2", events.JoinRoomEvent{RoomID: "room-1", UserID: "user-2", DisplayName: "Bob"})
	if err != nil {
		t.Fatalf("rejoin after removal: %v", err)
	}

	msg, ok := fx.conns.lastOfType("conn-2", events.TypeRoomRejected)
	if !ok {
		t.Fatal("expected room-rejected event")
	}

	var ev events.RoomRejectedEvent
	decodeInto(t, msg, &ev)

	if ev.Reason != events.RejectReasonRemoved {
		t.Errorf("expected removed reason, got %q", ev.Reason)
	}
}

func TestRemoveUserRequiresHost(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-host", "user-host", "Host")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	joinRoom(t, fx, "conn-host", "user-host", "Host")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")

	if err := fx.session.HandleRemoveUser("conn-2", events.RemoveUserEvent{RoomID: "room-1", UserID: "user-host"}); err == nil {
		t.Error("expected non-host removal to fail")
	}
}

func TestDisconnectCleansUpEverything(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	joinRoom(t, fx, "conn-1", "user-1", "Alice")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")

	fx.session.HandleDisconnect("conn-1")

	// Оставшийся участник комнаты узнаёт об уходе.
	if _, ok := fx.conns.lastOfType("conn-2", events.TypeUserLeftRoom); !ok {
		t.Error("expected user-left-room on remaining participant")
	}

	// Снапшот после disconnect показывает пользователя оффлайн.
	msgs := fx.conns.sent("conn-2")
	var lastSnapshot *events.UsersSnapshotEvent
	for _, msg := range msgs {
		if msg.Type != events.TypeUsersSnapshot {
			continue
		}
		var ev events.UsersSnapshotEvent
		decodeInto(t, msg, &ev)
		lastSnapshot = &ev
	}

	if lastSnapshot == nil {
		t.Fatal("expected snapshot broadcast after disconnect")
	}

	for _, u := range lastSnapshot.Users {
		if u.UserID != "user-1" {
			continue
		}
		if u.Online {
			t.Error("expected user-1 to be offline in the final snapshot")
		}
		if u.LastSeenAt == nil {
			t.Error("expected last seen timestamp for offline user")
		}
	}

	var left events.UserLeftEvent
	msg, ok := fx.conns.lastOfType("conn-2", events.TypeUserLeft)
	if !ok {
		t.Fatal("expected user-left broadcast")
	}
	decodeInto(t, msg, &left)
	if left.UserID != "user-1" {
		t.Errorf("expected user-left for user-1, got %q", left.UserID)
	}
}

func TestDisconnectBeforeIdentify(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	fx.session.HandleConnect("conn-1", nil)
	fx.session.HandleDisconnect("conn-1")

	msg, ok := fx.conns.lastOfType("conn-2", events.TypeUserLeft)
	if !ok {
		t.Fatal("expected user-left broadcast")
	}

	var ev events.UserLeftEvent
	decodeInto(t, msg, &ev)

	if ev.ConnectionID != "conn-1" {
		t.Errorf("expected conn-1, got %q", ev.ConnectionID)
	}
	if ev.UserID != "" {
		t.Errorf("expected no user id for anonymous connection, got %q", ev.UserID)
	}
}

func TestSdpRelayStampsSender(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

	err := fx.session.HandleSdp("conn-1", events.TypeOffer, events.SdpEvent{To: "conn-2", SDP: sdp})
	if err != nil {
		t.Fatalf("relay sdp: %v", err)
	}

	msg, ok := fx.conns.lastOfType("conn-2", events.TypeOffer)
	if !ok {
		t.Fatal("expected offer on target")
	}

	var ev events.RelayedSdp
	decodeInto(t, msg, &ev)

	if ev.From != "conn-1" {
		t.Errorf("expected sender conn-1, got %q", ev.From)
	}
	if string(ev.SDP) != string(sdp) {
		t.Errorf("expected sdp passthrough, got %s", ev.SDP)
	}
}

func TestRelayToDeadTargetIsSilentlyDropped(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")

	err := fx.session.HandleCallControl("conn-1", events.TypeCallInvite, events.TargetedEvent{
		To:      "conn-ghost",
		Payload: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("relay to dead target: %v", err)
	}

	if got := fx.conns.sent("conn-ghost"); len(got) != 0 {
		t.Errorf("expected nothing delivered, got %d messages", len(got))
	}
}

func TestRelayResolvesUserIDAfterReconnect(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-old", "user-2", "Bob")

	// Переподключение: user-2 теперь за conn-new.
	fx.conns.Remove("conn-old")
	fx.connectIdentified(t, "conn-new", "user-2", "Bob")

	err := fx.session.HandleCallControl("conn-1", events.TypeCallInvite, events.TargetedEvent{
		To:      "user-2",
		Payload: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("relay by user id: %v", err)
	}

	if _, ok := fx.conns.lastOfType("conn-new", events.TypeCallInvite); !ok {
		t.Error("expected call-invite delivered to the new connection")
	}
}

func TestChatToRoomFansOut(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")
	fx.connectIdentified(t, "conn-3", "user-3", "Carol")

	joinRoom(t, fx, "conn-1", "user-1", "Alice")
	joinRoom(t, fx, "conn-2", "user-2", "Bob")
	joinRoom(t, fx, "conn-3", "user-3", "Carol")

	err := fx.session.HandleChat("conn-1", events.ChatEvent{
		To:         "room-1",
		Text:       "hello",
		SenderName: "Alice",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	for _, connID := range []string{"conn-2", "conn-3"} {
		msg, ok := fx.conns.lastOfType(connID, events.TypeChatMessage)
		if !ok {
			t.Fatalf("expected chat on %s", connID)
		}

		var ev events.ChatDelivery
		decodeInto(t, msg, &ev)

		if ev.Text != "hello" || ev.SenderName != "Alice" || ev.From != "conn-1" {
			t.Errorf("unexpected chat delivery %+v", ev)
		}
		if ev.SentAt.IsZero() {
			t.Error("expected server-side timestamp")
		}
	}

	// Отправитель не получает собственное сообщение.
	if _, ok := fx.conns.lastOfType("conn-1", events.TypeChatMessage); ok {
		t.Error("expected no echo to the sender")
	}
}

func TestChatValidation(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	tests := []struct {
		name string
		ev   events.ChatEvent
	}{
		{"empty text", events.ChatEvent{To: "conn-2", SenderName: "Alice", Text: "   "}},
		{"missing sender name", events.ChatEvent{To: "conn-2", Text: "hello"}},
		{"missing destination", events.ChatEvent{SenderName: "Alice", Text: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fx.session.HandleChat("conn-1", tt.ev); err != nil {
				t.Fatalf("chat validation should drop silently: %v", err)
			}

			if _, ok := fx.conns.lastOfType("conn-2", events.TypeChatMessage); ok {
				t.Error("expected message to be dropped")
			}
		})
	}
}

func TestRoomInviteFallsBackToRegisteredName(t *testing.T) {
	fx := newFixture()
	fx.connectIdentified(t, "conn-1", "user-1", "Alice")
	fx.connectIdentified(t, "conn-2", "user-2", "Bob")

	err := fx.session.HandleRoomInvite("conn-1", events.RoomInviteEvent{RoomID: "room-1", To: "conn-2"})
	if err != nil {
		t.Fatalf("room invite: %v", err)
	}

	msg, ok := fx.conns.lastOfType("conn-2", events.TypeRoomInvite)
	if !ok {
		t.Fatal("expected room-invite on target")
	}

	var ev events.RoomInviteDelivery
	decodeInto(t, msg, &ev)

	if ev.InviterName != "Alice" {
		t.Errorf("expected inviter name from presence, got %q", ev.InviterName)
	}
	if ev.RoomID != "room-1" {
		t.Errorf("expected room-1, got %q", ev.RoomID)
	}
}

func TestPingPong(t *testing.T) {
	fx := newFixture()
	fx.session.HandleConnect("conn-1", nil)

	fx.session.HandlePing("conn-1")

	if _, ok := fx.conns.lastOfType("conn-1", events.TypePong); !ok {
		t.Error("expected pong")
	}
}
