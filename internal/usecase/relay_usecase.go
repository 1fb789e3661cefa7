package usecase

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/qrave1/MeetPoint/internal/application/constant"
	"github.com/qrave1/MeetPoint/internal/application/metric"
	"github.com/qrave1/MeetPoint/internal/domain/events"
	"github.com/qrave1/MeetPoint/internal/domain/runtime"
	"github.com/qrave1/MeetPoint/internal/infra/adapters/memory"
)

// RelayUsecase - stateless маршрутизатор сигнальных сообщений.
//
// Все доставки fire-and-forget: мёртвый адресат молча пропускается,
// отправитель об этом не узнаёт.
type RelayUsecase interface {
	// RelayOpaque forwards a call-control event to a single connection,
	// stamping the sender's connection id. The payload passes through
	// untouched.
	RelayOpaque(senderConnID, to string, t events.Type, payload json.RawMessage)

	// RelaySdp forwards an offer or answer. SDP contents are never inspected.
	RelaySdp(senderConnID, to string, t events.Type, sdp json.RawMessage)

	// RelayCandidate forwards an ICE candidate.
	RelayCandidate(senderConnID, to string, candidate json.RawMessage)

	// Chat wraps and delivers a chat message to a room or to a single
	// connection. Empty text, sender name or destination drops the message
	// without any relay attempt.
	Chat(senderConnID, senderName, to, text string)

	// Invite delivers a room invitation to a single connection.
	Invite(senderConnID, to, roomID, inviterName string)

	// BroadcastRoom sends an event to every participant of the room except
	// the sender's own connection.
	BroadcastRoom(roomID, senderConnID string, t events.Type, payload any)

	// Fanout sends an event to an already captured participant list,
	// excluding the given connection. Used when the room may already be
	// gone (leave and disconnect cleanup).
	Fanout(participants []runtime.Participant, exceptConnID string, t events.Type, payload any)
}

type relayUsecase struct {
	connRepo memory.ConnectionRepository
	roomRepo memory.RoomRepository
	presence memory.PresenceRepository
}

func NewRelayUsecase(
	connRepo memory.ConnectionRepository,
	roomRepo memory.RoomRepository,
	presence memory.PresenceRepository,
) RelayUsecase {
	return &relayUsecase{
		connRepo: connRepo,
		roomRepo: roomRepo,
		presence: presence,
	}
}

func (r *relayUsecase) RelayOpaque(senderConnID, to string, t events.Type, payload json.RawMessage) {
	r.deliver(to, t, events.Relayed{From: senderConnID, Payload: payload})
}

func (r *relayUsecase) RelaySdp(senderConnID, to string, t events.Type, sdp json.RawMessage) {
	r.deliver(to, t, events.RelayedSdp{From: senderConnID, SDP: sdp})
}

func (r *relayUsecase) RelayCandidate(senderConnID, to string, candidate json.RawMessage) {
	r.deliver(to, events.TypeIceCandidate, events.RelayedCandidate{From: senderConnID, Candidate: candidate})
}

func (r *relayUsecase) Chat(senderConnID, senderName, to, text string) {
	if strings.TrimSpace(text) == "" || senderName == "" || to == "" {
		slog.Debug("drop invalid chat message", slog.String(constant.ConnectionID, senderConnID))
		return
	}

	delivery := events.ChatDelivery{
		From:       senderConnID,
		SenderName: senderName,
		Text:       text,
		SentAt:     time.Now(),
	}

	// Адресат - либо комната, либо одно соединение.
	if participants := r.roomRepo.Participants(to); participants != nil {
		r.Fanout(participants, senderConnID, events.TypeChatMessage, delivery)
		return
	}

	r.deliver(to, events.TypeChatMessage, delivery)
}

func (r *relayUsecase) Invite(senderConnID, to, roomID, inviterName string) {
	r.deliver(to, events.TypeRoomInvite, events.RoomInviteDelivery{
		RoomID:      roomID,
		From:        senderConnID,
		InviterName: inviterName,
	})
}

func (r *relayUsecase) BroadcastRoom(roomID, senderConnID string, t events.Type, payload any) {
	r.Fanout(r.roomRepo.Participants(roomID), senderConnID, t, payload)
}

func (r *relayUsecase) Fanout(participants []runtime.Participant, exceptConnID string, t events.Type, payload any) {
	if len(participants) == 0 {
		return
	}

	msg, err := events.NewMessage(t, payload)
	if err != nil {
		slog.Error("marshal fanout event", slog.Any(constant.Error, err))
		return
	}

	for _, p := range participants {
		if p.ConnectionID == exceptConnID {
			continue
		}

		r.connRepo.Write(p.ConnectionID, msg)
		metric.IncrementRelayedMessages(string(t))
	}
}

func (r *relayUsecase) deliver(to string, t events.Type, payload any) {
	msg, err := events.NewMessage(t, payload)
	if err != nil {
		slog.Error("marshal relay event", slog.Any(constant.Error, err))
		return
	}

	target := to
	if !r.connRepo.Has(target) {
		// Адресат мог переподключиться: возможно, это user_id,
		// за которым числится новое соединение.
		if connID, ok := r.presence.Resolve(to); ok {
			target = connID
		}
	}

	r.connRepo.Write(target, msg)
	metric.IncrementRelayedMessages(string(t))
}
