package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type перечисляет все типы событий сигнального протокола.
type Type string

// Client -> server.
const (
	TypeIdentify   Type = "identify"
	TypeJoinRoom   Type = "join-room"
	TypeLeaveRoom  Type = "leave-room"
	TypeLockRoom   Type = "lock-room"
	TypeRemoveUser Type = "remove-user"

	TypeCallInvite Type = "call-invite"
	TypeCallAccept Type = "call-accept"
	TypeCallReject Type = "call-reject"
	TypeCallEnd    Type = "call-end"

	TypeOffer        Type = "webrtc-offer"
	TypeAnswer       Type = "webrtc-answer"
	TypeIceCandidate Type = "ice-candidate"

	TypeChatMessage Type = "chat-message"
	TypeRoomInvite  Type = "room-invite"

	TypePing Type = "ping"
)

// Server -> client.
const (
	TypeConnected     Type = "connected"
	TypeUsersSnapshot Type = "users-snapshot"
	TypeUserLeft      Type = "user-left"

	TypeRoomJoined      Type = "room-joined"
	TypeRoomRejected    Type = "room-rejected"
	TypeRoomLocked      Type = "room-locked"
	TypeUserJoinedRoom  Type = "user-joined-room"
	TypeUserLeftRoom    Type = "user-left-room"
	TypeRemovedFromRoom Type = "removed-from-room"

	TypePong Type = "pong"
)

// Message - общий конверт события
type Message struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage marshals the payload into a ready-to-send envelope.
func NewMessage(t Type, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}

	return Message{Type: t, Data: data}, nil
}

// IdentifyEvent - клиент объявляет свою личность после подключения
type IdentifyEvent struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type JoinRoomEvent struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type LeaveRoomEvent struct {
	RoomID string `json:"room_id"`
}

type LockRoomEvent struct {
	RoomID string `json:"room_id"`
	Locked bool   `json:"locked"`
}

type RemoveUserEvent struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// TargetedEvent - событие, адресованное одному соединению (call control).
// Payload не интерпретируется сервером.
type TargetedEvent struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SdpEvent - offer и answer; SDP прозрачен для сервера
type SdpEvent struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

// IceCandidateEvent - ICE кандидаты, так же прозрачны
type IceCandidateEvent struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type ChatEvent struct {
	To         string `json:"to"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

type RoomInviteEvent struct {
	RoomID      string `json:"room_id"`
	To          string `json:"to"`
	InviterName string `json:"inviter_name"`
}

// Relayed - исходящая обёртка для point-to-point событий, проштампованная
// идентификатором соединения отправителя.
type Relayed struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RelayedSdp struct {
	From string          `json:"from"`
	SDP  json.RawMessage `json:"sdp"`
}

type RelayedCandidate struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type ChatDelivery struct {
	From       string    `json:"from"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

type RoomInviteDelivery struct {
	RoomID      string `json:"room_id"`
	From        string `json:"from"`
	InviterName string `json:"inviter_name"`
}

type ConnectedEvent struct {
	ConnectionID string `json:"connection_id"`
}

// KnownUserInfo - запись о пользователе в полном снапшоте присутствия
type KnownUserInfo struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Online      bool       `json:"online"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

type UsersSnapshotEvent struct {
	Users []KnownUserInfo `json:"users"`
}

type ParticipantInfo struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
}

type RoomJoinedEvent struct {
	RoomID       string            `json:"room_id"`
	Participants []ParticipantInfo `json:"participants"`
	Host         ParticipantInfo   `json:"host"`
}

// Причины отказа при входе в комнату
const (
	RejectReasonLocked  = "locked"
	RejectReasonRemoved = "removed"
)

type RoomRejectedEvent struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason"`
}

type RoomLockedEvent struct {
	RoomID string `json:"room_id"`
	Locked bool   `json:"locked"`
}

// RoomPresenceEvent - уведомление участникам о входе или выходе из комнаты
type RoomPresenceEvent struct {
	RoomID       string `json:"room_id"`
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
}

type UserLeftEvent struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id,omitempty"`
}
