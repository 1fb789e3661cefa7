package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/MeetPoint/internal/application/config"
	"github.com/qrave1/MeetPoint/internal/application/constant"
	"github.com/qrave1/MeetPoint/internal/application/metric"
	"github.com/qrave1/MeetPoint/internal/domain/events"
	"github.com/qrave1/MeetPoint/internal/usecase"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	sessionUsecase usecase.SessionUsecase
}

func NewWebSocketHandler(cfg *config.Config, sessionUsecase usecase.SessionUsecase) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		sessionUsecase: sessionUsecase,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	// Каждому транспортному соединению - свой непрозрачный идентификатор.
	connID := uuid.NewString()

	h.sessionUsecase.HandleConnect(connID, ws)
	defer h.sessionUsecase.HandleDisconnect(connID)

	metric.IncrementWSActiveConnections()
	defer metric.DecrementWSActiveConnections()

	err = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	if err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.handleWebsocketError(connID, err)
			return nil
		}

		msg := new(events.Message)

		if err = json.Unmarshal(raw, msg); err != nil {
			slog.Error("unmarshal websocket message", slog.Any(constant.Error, err), slog.String(constant.ConnectionID, connID))
			continue
		}

		// Плохое событие никогда не роняет соединение: логируем и читаем дальше.
		if err = h.handleMessage(connID, msg); err != nil {
			slog.Warn("handle message", slog.Any(constant.Error, err), slog.String(constant.ConnectionID, connID))
		}
	}
}

func (h *WebSocketHandler) handleMessage(connID string, msg *events.Message) error {
	switch msg.Type {
	case events.TypeIdentify:
		var ev events.IdentifyEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal identify event: %w", err)
		}

		return h.sessionUsecase.HandleIdentify(connID, ev)

	case events.TypeJoinRoom:
		var ev events.JoinRoomEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal join-room event: %w", err)
		}

		return h.sessionUsecase.HandleJoinRoom(connID, ev)

	case events.TypeLeaveRoom:
		var ev events.LeaveRoomEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal leave-room event: %w", err)
		}

		return h.sessionUsecase.HandleLeaveRoom(connID, ev)

	case events.TypeLockRoom:
		var ev events.LockRoomEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal lock-room event: %w", err)
		}

		return h.sessionUsecase.HandleLockRoom(connID, ev)

	case events.TypeRemoveUser:
		var ev events.RemoveUserEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal remove-user event: %w", err)
		}

		return h.sessionUsecase.HandleRemoveUser(connID, ev)

	case events.TypeCallInvite, events.TypeCallAccept, events.TypeCallReject, events.TypeCallEnd:
		var ev events.TargetedEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", msg.Type, err)
		}

		return h.sessionUsecase.HandleCallControl(connID, msg.Type, ev)

	case events.TypeOffer, events.TypeAnswer:
		var ev events.SdpEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", msg.Type, err)
		}

		return h.sessionUsecase.HandleSdp(connID, msg.Type, ev)

	case events.TypeIceCandidate:
		var ev events.IceCandidateEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal ice-candidate event: %w", err)
		}

		return h.sessionUsecase.HandleCandidate(connID, ev)

	case events.TypeChatMessage:
		var ev events.ChatEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal chat-message event: %w", err)
		}

		return h.sessionUsecase.HandleChat(connID, ev)

	case events.TypeRoomInvite:
		var ev events.RoomInviteEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal room-invite event: %w", err)
		}

		return h.sessionUsecase.HandleRoomInvite(connID, ev)

	case events.TypePing:
		h.sessionUsecase.HandlePing(connID)
		return nil

	default:
		return errors.New("unknown message type")
	}
}

func (h *WebSocketHandler) handleWebsocketError(connID string, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("client disconnected from websocket", slog.String(constant.ConnectionID, connID))
		default:
			slog.Error("websocket close error", slog.String(constant.ConnectionID, connID))
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
			slog.String(constant.ConnectionID, connID),
		)
	}
}
