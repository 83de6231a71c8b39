package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"relay-quiz-service/internal/app"
	"relay-quiz-service/internal/domain"
)

// WSHandler is the event gateway: it translates transport messages into room
// registry calls and fans room broadcasts out to the connected client. It
// holds no game state of its own.
type WSHandler struct {
	registry *app.Registry
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *app.Registry) *WSHandler {
	return &WSHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	Topic  string `json:"topic"`
	RoomID string `json:"roomId"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type answerPayload struct {
	RoomID string  `json:"roomId"`
	Answer *string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type ackPayload struct {
	Action string `json:"action"`
	RoomID string `json:"roomId"`
}

type roomCreatedPayload struct {
	RoomID string           `json:"roomId"`
	State  domain.GameState `json:"state"`
}

// ServeWS upgrades the request and runs the per-connection event loop. The
// player identity comes from the (already authenticated) query parameters.
// Closing the socket only drops the broadcast subscription; room membership
// survives disconnects until an explicit leaveGame, and the turn deadline
// covers a vanished turn-holder.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}
	player := domain.Player{ID: userID, DisplayName: displayName}
	connID := uuid.NewString()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws %s write error: %v", connID, err)
				return
			}
		}
	}()

	// one live subscription per connection; switching rooms replaces it
	var roomID string
	var unsubscribe func()
	subscribe := func(id string) error {
		updates, cancel, err := h.registry.Subscribe(id)
		if err != nil {
			return err
		}
		if unsubscribe != nil {
			unsubscribe()
		}
		roomID = id
		unsubscribe = cancel
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for {
				select {
				case ev, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return nil
	}

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	replyErr := func(err error) {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}
	ack := func(action, id string) {
		reply(outboundMessage[any]{Type: "ack", Payload: ackPayload{Action: action, RoomID: id}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "createRoom":
			var payload createRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			session, err := h.registry.CreateRoom(player, payload.Topic, payload.RoomID)
			if err != nil {
				replyErr(err)
				continue
			}
			reply(outboundMessage[any]{Type: "roomCreated", Payload: roomCreatedPayload{RoomID: session.ID(), State: session.Snapshot()}})
			if err := subscribe(session.ID()); err != nil {
				replyErr(err)
			}
		case "joinRoom":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			state, err := h.registry.JoinRoom(payload.RoomID, player)
			if err != nil {
				replyErr(err)
				continue
			}
			reply(outboundMessage[any]{Type: "joined", Payload: state})
			if roomID != payload.RoomID {
				if err := subscribe(payload.RoomID); err != nil {
					replyErr(err)
				}
			}
		case "startGame":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			if err := h.registry.StartGame(r.Context(), payload.RoomID, userID); err != nil {
				replyErr(err)
				continue
			}
			ack("startGame", payload.RoomID)
		case "submitAnswer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			if err := h.registry.SubmitAnswer(payload.RoomID, userID, payload.Answer); err != nil {
				replyErr(err)
				continue
			}
			ack("submitAnswer", payload.RoomID)
		case "leaveGame":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			if err := h.registry.LeaveRoom(payload.RoomID, userID); err != nil {
				replyErr(err)
				continue
			}
			if unsubscribe != nil && roomID == payload.RoomID {
				unsubscribe()
				unsubscribe = nil
				roomID = ""
			}
			ack("leaveGame", payload.RoomID)
		case "endGame":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyErr(errInvalidPayload)
				continue
			}
			if err := h.registry.EndGame(payload.RoomID, userID); err != nil {
				replyErr(err)
				continue
			}
			ack("endGame", payload.RoomID)
		default:
			replyErr(errUnsupportedType)
		}
	}

	close(closeSignals)
	if unsubscribe != nil {
		unsubscribe()
	}
	forwarders.Wait()
	close(send)
	<-writerDone
}
