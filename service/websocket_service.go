package service

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trandvq/docsense/types"
)

// WebSocketService serves interactive chat over a websocket connection.
// Each chat frame runs a full query round-trip; a processing notice is
// sent first so clients can show progress while generation runs.
type WebSocketService struct {
	chat     *ChatEngine
	upgrader websocket.Upgrader
}

func NewWebSocketService(chat *ChatEngine) *WebSocketService {
	return &WebSocketService{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "invalid message format")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketPing:
			if err := conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong}); err != nil {
				log.Println("Write error:", err)
			}

		case types.TypeWebsocketChat:
			payloadBytes, err := json.Marshal(req.Payload)
			if err != nil {
				s.writeError(conn, "invalid chat payload")
				continue
			}
			var payload types.WebSocketChatPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil {
				s.writeError(conn, "invalid chat payload")
				continue
			}

			conn.WriteJSON(types.WebSocketResponse{
				Type:    types.TypeWebsocketProcessing,
				Payload: types.WebSocketProcessingResponse{Status: "thinking", Message: "searching your documents"},
			})

			resp, err := s.chat.Answer(r.Context(), types.ChatQuery{
				Query:               payload.Query,
				ConversationHistory: payload.History,
				Options:             payload.Options,
			})
			if err != nil {
				log.Println("Chat error:", err)
				s.writeError(conn, "failed to answer query")
				continue
			}

			if err := conn.WriteJSON(types.WebSocketResponse{
				Type:    types.TypeWebsocketChat,
				Payload: resp,
			}); err != nil {
				log.Println("Write error:", err)
			}

		default:
			s.writeError(conn, "unknown message type")
		}
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: map[string]string{"message": msg},
	}); err != nil {
		log.Println("Write error:", err)
	}
}
