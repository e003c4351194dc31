package types

const (
	TypeWebsocketPing       = "ping"
	TypeWebsocketPong       = "pong"
	TypeWebsocketChat       = "chat"
	TypeWebsocketProcessing = "processing"
	TypeWebsocketError      = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketChatPayload struct {
	Query   string      `json:"query"`
	History []Message   `json:"history,omitempty"`
	Options ChatOptions `json:"options"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketProcessingResponse struct {
	DocumentID string  `json:"document_id"`
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Progress   float64 `json:"progress"`
}
