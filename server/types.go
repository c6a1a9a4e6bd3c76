package server

import (
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
)

// Message is one chat entry as sent by the web client. Type carries the role.
type Message struct {
	ID        string `json:"id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=user assistant system"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	ChatHistory []Message  `json:"chatHistory" binding:"required,dive"`
	Graph       graph.Data `json:"graph"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	MessageResponse string     `json:"message_response"`
	GraphData       graph.Data `json:"graph_data"`
}

// History converts the client messages into conversation history.
func (r ChatRequest) History() []core.Message {
	out := make([]core.Message, 0, len(r.ChatHistory))
	for _, m := range r.ChatHistory {
		out = append(out, core.Message{Role: m.Type, Content: m.Content})
	}
	return out
}

// ValidationDetail describes one rejected field of a request body.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the 422 body for malformed requests.
type ValidationErrorResponse struct {
	Detail []ValidationDetail `json:"detail"`
	Body   string             `json:"body"`
}
