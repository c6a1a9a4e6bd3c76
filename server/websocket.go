package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(s.opts.AllowedOrigins, origin)
		},
	}
}

// handleChatWS runs one turn per ChatRequest message received on the socket
// and answers with the turn's events as JSON text messages.
func (s *Server) handleChatWS(c *gin.Context) {
	ws, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.opts.Logger.Error("server.ws.upgrade_failed", "error", err.Error())
		return
	}
	defer ws.Close()

	for {
		var req ChatRequest
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.opts.Logger.Info("server.ws.closed", "error", err.Error())
			}
			return
		}

		if err := binding.Validator.ValidateStruct(&req); err != nil {
			if err := ws.WriteJSON(ValidationErrorResponse{Detail: validationDetails(err)}); err != nil {
				return
			}
			continue
		}

		if !s.relayTurn(c.Request.Context(), ws, req) {
			return
		}
	}
}

// relayTurn streams one turn to ws. It reports false once the socket is
// unusable.
func (s *Server) relayTurn(ctx context.Context, ws *websocket.Conn, req ChatRequest) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := s.mesh.Stream(ctx, req.History(), req.Graph)
	if err != nil {
		s.opts.Logger.Error("server.ws.rejected", "error", err.Error())
		return ws.WriteJSON(gin.H{"detail": err.Error()}) == nil
	}

	for ev := range events {
		if err := ws.WriteJSON(ev); err != nil {
			s.opts.Logger.Warn("server.ws.write_failed", "error", err.Error())
			return false
		}
	}
	return true
}
