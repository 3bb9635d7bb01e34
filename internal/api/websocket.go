package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// maxRiskMessageBytes caps a single websocket request frame.
const maxRiskMessageBytes = 64 << 10

// serveRiskWS answers each text message with the complete report for the
// simulation request it carries.
func (s *Server) serveRiskWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRiskMessageBytes)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				s.logger.Warn("WebSocket message too large", "limit", maxRiskMessageBytes)
				return
			}
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("WebSocket read ended", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			if err := conn.WriteJSON(gin.H{"error": "only text messages are accepted", "status": http.StatusUnsupportedMediaType}); err != nil {
				return
			}
			continue
		}

		status, body := s.evaluate(data)
		if status != http.StatusOK {
			if h, ok := body.(gin.H); ok {
				h["status"] = status
			}
		}
		if err := conn.WriteJSON(body); err != nil {
			s.logger.Warn("WebSocket write failed", "error", err)
			return
		}
	}
}
