package main

import (
	"encoding/json"
	"net/http"

	"github.com/de7fp/restaurant-rag/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ChatSocket answers each {"message"} text frame with the chat reply or an
// {"error"} frame, until the client disconnects.
func (a *Agent) ChatSocket(ctx *gin.Context) {
	conn, err := a.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.WriteJSON(gin.H{"error": msgBadRequest}); err != nil {
				return
			}
			continue
		}

		out, err := a.handler.chat.Answer(ctx.Request.Context(), req.Message)
		var reply interface{} = out.Reply
		if err != nil {
			reply = gin.H{"error": err.Error()}
		}

		if err := conn.WriteJSON(reply); err != nil {
			logger.Error("failed to write to ws connection", zap.Error(err))
			return
		}
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}
