package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"rideflow/pkg/auth"
	"rideflow/pkg/logger"
)

// Time allowed for the client to present its auth message after connect.
const authTime = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type authRequest struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Handler upgrades HTTP requests to authenticated WebSocket sessions.
// The first message on the socket must be {"type":"auth","token":"..."}.
type Handler struct {
	log          logger.Logger
	jwtManager   *auth.JWTManager
	onConnect    func(conn *Connection)
	expectedRole auth.Role
}

func NewHandler(log logger.Logger, jwtManager *auth.JWTManager, onConnect func(conn *Connection), expectedRole auth.Role) *Handler {
	return &Handler{
		log:          log,
		jwtManager:   jwtManager,
		onConnect:    onConnect,
		expectedRole: expectedRole,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket_upgrade_failed", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(authTime))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		sendErrorAndClose(conn, "Authentication timeout")
		return
	}

	var req authRequest
	if err := json.Unmarshal(msg, &req); err != nil || req.Type != "auth" || req.Token == "" {
		sendErrorAndClose(conn, "Invalid authentication request format")
		return
	}

	tokenString := strings.TrimPrefix(req.Token, "Bearer ")
	claims, err := h.jwtManager.ParseToken(tokenString)
	if err != nil {
		h.log.Error("websocket_auth_token_invalid", err)
		sendErrorAndClose(conn, "Invalid or expired token")
		return
	}

	if claims.Role != h.expectedRole {
		h.log.WithFields(logger.LogFields{
			"user_id":  claims.UserID,
			"got_role": claims.Role,
			"expected": h.expectedRole,
		}).Error("websocket_auth_role_mismatch", errors.New("invalid role"))
		sendErrorAndClose(conn, "Invalid or expired token")
		return
	}

	wsConn := newConnection(conn, h.log, claims)
	go wsConn.writePump()
	go h.onConnect(wsConn)
}

func sendErrorAndClose(conn *websocket.Conn, msg string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(wsErrorResponse{Type: "error", Message: msg})
	conn.Close()
}
