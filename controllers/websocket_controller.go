package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"maternal-triage-backend/models"
	"maternal-triage-backend/services"
)

type WebSocketController struct {
	triageService *services.TriageService
	upgrader      websocket.Upgrader
	logger        *zap.Logger

	// hijacked connections are not tracked by http.Server.Shutdown
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	active sync.WaitGroup
}

func NewWebSocketController(triageService *services.TriageService, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketController{
		triageService: triageService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// HandleWebSocket reads one event per frame and writes one response per frame
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if !wc.track(conn) {
		closeConn(conn)
		return
	}
	defer wc.untrack(conn)

	for {
		var req models.EventRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wc.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		response, err := wc.triageService.ProcessEvent(c.Request.Context(), req)
		if err != nil {
			_, body := errorResponse(err)
			if werr := conn.WriteJSON(body); werr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(response); err != nil {
			wc.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

// Close disconnects every client, refuses new ones and waits until all
// handlers have returned
func (wc *WebSocketController) Close() {
	wc.mu.Lock()
	wc.closed = true
	for conn := range wc.conns {
		closeConn(conn)
	}
	wc.mu.Unlock()

	wc.active.Wait()
}

func (wc *WebSocketController) track(conn *websocket.Conn) bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.closed {
		return false
	}
	wc.conns[conn] = struct{}{}
	wc.active.Add(1)
	return true
}

func (wc *WebSocketController) untrack(conn *websocket.Conn) {
	wc.mu.Lock()
	delete(wc.conns, conn)
	wc.mu.Unlock()

	conn.Close()
	wc.active.Done()
}

func closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}
