package handlers

import (
  "net/http"
  "sync"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/requestdata"
  "github.com/fluentclass/fluentclass-backend/internal/sse"
)

// RealtimeHandler owns the live SSE connections. Clients are keyed by the
// token's session id so a reconnect from the same tab replaces the stale
// stream instead of leaking it.
type RealtimeHandler struct {
  log *logger.Logger
  hub *sse.SSEHub

  mu      sync.RWMutex
  clients map[uuid.UUID]*sse.SSEClient
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
  return &RealtimeHandler{
    log:     log.With("handler", "RealtimeHandler"),
    hub:     hub,
    clients: make(map[uuid.UUID]*sse.SSEClient),
  }
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  userID := rd.UserID
  sessionID := rd.SessionID
  if sessionID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
    return
  }
  h.log.Info("SSE stream open", "user_id", userID.String(), "session_id", sessionID.String())

  h.mu.Lock()
  if existing, ok := h.clients[sessionID]; ok {
    h.hub.CloseClient(existing)
    delete(h.clients, sessionID)
  }
  client := h.hub.NewSSEClient(userID)
  h.clients[sessionID] = client
  h.mu.Unlock()

  // every session listens on the user's channel; run channels are added
  // via SSESubscribe once the client knows its run id
  h.hub.AddChannel(client, sse.UserChannel(userID))

  h.hub.ServeHTTP(c.Writer, c.Request, client)

  h.mu.Lock()
  delete(h.clients, sessionID)
  h.mu.Unlock()
  h.hub.CloseClient(client)
}

// POST /api/sse/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
  client, req, ok := h.resolveClientAndChannel(c)
  if !ok {
    return
  }
  h.hub.AddChannel(client, req)
  c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": req})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
  client, req, ok := h.resolveClientAndChannel(c)
  if !ok {
    return
  }
  h.hub.RemoveChannel(client, req)
  c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": req})
}

func (h *RealtimeHandler) resolveClientAndChannel(c *gin.Context) (*sse.SSEClient, string, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return nil, "", false
  }
  if rd.SessionID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
    return nil, "", false
  }

  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return nil, "", false
  }

  h.mu.RLock()
  client, exists := h.clients[rd.SessionID]
  h.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection for this session"})
    return nil, "", false
  }
  return client, req.Channel, true
}
