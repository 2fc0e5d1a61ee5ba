package requestdata

import (
  "context"
  "github.com/google/uuid"
)

type requestDataKey struct{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey{})
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData carries the authenticated identity through the request context.
// SessionID is the token's jti claim so SSE reconnects can replace stale
// clients for the same session.
type RequestData struct {
  TokenString string
  UserID      uuid.UUID
  SessionID   uuid.UUID
}
