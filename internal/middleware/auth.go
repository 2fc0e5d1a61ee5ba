package middleware

import (
  "fmt"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/ctxutil"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/requestdata"
)

// AuthMiddleware validates bearer tokens issued by the web app's auth
// provider (HS256, shared secret). There is no login flow here: the token's
// sub claim is the user, jti is the session.
type AuthMiddleware struct {
  log          *logger.Logger
  jwtSecretKey string
}

func NewAuthMiddleware(log *logger.Logger, jwtSecretKey string) *AuthMiddleware {
  middlewareLogger := log.With("middleware", "AuthMiddleware")
  return &AuthMiddleware{log: middlewareLogger, jwtSecretKey: jwtSecretKey}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }

    rd, err := am.parseToken(tokenString)
    if err != nil {
      am.log.Debug("Token rejected", "error", err)
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
      return
    }

    ctx := requestdata.WithRequestData(c.Request.Context(), rd)
    ctx = ctxutil.WithSSEData(ctx)
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}

func (am *AuthMiddleware) parseToken(tokenString string) (*requestdata.RequestData, error) {
  parsedToken, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
    if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
    }
    return []byte(am.jwtSecretKey), nil
  })
  if err != nil {
    return nil, fmt.Errorf("failed to parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*jwt.RegisteredClaims)
  if !ok || !parsedToken.Valid {
    return nil, fmt.Errorf("invalid or expired JWT token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return nil, fmt.Errorf("invalid user id in token: %w", err)
  }

  // jti identifies the session so an SSE reconnect can replace the stale
  // client; tokens without one get a per-request session
  sessionID, err := uuid.Parse(claims.ID)
  if err != nil {
    sessionID = uuid.New()
  }

  return &requestdata.RequestData{
    TokenString: tokenString,
    UserID:      userID,
    SessionID:   sessionID,
  }, nil
}

// EventSource cannot set headers, so SSE connections pass the token as a
// query parameter.
func extractToken(c *gin.Context) string {
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  return ""
}
