package middleware

import (
  "net/http"
  "net/http/httptest"
  "testing"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/requestdata"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID, sessionID uuid.UUID, secret string) string {
  t.Helper()
  claims := jwt.RegisteredClaims{
    Subject:   userID.String(),
    ID:        sessionID.String(),
    ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  signed, err := token.SignedString([]byte(secret))
  if err != nil {
    t.Fatalf("sign token: %v", err)
  }
  return signed
}

func newAuthRouter(t *testing.T) (*gin.Engine, *requestdata.RequestData) {
  t.Helper()
  gin.SetMode(gin.TestMode)
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  am := NewAuthMiddleware(log, testSecret)

  router := gin.New()
  holder := &requestdata.RequestData{}
  router.GET("/capture", am.RequireAuth(), func(c *gin.Context) {
    if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
      *holder = *rd
    }
    c.Status(http.StatusOK)
  })
  return router, holder
}

func TestRequireAuth_BearerHeader(t *testing.T) {
  router, captured := newAuthRouter(t)
  userID := uuid.New()
  sessionID := uuid.New()

  req := httptest.NewRequest(http.MethodGet, "/capture", nil)
  req.Header.Set("Authorization", "Bearer "+signToken(t, userID, sessionID, testSecret))
  w := httptest.NewRecorder()
  router.ServeHTTP(w, req)

  if w.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", w.Code)
  }
  if captured.UserID != userID {
    t.Fatalf("expected user %s, got %s", userID, captured.UserID)
  }
  if captured.SessionID != sessionID {
    t.Fatalf("expected session %s, got %s", sessionID, captured.SessionID)
  }
}

func TestRequireAuth_QueryParamToken(t *testing.T) {
  router, captured := newAuthRouter(t)
  userID := uuid.New()

  req := httptest.NewRequest(http.MethodGet, "/capture?token="+signToken(t, userID, uuid.New(), testSecret), nil)
  w := httptest.NewRecorder()
  router.ServeHTTP(w, req)

  if w.Code != http.StatusOK {
    t.Fatalf("expected 200 for query token, got %d", w.Code)
  }
  if captured.UserID != userID {
    t.Fatalf("expected user %s, got %s", userID, captured.UserID)
  }
}

func TestRequireAuth_RejectsBadTokens(t *testing.T) {
  router, _ := newAuthRouter(t)

  cases := map[string]string{
    "missing":      "",
    "wrong secret": signToken(t, uuid.New(), uuid.New(), "other-secret"),
    "garbage":      "not-a-jwt",
  }
  for name, token := range cases {
    req := httptest.NewRequest(http.MethodGet, "/capture", nil)
    if token != "" {
      req.Header.Set("Authorization", "Bearer "+token)
    }
    w := httptest.NewRecorder()
    router.ServeHTTP(w, req)
    if w.Code != http.StatusUnauthorized {
      t.Fatalf("%s: expected 401, got %d", name, w.Code)
    }
  }
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
  router, _ := newAuthRouter(t)

  claims := jwt.RegisteredClaims{
    Subject:   uuid.New().String(),
    ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
  }
  signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
  if err != nil {
    t.Fatalf("sign token: %v", err)
  }

  req := httptest.NewRequest(http.MethodGet, "/capture", nil)
  req.Header.Set("Authorization", "Bearer "+signed)
  w := httptest.NewRecorder()
  router.ServeHTTP(w, req)
  if w.Code != http.StatusUnauthorized {
    t.Fatalf("expired token: expected 401, got %d", w.Code)
  }
}
