package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/fluentclass/fluentclass-backend/internal/handlers"
  "github.com/fluentclass/fluentclass-backend/internal/middleware"
  "github.com/fluentclass/fluentclass-backend/internal/observability"
)

type RouterConfig struct {
  ServiceName     string
  AllowedOrigins  string
  AuthMiddleware  *middleware.AuthMiddleware
  LessonHandler   *handlers.LessonHandler
  RealtimeHandler *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  router.Use(cors.New(cors.Config{
    AllowOrigins:     splitOrigins(cfg.AllowedOrigins),
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))
  router.Use(otelgin.Middleware(cfg.ServiceName))
  router.Use(middleware.Metrics(observability.Current()))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)

// ===============
// || Protected ||
// ===============
  api := router.Group("/api")
  api.Use(cfg.AuthMiddleware.RequireAuth())
  // SSE
  api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
  api.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
  api.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
  // Lessons
  api.POST("/lessons", cfg.LessonHandler.GenerateLesson)
  api.GET("/lessons", cfg.LessonHandler.ListLessons)
  api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
  api.GET("/lessons/:id/generation", cfg.LessonHandler.GetLatestGeneration)
  api.GET("/lessons/:id/images", cfg.LessonHandler.ListLessonImages)
  api.GET("/lesson-generation-runs/:id", cfg.LessonHandler.GetGenerationRun)

  return router
}

func splitOrigins(raw string) []string {
  if strings.TrimSpace(raw) == "" {
    raw = "http://localhost:3000,http://localhost:5174"
  }
  parts := strings.Split(raw, ",")
  origins := make([]string, 0, len(parts))
  for _, p := range parts {
    if trimmed := strings.TrimSpace(p); trimmed != "" {
      origins = append(origins, trimmed)
    }
  }
  return origins
}
