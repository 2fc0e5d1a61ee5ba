package main

import (
  "context"
  "fmt"
  "os"

  "github.com/fluentclass/fluentclass-backend/internal/clients/ai"
  "github.com/fluentclass/fluentclass-backend/internal/clients/gcp"
  redisclient "github.com/fluentclass/fluentclass-backend/internal/clients/redis"
  "github.com/fluentclass/fluentclass-backend/internal/db"
  "github.com/fluentclass/fluentclass-backend/internal/handlers"
  "github.com/fluentclass/fluentclass-backend/internal/middleware"
  "github.com/fluentclass/fluentclass-backend/internal/observability"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/repos"
  "github.com/fluentclass/fluentclass-backend/internal/server"
  "github.com/fluentclass/fluentclass-backend/internal/services"
  "github.com/fluentclass/fluentclass-backend/internal/sse"
  "github.com/fluentclass/fluentclass-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  serviceName := utils.GetEnv("OTEL_SERVICE_NAME", "fluentclass-backend", log)
  environment := utils.GetEnv("APP_ENV", "development", log)
  corsOrigins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)

  ctx := context.Background()

  // Tracing
  shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
    ServiceName: serviceName,
    Environment: environment,
    Version:     utils.GetEnv("APP_VERSION", "dev", log),
  })
  defer shutdownOTel(context.Background())

  // Database
  dbService, err := db.NewDatabaseService(log)
  if err != nil {
    log.Error("Database init failed", "error", err)
    os.Exit(1)
  }
  if err = dbService.AutoMigrateAll(); err != nil {
    log.Warn("Auto migration failed", "error", err)
  }
  theDB := dbService.DB()

  // Metrics
  metrics := observability.Init(log)
  if metrics != nil {
    metricsAddr := utils.GetEnv("METRICS_ADDR", ":9091", log)
    metrics.StartServer(ctx, log, metricsAddr)
    metrics.StartPostgresCollector(ctx, log, theDB)
    metrics.StartRunQueueCollector(ctx, log, theDB)
    metrics.StartSLOEvaluator(ctx, log)
    if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
      metrics.StartRedisCollector(ctx, log, redisAddr)
    }
  }

  // Repos
  log.Info("Setting up Repos from main...")
  lessonRepo := repos.NewLessonRepo(theDB, log)
  runRepo := repos.NewLessonGenerationRunRepo(theDB, log)
  imageRepo := repos.NewLessonImageRepo(theDB, log)
  callLogRepo := repos.NewAICallLogRepo(theDB, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  var sseBus redisclient.SSEBus
  if os.Getenv("REDIS_ADDR") != "" {
    sseBus, err = redisclient.NewSSEBus(log)
    if err != nil {
      log.Warn("Could not init SSE bus, running single-node", "error", err)
    } else {
      if err := sseBus.StartForwarder(ctx, func(m sse.SSEMessage) {
        sseHub.Broadcast(m)
      }); err != nil {
        log.Warn("Could not start SSE forwarder", "error", err)
      }
    }
  }

  // Clients
  log.Info("Setting up AI clients from main...")
  textClient, err := ai.NewTextClientFromEnv(log)
  if err != nil {
    log.Error("Could not init text client", "error", err)
    os.Exit(1)
  }
  imageClient, err := ai.NewImageClientFromEnv(log)
  if err != nil {
    log.Warn("Could not init image client, lessons will ship without images", "error", err)
  }
  bucketService, err := gcp.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init bucket service, lessons will ship without images", "error", err)
  }

  // Services
  log.Info("Setting up Services from main...")
  var imageService services.LessonImageService
  if imageClient != nil && bucketService != nil {
    imageService, err = services.NewLessonImageService(theDB, log, imageRepo, bucketService, imageClient)
    if err != nil {
      log.Warn("Could not init LessonImageService", "error", err)
    }
  }
  genService := services.NewLessonGenerationService(
    theDB,
    log,
    sseHub,
    sseBus,
    lessonRepo,
    runRepo,
    callLogRepo,
    textClient,
    imageService,
  )
  genService.StartWorker(ctx)
  lessonService := services.NewLessonService(theDB, log, lessonRepo, runRepo, imageRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  lessonHandler := handlers.NewLessonHandler(log, genService, lessonService, sseHub)
  realtimeHandler := handlers.NewRealtimeHandler(log, sseHub)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    ServiceName:     serviceName,
    AllowedOrigins:  corsOrigins,
    AuthMiddleware:  authMiddleware,
    LessonHandler:   lessonHandler,
    RealtimeHandler: realtimeHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
