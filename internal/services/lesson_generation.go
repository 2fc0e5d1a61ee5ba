package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/clients/ai"
  "github.com/fluentclass/fluentclass-backend/internal/clients/redis"
  "github.com/fluentclass/fluentclass-backend/internal/modules/lesson"
  "github.com/fluentclass/fluentclass-backend/internal/observability"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/ctxutil"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/repos"
  "github.com/fluentclass/fluentclass-backend/internal/sse"
  "github.com/fluentclass/fluentclass-backend/internal/types"
  "github.com/fluentclass/fluentclass-backend/internal/utils"
)

const lessonSchemaName = "esl_lesson"

// GenerateResult is the outcome of one full generation run. QualityPassed is
// false when every attempt fell below the reading bar and the last normalized
// lesson was returned anyway; callers surface that as a warning banner, not a
// failure.
type GenerateResult struct {
  Lesson        *lesson.Lesson
  QualityPassed bool
  Attempts      int
  RepairNotes   []string
  QualityIssues []string
  Metrics       map[string]any
}

type LessonGenerationService interface {
  // ExecuteSync runs the pipeline inline and still records a run row.
  ExecuteSync(ctx context.Context, userID uuid.UUID, params lesson.LessonParameters) (*types.Lesson, *types.LessonGenerationRun, *GenerateResult, error)
  // Enqueue records a queued run for the worker to claim.
  Enqueue(ctx context.Context, userID uuid.UUID, params lesson.LessonParameters) (*types.LessonGenerationRun, error)
  StartWorker(ctx context.Context)
}

type lessonGenerationService struct {
  db  *gorm.DB
  log *logger.Logger

  sseHub *sse.SSEHub
  sseBus redis.SSEBus

  lessonRepo  repos.LessonRepo
  runRepo     repos.LessonGenerationRunRepo
  callLogRepo repos.AICallLogRepo

  aiClient ai.TextClient
  images   LessonImageService

  policy       lesson.RetryPolicy
  requirements lesson.LessonRequirements

  workerEnabled bool
}

func NewLessonGenerationService(
  db *gorm.DB,
  baseLog *logger.Logger,
  sseHub *sse.SSEHub,
  sseBus redis.SSEBus,
  lessonRepo repos.LessonRepo,
  runRepo repos.LessonGenerationRunRepo,
  callLogRepo repos.AICallLogRepo,
  aiClient ai.TextClient,
  images LessonImageService,
) LessonGenerationService {
  log := baseLog.With("service", "LessonGenerationService")
  return &lessonGenerationService{
    db:            db,
    log:           log,
    sseHub:        sseHub,
    sseBus:        sseBus,
    lessonRepo:    lessonRepo,
    runRepo:       runRepo,
    callLogRepo:   callLogRepo,
    aiClient:      aiClient,
    images:        images,
    policy:        lesson.DefaultRetryPolicy(),
    requirements:  lesson.DefaultLessonRequirements(),
    workerEnabled: utils.GetEnvAsBool("LESSON_WORKER_ENABLED", true, baseLog),
  }
}

func (s *lessonGenerationService) Enqueue(ctx context.Context, userID uuid.UUID, params lesson.LessonParameters) (*types.LessonGenerationRun, error) {
  if errs := params.Validate(); len(errs) > 0 {
    return nil, fmt.Errorf("invalid lesson parameters: %s", strings.Join(errs, "; "))
  }
  paramsJSON, err := json.Marshal(params)
  if err != nil {
    return nil, fmt.Errorf("marshal params: %w", err)
  }

  now := time.Now()
  run := &types.LessonGenerationRun{
    ID:        uuid.New(),
    UserID:    userID,
    Status:    "queued",
    Stage:     "prompt",
    Progress:  0,
    Attempts:  0,
    Params:    datatypes.JSON(paramsJSON),
    Metadata:  datatypes.JSON([]byte(`{}`)),
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := s.runRepo.Create(ctx, nil, []*types.LessonGenerationRun{run}); err != nil {
    return nil, fmt.Errorf("create generation run: %w", err)
  }

  msg := sse.SSEMessage{
    Channel: sse.UserChannel(userID),
    Event:   sse.SSEEventLessonGenerationQueued,
    Data:    map[string]any{"run": run},
  }
  if ssd := ctxutil.GetSSEData(ctx); ssd != nil {
    ssd.AppendMessage(msg)
  } else {
    s.broadcast(ctx, msg)
  }
  return run, nil
}

func (s *lessonGenerationService) ExecuteSync(ctx context.Context, userID uuid.UUID, params lesson.LessonParameters) (*types.Lesson, *types.LessonGenerationRun, *GenerateResult, error) {
  if errs := params.Validate(); len(errs) > 0 {
    return nil, nil, nil, fmt.Errorf("invalid lesson parameters: %s", strings.Join(errs, "; "))
  }
  paramsJSON, err := json.Marshal(params)
  if err != nil {
    return nil, nil, nil, fmt.Errorf("marshal params: %w", err)
  }

  now := time.Now()
  run := &types.LessonGenerationRun{
    ID:          uuid.New(),
    UserID:      userID,
    Status:      "running",
    Stage:       "generate",
    Progress:    10,
    Attempts:    1,
    Params:      datatypes.JSON(paramsJSON),
    Metadata:    datatypes.JSON([]byte(`{}`)),
    LockedAt:    &now,
    HeartbeatAt: &now,
    CreatedAt:   now,
    UpdatedAt:   now,
  }
  if _, err := s.runRepo.Create(ctx, nil, []*types.LessonGenerationRun{run}); err != nil {
    return nil, nil, nil, fmt.Errorf("create generation run: %w", err)
  }

  row, res, err := s.executeRun(ctx, run, userID, params, "sync")
  if err != nil {
    return nil, run, nil, err
  }
  return row, run, res, nil
}

func (s *lessonGenerationService) StartWorker(ctx context.Context) {
  if !s.workerEnabled {
    s.log.Info("Lesson generation worker disabled")
    return
  }
  go func() {
    ticker := time.NewTicker(1 * time.Second)
    defer ticker.Stop()

    maxAttempts := utils.GetEnvAsInt("LESSON_RUN_MAX_ATTEMPTS", 3, s.log)
    retryDelay := 30 * time.Second
    staleRunning := 2 * time.Minute

    for {
      select {
      case <-ctx.Done():
        return
      case <-ticker.C:
        run, err := s.runRepo.ClaimNextRunnable(ctx, s.db, maxAttempts, retryDelay, staleRunning)
        if err != nil {
          s.log.Warn("ClaimNextRunnable failed", "error", err)
          continue
        }
        if run == nil {
          continue
        }
        s.processRun(ctx, run)
      }
    }
  }()
}

func (s *lessonGenerationService) processRun(ctx context.Context, run *types.LessonGenerationRun) {
  started := time.Now()

  var params lesson.LessonParameters
  if err := json.Unmarshal(run.Params, &params); err != nil {
    s.failRun(ctx, run, "prompt", fmt.Errorf("unmarshal run params: %w", err))
    return
  }

  if _, _, err := s.executeRun(ctx, run, run.UserID, params, "worker"); err != nil {
    s.log.Warn("Generation run failed", "run_id", run.ID, "error", err, "elapsed", time.Since(started).String())
    return
  }
  s.log.Info("Generation run finished", "run_id", run.ID, "elapsed", time.Since(started).String())
}

// executeRun drives one claimed (or inline) run through the pipeline,
// keeping the run row and SSE listeners current per stage.
func (s *lessonGenerationService) executeRun(ctx context.Context, run *types.LessonGenerationRun, userID uuid.UUID, params lesson.LessonParameters, mode string) (*types.Lesson, *GenerateResult, error) {
  runID := run.ID
  started := time.Now()

  progress := func(stage string, pct int, msg string) {
    now := time.Now()
    _ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
      "stage":        stage,
      "progress":     pct,
      "heartbeat_at": now,
    })
    s.broadcast(ctx, sse.SSEMessage{
      Channel: sse.UserChannel(userID),
      Event:   sse.SSEEventLessonGenerationProgress,
      Data: map[string]any{
        "run_id":   runID,
        "stage":    stage,
        "progress": pct,
        "message":  msg,
      },
    })
  }

  s.broadcast(ctx, sse.SSEMessage{
    Channel: sse.UserChannel(userID),
    Event:   sse.SSEEventLessonGenerationStarted,
    Data:    map[string]any{"run_id": runID},
  })

  progress("generate", 15, "Generating lesson draft")
  res, err := s.generate(ctx, userID, &runID, params, progress)
  if err != nil {
    s.failRun(ctx, run, "generate", err)
    s.observeRun(mode, "failed", res, started)
    return nil, nil, err
  }

  progress("normalize", 70, "Storing lesson")
  row, err := s.storeLesson(ctx, userID, params, res)
  if err != nil {
    s.failRun(ctx, run, "normalize", err)
    s.observeRun(mode, "failed", res, started)
    return nil, nil, err
  }

  if s.images != nil {
    progress("images", 85, "Illustrating sections")
    if _, imgErr := s.images.DecorateLesson(ctx, row, res.Lesson); imgErr != nil {
      // images are decoration; a failed batch never fails the lesson
      s.log.Warn("Lesson image decoration failed", "lesson_id", row.ID, "error", imgErr)
    } else {
      s.broadcast(ctx, sse.SSEMessage{
        Channel: sse.UserChannel(userID),
        Event:   sse.SSEEventLessonImagesReady,
        Data:    map[string]any{"run_id": runID, "lesson_id": row.ID},
      })
    }
  }

  notesJSON, _ := json.Marshal(res.RepairNotes)
  issuesJSON, _ := json.Marshal(res.QualityIssues)
  metaJSON, _ := json.Marshal(map[string]any{
    "prompt_version": lesson.PromptVersion,
    "provider":       s.aiClient.Name(),
    "model":          s.aiClient.Model(),
    "metrics":        res.Metrics,
  })
  qp := res.QualityPassed
  now := time.Now()
  _ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
    "status":         "succeeded",
    "stage":          "done",
    "progress":       100,
    "lesson_id":      row.ID,
    "model_attempts": res.Attempts,
    "quality_passed": qp,
    "repair_notes":   datatypes.JSON(notesJSON),
    "quality_issues": datatypes.JSON(issuesJSON),
    "metadata":       datatypes.JSON(metaJSON),
    "locked_at":      nil,
    "heartbeat_at":   now,
  })

  s.broadcast(ctx, sse.SSEMessage{
    Channel: sse.UserChannel(userID),
    Event:   sse.SSEEventLessonGenerationFinished,
    Data: map[string]any{
      "run_id":         runID,
      "lesson_id":      row.ID,
      "quality_passed": res.QualityPassed,
      "repair_notes":   res.RepairNotes,
    },
  })

  outcome := "succeeded"
  if !res.QualityPassed {
    outcome = "succeeded_below_bar"
  }
  s.observeRun(mode, outcome, res, started)
  return row, res, nil
}

func (s *lessonGenerationService) failRun(ctx context.Context, run *types.LessonGenerationRun, stage string, err error) {
  now := time.Now()
  _ = s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]any{
    "status":        "failed",
    "stage":         stage,
    "error":         err.Error(),
    "last_error_at": now,
    "locked_at":     nil,
  })
  s.broadcast(ctx, sse.SSEMessage{
    Channel: sse.UserChannel(run.UserID),
    Event:   sse.SSEEventLessonGenerationFailed,
    Data: map[string]any{
      "run_id": run.ID,
      "stage":  stage,
      "error":  err.Error(),
    },
  })
}

// generate is the retry loop of the pipeline: at most MaxAttempts model
// calls, each one parsed, normalized, and gated; the state machine decides
// what happens next. Every attempt is logged to ai_call_log.
func (s *lessonGenerationService) generate(ctx context.Context, userID uuid.UUID, runID *uuid.UUID, params lesson.LessonParameters, progress func(stage string, pct int, msg string)) (*GenerateResult, error) {
  system, user := lesson.BuildLessonPrompt(params)
  schema := lesson.LessonJSONSchema()

  var (
    lastLesson  *lesson.Lesson
    lastNotes   []string
    lastIssues  []string
    lastMetrics map[string]any
    lastErr     error
    lastEvent   lesson.AttemptEvent
    attempts    int
  )

  for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
    if err := ctx.Err(); err != nil {
      return nil, err
    }
    attempts = attempt
    if progress != nil && attempt > 1 {
      progress("generate", 15+attempt*10, fmt.Sprintf("Retrying lesson draft (attempt %d)", attempt))
    }

    callStart := time.Now()
    text, callErr := s.aiClient.GenerateJSONText(ctx, system, user, lessonSchemaName, schema)
    latency := time.Since(callStart)

    var ev lesson.AttemptEvent
    switch {
    case callErr != nil:
      ev = lesson.EventTransportFailed
      lastErr = callErr

    default:
      var obj map[string]any
      if parseErr := json.Unmarshal([]byte(stripCodeFences(text)), &obj); parseErr != nil {
        ev = lesson.EventParseFailed
        lastErr = fmt.Errorf("parse model response: %w", parseErr)
      } else {
        lsn, notes := lesson.NormalizeLesson(obj)
        issues, metrics := lesson.EvaluateLessonQuality(lsn, s.requirements)
        observability.ReportRepairNotes(ctx, s.log, "normalize", notes, map[string]any{
          "attempt": attempt,
          "run_id":  runID,
        })
        lastLesson, lastNotes, lastIssues, lastMetrics = lsn, notes, issues, metrics
        if len(issues) == 0 {
          ev = lesson.EventAccepted
        } else {
          ev = lesson.EventQualityRejected
          lastErr = fmt.Errorf("quality gate: %s", strings.Join(issues, "; "))
        }
        if m := observability.Current(); m != nil {
          m.IncQualityGate(len(issues) == 0)
        }
      }
    }
    lastEvent = ev

    s.recordCallLog(ctx, userID, runID, attempt, latency, user, text, callErr, ev)
    if m := observability.Current(); m != nil {
      m.IncGenerationAttempt(s.aiClient.Name(), ev.String())
      status := "ok"
      if callErr != nil {
        status = "error"
      }
      m.ObserveLLMRequest(s.aiClient.Name(), s.aiClient.Model(), status, latency, 0, 0)
    }

    state := s.policy.Transition(attempt, ev)
    switch state {
    case lesson.StateAccepted:
      return &GenerateResult{
        Lesson:        lastLesson,
        QualityPassed: true,
        Attempts:      attempt,
        RepairNotes:   lastNotes,
        QualityIssues: nil,
        Metrics:       lastMetrics,
      }, nil
    case lesson.StateExhausted:
      // fall through to the terminal handling below
    default:
      s.log.Warn("Lesson attempt rejected, retrying",
        "attempt", attempt,
        "event", ev.String(),
        "error", errString(lastErr),
      )
      continue
    }
    break
  }

  // A normalized lesson from any attempt beats nothing: return it flagged
  // instead of failing, so a teacher under time pressure still gets material.
  if lastLesson != nil {
    s.log.Warn("Lesson accepted below quality bar",
      "attempts", attempts,
      "issues", lastIssues,
    )
    return &GenerateResult{
      Lesson:        lastLesson,
      QualityPassed: false,
      Attempts:      attempts,
      RepairNotes:   lastNotes,
      QualityIssues: lastIssues,
      Metrics:       lastMetrics,
    }, nil
  }

  return nil, &lesson.GenerationFailedError{
    Cause:    lastEvent.Cause(),
    Attempts: attempts,
    Last:     lastErr,
  }
}

func (s *lessonGenerationService) storeLesson(ctx context.Context, userID uuid.UUID, params lesson.LessonParameters, res *GenerateResult) (*types.Lesson, error) {
  contentJSON, err := json.Marshal(res.Lesson)
  if err != nil {
    return nil, fmt.Errorf("marshal lesson: %w", err)
  }
  notesJSON, _ := json.Marshal(res.RepairNotes)
  sum := sha256.Sum256(contentJSON)

  var studentID *uuid.UUID
  if id, parseErr := uuid.Parse(strings.TrimSpace(params.StudentID)); parseErr == nil && id != uuid.Nil {
    studentID = &id
  }

  now := time.Now()
  row := &types.Lesson{
    ID:            uuid.New(),
    UserID:        userID,
    StudentID:     studentID,
    Title:         res.Lesson.Title,
    Level:         string(res.Lesson.Level),
    Focus:         res.Lesson.Focus,
    EstimatedTime: res.Lesson.EstimatedTime,
    Topic:         strings.TrimSpace(params.Topic),
    QualityPassed: res.QualityPassed,
    Content:       datatypes.JSON(contentJSON),
    RepairNotes:   datatypes.JSON(notesJSON),
    ContentHash:   hex.EncodeToString(sum[:]),
    CreatedAt:     now,
    UpdatedAt:     now,
  }
  if _, err := s.lessonRepo.Create(ctx, nil, []*types.Lesson{row}); err != nil {
    return nil, fmt.Errorf("create lesson: %w", err)
  }
  return row, nil
}

func (s *lessonGenerationService) recordCallLog(ctx context.Context, userID uuid.UUID, runID *uuid.UUID, attempt int, latency time.Duration, prompt, response string, callErr error, ev lesson.AttemptEvent) {
  entry := &types.AICallLog{
    ID:        uuid.New(),
    UserID:    &userID,
    RunID:     runID,
    CallType:  "lesson_json",
    Provider:  s.aiClient.Name(),
    Model:     s.aiClient.Model(),
    Attempt:   attempt,
    LatencyMS: latency.Milliseconds(),
    Prompt:    truncateForLog(prompt, 4000),
    Response:  truncateForLog(response, 8000),
    Success:   ev == lesson.EventAccepted,
    Error:     errString(callErr),
    CreatedAt: time.Now(),
    UpdatedAt: time.Now(),
  }
  if _, err := s.callLogRepo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
    s.log.Warn("Failed to record AI call log", "error", err)
  }
}

func (s *lessonGenerationService) observeRun(mode, outcome string, res *GenerateResult, started time.Time) {
  m := observability.Current()
  if m == nil {
    return
  }
  attempts := 0
  if res != nil {
    attempts = res.Attempts
  }
  m.ObserveGenerationRun(mode, outcome, attempts, time.Since(started))
}

func (s *lessonGenerationService) broadcast(ctx context.Context, msg sse.SSEMessage) {
  if s.sseHub != nil {
    s.sseHub.Broadcast(msg)
  }
  if s.sseBus != nil {
    if err := s.sseBus.Publish(ctx, msg); err != nil {
      s.log.Warn("SSE bus publish failed", "error", err)
    }
  }
}

// stripCodeFences drops a leading ```json fence and its closing fence.
// Providers asked for raw JSON still wrap it in markdown fences often enough
// that parsing without this would burn retry attempts for no reason.
func stripCodeFences(src string) string {
  s := strings.TrimSpace(src)
  if !strings.HasPrefix(s, "```") {
    return s
  }
  lines := strings.Split(s, "\n")
  if len(lines) < 2 {
    return s
  }
  body := lines[1:]
  if strings.TrimSpace(lines[len(lines)-1]) == "```" {
    body = lines[1 : len(lines)-1]
  }
  return strings.TrimSpace(strings.Join(body, "\n"))
}

func truncateForLog(s string, max int) string {
  if max <= 0 || len(s) <= max {
    return s
  }
  return s[:max] + "…[truncated]"
}

func errString(err error) string {
  if err == nil {
    return ""
  }
  return err.Error()
}
