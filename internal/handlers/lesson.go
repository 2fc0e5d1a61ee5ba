package handlers

import (
  "errors"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/modules/lesson"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/ctxutil"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/requestdata"
  "github.com/fluentclass/fluentclass-backend/internal/services"
  "github.com/fluentclass/fluentclass-backend/internal/sse"
)

type LessonHandler struct {
  log    *logger.Logger
  gen    services.LessonGenerationService
  svc    services.LessonService
  sseHub *sse.SSEHub
}

func NewLessonHandler(log *logger.Logger, gen services.LessonGenerationService, svc services.LessonService, sseHub *sse.SSEHub) *LessonHandler {
  return &LessonHandler{
    log:    log.With("handler", "LessonHandler"),
    gen:    gen,
    svc:    svc,
    sseHub: sseHub,
  }
}

type generateLessonRequest struct {
  Level           string `json:"level"`
  Topic           string `json:"topic"`
  Focus           string `json:"focus"`
  DurationMinutes int    `json:"durationMinutes"`
  Notes           string `json:"notes"`
  StudentID       string `json:"studentId"`
  Async           bool   `json:"async"`
}

// POST /api/lessons
//
// async=false blocks until the lesson is generated (or generation is
// exhausted); async=true enqueues a run and returns 202 with the run id,
// progress flows over SSE.
func (h *LessonHandler) GenerateLesson(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }

  var req generateLessonRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }

  params := lesson.LessonParameters{
    Level:           lesson.Level(req.Level),
    Topic:           req.Topic,
    Focus:           req.Focus,
    DurationMinutes: req.DurationMinutes,
    Notes:           req.Notes,
    StudentID:       req.StudentID,
  }
  if errs := params.Validate(); len(errs) > 0 {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson parameters", "details": errs})
    return
  }

  if req.Async {
    run, err := h.gen.Enqueue(c.Request.Context(), rd.UserID, params)
    if err != nil {
      c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
      return
    }
    h.flushSSE(c)
    c.JSON(http.StatusAccepted, gin.H{"run": run})
    return
  }

  row, run, result, err := h.gen.ExecuteSync(c.Request.Context(), rd.UserID, params)
  h.flushSSE(c)
  if err != nil {
    var genErr *lesson.GenerationFailedError
    if errors.As(err, &genErr) {
      c.JSON(http.StatusBadGateway, gin.H{"error": genErr.Error(), "run": run})
      return
    }
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }

  c.JSON(http.StatusOK, gin.H{
    "lesson":        row,
    "run":           run,
    "qualityPassed": result.QualityPassed,
    "attempts":      result.Attempts,
    "repairNotes":   result.RepairNotes,
    "qualityIssues": result.QualityIssues,
  })
}

// GET /api/lessons
func (h *LessonHandler) ListLessons(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }

  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

  lessons, err := h.svc.ListLessonsForUser(c.Request.Context(), nil, rd.UserID, limit, offset)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }

  c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
    return
  }

  row, err := h.svc.GetLessonForUser(c.Request.Context(), nil, rd.UserID, lessonID)
  if err != nil {
    h.respondNotFoundOrError(c, err)
    return
  }

  c.JSON(http.StatusOK, gin.H{"lesson": row})
}

// GET /api/lessons/:id/generation
func (h *LessonHandler) GetLatestGeneration(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
    return
  }

  run, err := h.svc.GetLatestRunForLesson(c.Request.Context(), nil, rd.UserID, lessonID)
  if err != nil {
    h.respondNotFoundOrError(c, err)
    return
  }

  c.JSON(http.StatusOK, gin.H{"run": run})
}

// GET /api/lessons/:id/images
func (h *LessonHandler) ListLessonImages(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
    return
  }

  images, err := h.svc.ListImagesForLesson(c.Request.Context(), nil, rd.UserID, lessonID)
  if err != nil {
    h.respondNotFoundOrError(c, err)
    return
  }

  c.JSON(http.StatusOK, gin.H{"images": images})
}

// GET /api/lesson-generation-runs/:id
func (h *LessonHandler) GetGenerationRun(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  runID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
    return
  }

  run, err := h.svc.GetRunByID(c.Request.Context(), nil, rd.UserID, runID)
  if err != nil {
    h.respondNotFoundOrError(c, err)
    return
  }

  c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *LessonHandler) respondNotFoundOrError(c *gin.Context, err error) {
  if errors.Is(err, gorm.ErrRecordNotFound) {
    c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
    return
  }
  c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Events buffered during the request are flushed to the hub once the
// service call returns, so a client connected over SSE sees them in order.
func (h *LessonHandler) flushSSE(c *gin.Context) {
  ssd := ctxutil.GetSSEData(c.Request.Context())
  if ssd == nil || len(ssd.Messages) == 0 {
    return
  }
  for _, msg := range ssd.Messages {
    h.sseHub.Broadcast(msg)
  }
  ssd.Messages = nil
}
