package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/repos"
  "github.com/fluentclass/fluentclass-backend/internal/types"
)

// LessonService is the read side: stored lessons, their generation runs, and
// their images, always scoped to the owning user.
type LessonService interface {
  GetLessonForUser(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.Lesson, error)
  ListLessonsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Lesson, error)
  GetLatestRunForLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonGenerationRun, error)
  GetRunByID(ctx context.Context, tx *gorm.DB, userID, runID uuid.UUID) (*types.LessonGenerationRun, error)
  ListImagesForLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) ([]*types.LessonImage, error)
}

type lessonService struct {
  db  *gorm.DB
  log *logger.Logger

  lessonRepo repos.LessonRepo
  runRepo    repos.LessonGenerationRunRepo
  imageRepo  repos.LessonImageRepo
}

func NewLessonService(db *gorm.DB, baseLog *logger.Logger, lessonRepo repos.LessonRepo, runRepo repos.LessonGenerationRunRepo, imageRepo repos.LessonImageRepo) LessonService {
  return &lessonService{
    db:         db,
    log:        baseLog.With("service", "LessonService"),
    lessonRepo: lessonRepo,
    runRepo:    runRepo,
    imageRepo:  imageRepo,
  }
}

func (ls *lessonService) GetLessonForUser(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.Lesson, error) {
  lessons, err := ls.lessonRepo.GetByIDs(ctx, tx, []uuid.UUID{lessonID})
  if err != nil {
    return nil, err
  }
  if len(lessons) == 0 || lessons[0] == nil || lessons[0].UserID != userID {
    return nil, fmt.Errorf("lesson %s: %w", lessonID, gorm.ErrRecordNotFound)
  }
  return lessons[0], nil
}

func (ls *lessonService) ListLessonsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Lesson, error) {
  return ls.lessonRepo.ListByUserID(ctx, tx, userID, limit, offset)
}

func (ls *lessonService) GetLatestRunForLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonGenerationRun, error) {
  if _, err := ls.GetLessonForUser(ctx, tx, userID, lessonID); err != nil {
    return nil, err
  }
  return ls.runRepo.GetLatestByLessonID(ctx, tx, lessonID)
}

func (ls *lessonService) GetRunByID(ctx context.Context, tx *gorm.DB, userID, runID uuid.UUID) (*types.LessonGenerationRun, error) {
  runs, err := ls.runRepo.GetByIDs(ctx, tx, []uuid.UUID{runID})
  if err != nil {
    return nil, err
  }
  if len(runs) == 0 || runs[0] == nil || runs[0].UserID != userID {
    return nil, fmt.Errorf("generation run %s: %w", runID, gorm.ErrRecordNotFound)
  }
  return runs[0], nil
}

func (ls *lessonService) ListImagesForLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) ([]*types.LessonImage, error) {
  if _, err := ls.GetLessonForUser(ctx, tx, userID, lessonID); err != nil {
    return nil, err
  }
  return ls.imageRepo.GetByLessonID(ctx, tx, lessonID)
}
