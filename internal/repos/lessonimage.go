package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/types"
)

type LessonImageRepo interface {
  Create(ctx context.Context, tx *gorm.DB, images []*types.LessonImage) ([]*types.LessonImage, error)
  GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonImage, error)
  DeleteByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error
}

type lessonImageRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewLessonImageRepo(db *gorm.DB, baseLog *logger.Logger) LessonImageRepo {
  repoLog := baseLog.With("repo", "LessonImageRepo")
  return &lessonImageRepo{db: db, log: repoLog}
}

func (r *lessonImageRepo) Create(ctx context.Context, tx *gorm.DB, images []*types.LessonImage) ([]*types.LessonImage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(images) == 0 {
    return []*types.LessonImage{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&images).Error; err != nil {
    return nil, err
  }
  return images, nil
}

func (r *lessonImageRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonImage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.LessonImage
  if lessonID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("lesson_id = ?", lessonID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *lessonImageRepo) DeleteByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if lessonID == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("lesson_id = ?", lessonID).
    Delete(&types.LessonImage{}).Error
}
