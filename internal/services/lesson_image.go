package services

import (
  "bytes"
  "context"
  "fmt"
  "image/color"
  "os"
  "strings"
  "time"

  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "github.com/google/uuid"
  "golang.org/x/image/font"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/clients/ai"
  "github.com/fluentclass/fluentclass-backend/internal/clients/gcp"
  "github.com/fluentclass/fluentclass-backend/internal/modules/lesson"
  "github.com/fluentclass/fluentclass-backend/internal/observability"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/dbctx"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/repos"
  "github.com/fluentclass/fluentclass-backend/internal/types"
  "github.com/fluentclass/fluentclass-backend/internal/utils"
)

// LessonImageService illustrates a stored lesson: one image per illustratable
// section, generated concurrently. Prompts that fail get a locally rendered
// card with the section label, so the frontend never shows a broken link.
type LessonImageService interface {
  DecorateLesson(ctx context.Context, row *types.Lesson, lsn *lesson.Lesson) ([]*types.LessonImage, error)
}

type lessonImageService struct {
  db  *gorm.DB
  log *logger.Logger

  imageRepo repos.LessonImageRepo
  bucket    gcp.BucketService
  client    ai.ImageClient

  concurrency int
  callTimeout time.Duration
  cardColors  []color.NRGBA
  cardFace    font.Face
}

func NewLessonImageService(
  db *gorm.DB,
  baseLog *logger.Logger,
  imageRepo repos.LessonImageRepo,
  bucket gcp.BucketService,
  client ai.ImageClient,
) (LessonImageService, error) {
  log := baseLog.With("service", "LessonImageService")
  if bucket == nil {
    return nil, fmt.Errorf("bucket service required")
  }

  timeoutSec := utils.GetEnvAsInt("IMAGE_TIMEOUT_SECONDS", 45, baseLog)
  if timeoutSec < 30 {
    timeoutSec = 30
  }
  if timeoutSec > 60 {
    timeoutSec = 60
  }

  svc := &lessonImageService{
    db:          db,
    log:         log,
    imageRepo:   imageRepo,
    bucket:      bucket,
    client:      client,
    concurrency: utils.GetEnvAsInt("IMAGE_CONCURRENCY", 3, baseLog),
    callTimeout: time.Duration(timeoutSec) * time.Second,
    cardColors:  defaultCardColors(),
  }
  if svc.concurrency < 1 {
    svc.concurrency = 1
  }

  if fontPath := strings.TrimSpace(os.Getenv("LESSON_CARD_FONT")); fontPath != "" {
    face, err := loadCardFontFace(fontPath, 42)
    if err != nil {
      return nil, fmt.Errorf("could not load lesson card font: %w", err)
    }
    svc.cardFace = face
  }

  return svc, nil
}

type sectionPrompt struct {
  SectionType lesson.SectionType
  Label       string
  Prompt      string
}

func (is *lessonImageService) DecorateLesson(ctx context.Context, row *types.Lesson, lsn *lesson.Lesson) ([]*types.LessonImage, error) {
  if row == nil || lsn == nil {
    return nil, fmt.Errorf("lesson required")
  }

  prompts := buildSectionPrompts(lsn)
  if len(prompts) == 0 {
    return nil, nil
  }

  results := make([]*types.LessonImage, len(prompts))
  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(is.concurrency)
  for i, p := range prompts {
    g.Go(func() error {
      // per-prompt outcome is independent: a failure becomes a placeholder
      // card, never an error out of the group
      results[i] = is.generateOne(gctx, row, p)
      return nil
    })
  }
  _ = g.Wait()

  images := make([]*types.LessonImage, 0, len(results))
  for _, img := range results {
    if img != nil {
      images = append(images, img)
    }
  }
  if len(images) == 0 {
    return nil, nil
  }
  if _, err := is.imageRepo.Create(ctx, nil, images); err != nil {
    return nil, fmt.Errorf("store lesson images: %w", err)
  }
  return images, nil
}

func (is *lessonImageService) generateOne(ctx context.Context, row *types.Lesson, p sectionPrompt) *types.LessonImage {
  started := time.Now()

  var (
    data        []byte
    mime        string
    callErr     error
    placeholder bool
  )

  if is.client != nil {
    callCtx, cancel := context.WithTimeout(ctx, is.callTimeout)
    data, mime, callErr = is.client.GenerateImage(callCtx, p.Prompt)
    cancel()
  } else {
    callErr = fmt.Errorf("image client not configured")
  }

  if callErr != nil || len(data) == 0 {
    is.log.Warn("Image generation failed, rendering placeholder card",
      "lesson_id", row.ID,
      "section", string(p.SectionType),
      "error", errString(callErr),
    )
    card, renderErr := is.renderPlaceholderCard(p.Label)
    if renderErr != nil {
      is.log.Error("Placeholder card render failed", "section", string(p.SectionType), "error", renderErr)
      is.observeImage(string(p.SectionType), "failed", started)
      return nil
    }
    data, mime = card, "image/png"
    placeholder = true
  }

  key := fmt.Sprintf("lessons/%s/%s_%d.png", row.ID, string(p.SectionType), time.Now().UnixNano())
  if err := is.bucket.UploadFile(dbctx.Context{Ctx: ctx}, key, bytes.NewReader(data)); err != nil {
    is.log.Warn("Image upload failed", "lesson_id", row.ID, "key", key, "error", err)
    is.observeImage(string(p.SectionType), "failed", started)
    return nil
  }

  status := "generated"
  if placeholder {
    status = "placeholder"
  }
  is.observeImage(string(p.SectionType), status, started)

  now := time.Now()
  return &types.LessonImage{
    ID:          uuid.New(),
    LessonID:    row.ID,
    UserID:      row.UserID,
    SectionType: string(p.SectionType),
    Prompt:      p.Prompt,
    StorageKey:  key,
    URL:         is.bucket.GetPublicURL(key),
    MimeType:    mime,
    Placeholder: placeholder,
    Error:       errString(callErr),
    CreatedAt:   now,
    UpdatedAt:   now,
  }
}

func (is *lessonImageService) observeImage(kind, status string, started time.Time) {
  if m := observability.Current(); m != nil {
    m.ObserveImageRequest(kind, status, time.Since(started))
  }
}

// buildSectionPrompts picks the illustratable sections. Reading leads with
// the opening of the passage, vocabulary shows the target terms, warmup sets
// the topic scene.
func buildSectionPrompts(lsn *lesson.Lesson) []sectionPrompt {
  prompts := make([]sectionPrompt, 0, 3)

  if reading := lsn.Reading(); reading != nil && len(reading.Paragraphs) > 0 {
    opening := reading.Paragraphs[0]
    if !strings.Contains(opening, "Error") {
      prompts = append(prompts, sectionPrompt{
        SectionType: lesson.SectionReading,
        Label:       "Reading",
        Prompt:      "Soft storybook illustration, no text, depicting this scene: " + truncateForLog(opening, 300),
      })
    }
  }

  if vocab := lsn.Vocabulary(); vocab != nil {
    terms := make([]string, 0, len(vocab.Words))
    for _, w := range vocab.Words {
      if w.Term != "" && w.Term != "Error" {
        terms = append(terms, w.Term)
      }
    }
    if len(terms) > 0 {
      prompts = append(prompts, sectionPrompt{
        SectionType: lesson.SectionVocabulary,
        Label:       "Vocabulary",
        Prompt:      "Bright flat-design collage, no text, of objects representing: " + strings.Join(terms, ", "),
      })
    }
  }

  if strings.TrimSpace(lsn.Title) != "" {
    prompts = append(prompts, sectionPrompt{
      SectionType: lesson.SectionWarmup,
      Label:       "Warm-up",
      Prompt:      fmt.Sprintf("Welcoming watercolor scene, no text, introducing the topic of %q for an English lesson", lsn.Title),
    })
  }

  return prompts
}

// renderPlaceholderCard draws the section label on a colored background. The
// label text makes the failure visible instead of leaving a broken image.
func (is *lessonImageService) renderPlaceholderCard(label string) ([]byte, error) {
  const width, height = 768, 512

  dc := gg.NewContext(width, height)

  bg := is.cardColors[len(label)%len(is.cardColors)]
  dc.SetColor(bg)
  dc.DrawRectangle(0, 0, float64(width), float64(height))
  dc.Fill()

  if is.cardFace != nil {
    dc.SetFontFace(is.cardFace)
  }
  dc.SetColor(color.White)
  dc.DrawStringWrapped(label+"\n(image unavailable)", float64(width)/2, float64(height)/2, 0.5, 0.5, float64(width)-80, 1.5, gg.AlignCenter)

  var buf bytes.Buffer
  if err := dc.EncodePNG(&buf); err != nil {
    return nil, fmt.Errorf("failed to encode PNG: %w", err)
  }
  return buf.Bytes(), nil
}

func defaultCardColors() []color.NRGBA {
  return []color.NRGBA{
    {R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF},
    {R: 0x10, G: 0xB9, B: 0x81, A: 0xFF},
    {R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF},
    {R: 0x8B, G: 0x5C, B: 0xF6, A: 0xFF},
    {R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
  }
}

func loadCardFontFace(fontPath string, size float64) (font.Face, error) {
  fontBytes, err := os.ReadFile(fontPath)
  if err != nil {
    return nil, fmt.Errorf("failed to read font file: %w", err)
  }
  parsedFont, err := truetype.Parse(fontBytes)
  if err != nil {
    return nil, fmt.Errorf("failed to parse TTF: %w", err)
  }
  face := truetype.NewFace(parsedFont, &truetype.Options{
    Size:    size,
    DPI:     72,
    Hinting: font.HintingNone,
  })
  return face, nil
}
