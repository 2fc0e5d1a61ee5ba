package services

import (
  "bytes"
  "context"
  "errors"
  "io"
  "strings"
  "sync"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/modules/lesson"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/dbctx"
  "github.com/fluentclass/fluentclass-backend/internal/types"
)

type fakeImageClient struct {
  mu       sync.Mutex
  prompts  []string
  failWhen func(prompt string) bool
}

func (c *fakeImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
  c.mu.Lock()
  c.prompts = append(c.prompts, prompt)
  c.mu.Unlock()
  if c.failWhen != nil && c.failWhen(prompt) {
    return nil, "", errors.New("image upstream failed")
  }
  return []byte("png-bytes"), "image/png", nil
}

func (c *fakeImageClient) Name() string { return "fake-images" }

type memoryBucket struct {
  mu      sync.Mutex
  objects map[string][]byte
}

func newMemoryBucket() *memoryBucket {
  return &memoryBucket{objects: map[string][]byte{}}
}

func (b *memoryBucket) UploadFile(dbc dbctx.Context, key string, file io.Reader) error {
  data, err := io.ReadAll(file)
  if err != nil {
    return err
  }
  b.mu.Lock()
  b.objects[key] = data
  b.mu.Unlock()
  return nil
}

func (b *memoryBucket) DeleteFile(dbc dbctx.Context, key string) error {
  b.mu.Lock()
  delete(b.objects, key)
  b.mu.Unlock()
  return nil
}

func (b *memoryBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
  b.mu.Lock()
  defer b.mu.Unlock()
  data, ok := b.objects[key]
  if !ok {
    return nil, errors.New("not found")
  }
  return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memoryBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
  b.mu.Lock()
  defer b.mu.Unlock()
  keys := make([]string, 0, len(b.objects))
  for k := range b.objects {
    if strings.HasPrefix(k, prefix) {
      keys = append(keys, k)
    }
  }
  return keys, nil
}

func (b *memoryBucket) DeletePrefix(ctx context.Context, prefix string) error {
  b.mu.Lock()
  defer b.mu.Unlock()
  for k := range b.objects {
    if strings.HasPrefix(k, prefix) {
      delete(b.objects, k)
    }
  }
  return nil
}

func (b *memoryBucket) GetPublicURL(key string) string {
  return "https://cdn.test/" + key
}

type imageRepoCapture struct {
  created []*types.LessonImage
}

func (r *imageRepoCapture) Create(ctx context.Context, tx *gorm.DB, images []*types.LessonImage) ([]*types.LessonImage, error) {
  r.created = append(r.created, images...)
  return images, nil
}

func (r *imageRepoCapture) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.LessonImage, error) {
  return r.created, nil
}

func (r *imageRepoCapture) DeleteByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
  r.created = nil
  return nil
}

func newImageService(t *testing.T, client *fakeImageClient, bucket *memoryBucket, repo *imageRepoCapture) *lessonImageService {
  t.Helper()
  return &lessonImageService{
    log:         newTestLogger(t),
    imageRepo:   repo,
    bucket:      bucket,
    client:      client,
    concurrency: 2,
    callTimeout: 5 * time.Second,
    cardColors:  defaultCardColors(),
  }
}

func illustratableLesson() *lesson.Lesson {
  return &lesson.Lesson{
    Title: "At the Market",
    Level: lesson.LevelA2,
    Sections: []lesson.Section{
      lesson.ReadingSection{Paragraphs: []string{
        "Maria walks to the market every Saturday morning. She buys fresh bread and ripe tomatoes. The baker always greets her by name.",
      }},
      lesson.VocabularySection{Words: []lesson.VocabularyWord{
        {Term: "market", Definition: "a place to buy food"},
        {Term: "ripe", Definition: "ready to eat"},
      }},
    },
  }
}

func TestDecorateLesson_GeneratesOneImagePerSection(t *testing.T) {
  client := &fakeImageClient{}
  bucket := newMemoryBucket()
  repo := &imageRepoCapture{}
  svc := newImageService(t, client, bucket, repo)

  row := &types.Lesson{ID: uuid.New(), UserID: uuid.New()}
  images, err := svc.DecorateLesson(context.Background(), row, illustratableLesson())
  if err != nil {
    t.Fatalf("DecorateLesson: %v", err)
  }

  // reading + vocabulary + warmup (title)
  if len(images) != 3 {
    t.Fatalf("expected 3 images, got %d", len(images))
  }
  if len(repo.created) != 3 {
    t.Fatalf("expected images persisted, got %d", len(repo.created))
  }
  for _, img := range images {
    if img.Placeholder {
      t.Fatalf("no placeholder expected for section %s", img.SectionType)
    }
    if img.URL == "" || !strings.HasPrefix(img.StorageKey, "lessons/"+row.ID.String()+"/") {
      t.Fatalf("bad storage key/url: %q %q", img.StorageKey, img.URL)
    }
    if _, ok := bucket.objects[img.StorageKey]; !ok {
      t.Fatalf("object %q not uploaded", img.StorageKey)
    }
  }
}

func TestDecorateLesson_FailedPromptFallsBackToPlaceholder(t *testing.T) {
  client := &fakeImageClient{
    failWhen: func(prompt string) bool {
      return strings.Contains(prompt, "storybook")
    },
  }
  bucket := newMemoryBucket()
  repo := &imageRepoCapture{}
  svc := newImageService(t, client, bucket, repo)

  row := &types.Lesson{ID: uuid.New(), UserID: uuid.New()}
  images, err := svc.DecorateLesson(context.Background(), row, illustratableLesson())
  if err != nil {
    t.Fatalf("DecorateLesson: %v", err)
  }
  if len(images) != 3 {
    t.Fatalf("one failed prompt must not drop other images, got %d", len(images))
  }

  placeholders := 0
  for _, img := range images {
    if img.Placeholder {
      placeholders++
      if img.SectionType != string(lesson.SectionReading) {
        t.Fatalf("placeholder on wrong section %s", img.SectionType)
      }
      if img.Error == "" {
        t.Fatalf("placeholder rows must record the upstream error")
      }
      if img.MimeType != "image/png" {
        t.Fatalf("placeholder card should be png, got %s", img.MimeType)
      }
    }
  }
  if placeholders != 1 {
    t.Fatalf("expected exactly one placeholder, got %d", placeholders)
  }
}

func TestBuildSectionPrompts_SkipsErrorMarkedContent(t *testing.T) {
  lsn := &lesson.Lesson{
    Title: "Broken Lesson",
    Sections: []lesson.Section{
      lesson.ReadingSection{Paragraphs: []string{
        "Error: the reading passage was missing from the model response; regenerate the lesson to fill this in",
      }},
      lesson.VocabularySection{Words: []lesson.VocabularyWord{{Term: "Error"}}},
    },
  }

  prompts := buildSectionPrompts(lsn)
  for _, p := range prompts {
    if p.SectionType == lesson.SectionReading || p.SectionType == lesson.SectionVocabulary {
      t.Fatalf("error-marked section %s must not be illustrated", p.SectionType)
    }
  }
  if len(prompts) != 1 {
    t.Fatalf("only the warmup/title prompt should remain, got %d", len(prompts))
  }
}

func TestRenderPlaceholderCard_ProducesPNG(t *testing.T) {
  svc := newImageService(t, &fakeImageClient{}, newMemoryBucket(), &imageRepoCapture{})

  data, err := svc.renderPlaceholderCard("Reading")
  if err != nil {
    t.Fatalf("renderPlaceholderCard: %v", err)
  }
  if !bytes.HasPrefix(data, []byte("\x89PNG")) {
    t.Fatalf("expected PNG magic bytes, got %v", data[:4])
  }
}
