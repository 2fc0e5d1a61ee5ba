package services

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "testing"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/modules/lesson"
  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/types"
)

type scriptedTextClient struct {
  responses []string
  errs      []error
  calls     int
}

func (c *scriptedTextClient) GenerateJSONText(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
  i := c.calls
  c.calls++
  if i >= len(c.responses) {
    i = len(c.responses) - 1
  }
  return c.responses[i], c.errs[i]
}

func (c *scriptedTextClient) Name() string  { return "scripted" }
func (c *scriptedTextClient) Model() string { return "scripted-model" }

type callLogCapture struct {
  entries []*types.AICallLog
}

func (r *callLogCapture) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
  r.entries = append(r.entries, logs...)
  return logs, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return log
}

func newGenService(t *testing.T, client *scriptedTextClient, capture *callLogCapture) *lessonGenerationService {
  t.Helper()
  return &lessonGenerationService{
    log:          newTestLogger(t),
    callLogRepo:  capture,
    aiClient:     client,
    policy:       lesson.DefaultRetryPolicy(),
    requirements: lesson.DefaultLessonRequirements(),
  }
}

func testParams() lesson.LessonParameters {
  return lesson.LessonParameters{
    Level:           lesson.LevelB1,
    Topic:           "ordering food in a restaurant",
    Focus:           "polite requests",
    DurationMinutes: 30,
  }
}

// fullLessonJSON produces a response whose reading passage clears the
// five-paragraph, three-sentence bar.
func fullLessonJSON() string {
  sentences := make([]string, 0, 15)
  for i := 0; i < 15; i++ {
    sentences = append(sentences, fmt.Sprintf("Sentence number %d talks about ordering food politely.", i+1))
  }
  return fmt.Sprintf(`{
    "title": "Ordering Food",
    "level": "B1",
    "focus": "polite requests",
    "estimatedTime": 30,
    "sections": [
      {"type": "warmup", "questions": ["Do you eat out often?"]},
      {"type": "reading", "text": %q},
      {"type": "vocabulary", "words": [{"word": "menu", "definition": "a list of dishes", "example": "Could I see the menu?"}]},
      {"type": "comprehension", "questions": ["What did the customer order?"]},
      {"type": "discussion", "questions": ["What is your favourite restaurant?"]}
    ]
  }`, strings.Join(sentences, " "))
}

func shortLessonJSON() string {
  return `{
    "title": "Ordering Food",
    "level": "B1",
    "sections": [
      {"type": "reading", "text": "Only one sentence here."}
    ]
  }`
}

func TestGenerate_TransportFailuresThenSuccess(t *testing.T) {
  client := &scriptedTextClient{
    responses: []string{"", "", fullLessonJSON()},
    errs:      []error{errors.New("upstream 503"), errors.New("upstream timeout"), nil},
  }
  capture := &callLogCapture{}
  svc := newGenService(t, client, capture)

  res, err := svc.generate(context.Background(), uuid.New(), nil, testParams(), nil)
  if err != nil {
    t.Fatalf("generate: %v", err)
  }
  if client.calls != 3 {
    t.Fatalf("expected 3 upstream calls, got %d", client.calls)
  }
  if !res.QualityPassed {
    t.Fatalf("expected quality pass, issues: %v", res.QualityIssues)
  }
  if res.Attempts != 3 {
    t.Fatalf("expected attempts=3, got %d", res.Attempts)
  }
  if res.Lesson == nil || res.Lesson.Reading() == nil {
    t.Fatalf("expected a normalized lesson with a reading section")
  }
  if len(capture.entries) != 3 {
    t.Fatalf("expected one call log per attempt, got %d", len(capture.entries))
  }
  if capture.entries[0].Success || !capture.entries[2].Success {
    t.Fatalf("call log success flags wrong: %+v", capture.entries)
  }
}

func TestGenerate_FencedResponseStillParses(t *testing.T) {
  client := &scriptedTextClient{
    responses: []string{"```json\n" + fullLessonJSON() + "\n```"},
    errs:      []error{nil},
  }
  svc := newGenService(t, client, &callLogCapture{})

  res, err := svc.generate(context.Background(), uuid.New(), nil, testParams(), nil)
  if err != nil {
    t.Fatalf("generate: %v", err)
  }
  if client.calls != 1 || !res.QualityPassed {
    t.Fatalf("fenced JSON should be accepted first try (calls=%d, passed=%v)", client.calls, res.QualityPassed)
  }
}

func TestGenerate_QualityExhaustionReturnsFlaggedLesson(t *testing.T) {
  client := &scriptedTextClient{
    responses: []string{shortLessonJSON()},
    errs:      []error{nil},
  }
  svc := newGenService(t, client, &callLogCapture{})

  res, err := svc.generate(context.Background(), uuid.New(), nil, testParams(), nil)
  if err != nil {
    t.Fatalf("quality exhaustion must not be an error: %v", err)
  }
  if client.calls != svc.policy.MaxAttempts {
    t.Fatalf("expected %d attempts, got %d", svc.policy.MaxAttempts, client.calls)
  }
  if res.QualityPassed {
    t.Fatalf("expected flagged lesson")
  }
  if len(res.QualityIssues) == 0 {
    t.Fatalf("expected quality issues on the flagged result")
  }
  if res.Lesson == nil {
    t.Fatalf("flagged result must still carry the lesson")
  }
}

func TestGenerate_ParseExhaustionReturnsError(t *testing.T) {
  client := &scriptedTextClient{
    responses: []string{"definitely not json"},
    errs:      []error{nil},
  }
  svc := newGenService(t, client, &callLogCapture{})

  res, err := svc.generate(context.Background(), uuid.New(), nil, testParams(), nil)
  if res != nil {
    t.Fatalf("expected no result, got %+v", res)
  }
  var genErr *lesson.GenerationFailedError
  if !errors.As(err, &genErr) {
    t.Fatalf("expected GenerationFailedError, got %v", err)
  }
  if genErr.Attempts != svc.policy.MaxAttempts {
    t.Fatalf("expected attempts=%d, got %d", svc.policy.MaxAttempts, genErr.Attempts)
  }
}

func TestGenerate_CancelledContextStopsRetrying(t *testing.T) {
  ctx, cancel := context.WithCancel(context.Background())
  cancel()
  client := &scriptedTextClient{responses: []string{""}, errs: []error{errors.New("unused")}}
  svc := newGenService(t, client, &callLogCapture{})

  _, err := svc.generate(ctx, uuid.New(), nil, testParams(), nil)
  if !errors.Is(err, context.Canceled) {
    t.Fatalf("expected context.Canceled, got %v", err)
  }
  if client.calls != 0 {
    t.Fatalf("no upstream call should happen after cancellation, got %d", client.calls)
  }
}

func TestStripCodeFences(t *testing.T) {
  cases := []struct {
    in   string
    want string
  }{
    {`{"a":1}`, `{"a":1}`},
    {"```json\n{\"a\":1}\n```", `{"a":1}`},
    {"```\n{\"a\":1}\n```", `{"a":1}`},
    {"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
  }
  for _, tc := range cases {
    if got := stripCodeFences(tc.in); got != tc.want {
      t.Fatalf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
    }
  }
}
