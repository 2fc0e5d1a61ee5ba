package sse

import (
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger.New: %v", err)
  }
  t.Cleanup(log.Sync)
  return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
  t.Helper()
  select {
  case msg := <-ch:
    return msg
  case <-time.After(timeout):
    t.Fatalf("timed out waiting for SSE message")
  }
  return SSEMessage{}
}

func TestSSEHubRunProgressOrderingAndReconnect(t *testing.T) {
  hub := NewSSEHub(mustTestLogger(t))
  runID := uuid.New()
  channel := RunChannel(runID)

  clientA := hub.NewSSEClient(uuid.New())
  hub.AddChannel(clientA, channel)

  started := SSEMessage{Channel: channel, Event: SSEEventLessonGenerationStarted, Data: map[string]any{"attempt": 1}}
  progress := SSEMessage{Channel: channel, Event: SSEEventLessonGenerationProgress, Data: map[string]any{"attempt": 2}}
  hub.Broadcast(started)
  hub.Broadcast(progress)

  gotFirst := recvMessage(t, clientA.Outbound, time.Second)
  gotSecond := recvMessage(t, clientA.Outbound, time.Second)
  if gotFirst.Event != SSEEventLessonGenerationStarted {
    t.Fatalf("first event: want=%s got=%s", SSEEventLessonGenerationStarted, gotFirst.Event)
  }
  if gotSecond.Event != SSEEventLessonGenerationProgress {
    t.Fatalf("second event: want=%s got=%s", SSEEventLessonGenerationProgress, gotSecond.Event)
  }

  hub.CloseClient(clientA)
  select {
  case _, ok := <-clientA.Outbound:
    if ok {
      t.Fatalf("clientA outbound should be closed after disconnect")
    }
  case <-time.After(500 * time.Millisecond):
    t.Fatalf("timed out waiting for clientA channel close")
  }

  clientB := hub.NewSSEClient(uuid.New())
  hub.AddChannel(clientB, channel)
  finished := SSEMessage{Channel: channel, Event: SSEEventLessonGenerationFinished, Data: map[string]any{"attempt": 2}}
  hub.Broadcast(finished)
  gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
  if gotReconnect.Event != SSEEventLessonGenerationFinished {
    t.Fatalf("reconnect event: want=%s got=%s", SSEEventLessonGenerationFinished, gotReconnect.Event)
  }
}

func TestSSEHubUserChannelIsolation(t *testing.T) {
  hub := NewSSEHub(mustTestLogger(t))
  userA := uuid.New()
  userB := uuid.New()

  clientA := hub.NewSSEClient(userA)
  clientB := hub.NewSSEClient(userB)
  hub.AddChannel(clientA, UserChannel(userA))
  hub.AddChannel(clientB, UserChannel(userB))

  hub.Broadcast(SSEMessage{Channel: UserChannel(userA), Event: SSEEventLessonGenerationQueued})

  got := recvMessage(t, clientA.Outbound, time.Second)
  if got.Event != SSEEventLessonGenerationQueued {
    t.Fatalf("clientA event: want=%s got=%s", SSEEventLessonGenerationQueued, got.Event)
  }
  select {
  case msg := <-clientB.Outbound:
    t.Fatalf("clientB should not receive userA events, got=%s", msg.Event)
  case <-time.After(100 * time.Millisecond):
  }
}

func TestSSEHubRemoveChannelStopsDelivery(t *testing.T) {
  hub := NewSSEHub(mustTestLogger(t))
  runID := uuid.New()
  channel := RunChannel(runID)

  client := hub.NewSSEClient(uuid.New())
  hub.AddChannel(client, channel)
  hub.RemoveChannel(client, channel)

  hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventLessonGenerationFailed})

  select {
  case msg := <-client.Outbound:
    t.Fatalf("unsubscribed client should not receive events, got=%s", msg.Event)
  case <-time.After(100 * time.Millisecond):
  }
}
