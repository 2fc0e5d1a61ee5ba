package lesson

import "testing"

func TestTransition_AcceptedAlwaysTerminal(t *testing.T) {
	p := DefaultRetryPolicy()
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if got := p.Transition(attempt, EventAccepted); got != StateAccepted {
			t.Fatalf("attempt %d: expected accepted, got %v", attempt, got)
		}
	}
}

func TestTransition_FailuresRetryUntilBound(t *testing.T) {
	p := DefaultRetryPolicy()

	if got := p.Transition(1, EventTransportFailed); got != StateParseFailed {
		t.Fatalf("expected parse_failed, got %v", got)
	}
	if got := p.Transition(2, EventParseFailed); got != StateParseFailed {
		t.Fatalf("expected parse_failed, got %v", got)
	}
	if got := p.Transition(2, EventQualityRejected); got != StateQualityRejected {
		t.Fatalf("expected quality_rejected, got %v", got)
	}
	if !StateParseFailed.Retryable() || !StateQualityRejected.Retryable() {
		t.Fatalf("intermediate failures must be retryable")
	}
}

func TestTransition_ThirdAttemptExhausts(t *testing.T) {
	p := DefaultRetryPolicy()
	for _, ev := range []AttemptEvent{EventTransportFailed, EventParseFailed, EventQualityRejected} {
		if got := p.Transition(p.MaxAttempts, ev); got != StateExhausted {
			t.Fatalf("event %v at bound: expected exhausted, got %v", ev, got)
		}
	}
	if !StateExhausted.Terminal() || !StateAccepted.Terminal() {
		t.Fatalf("exhausted and accepted must be terminal")
	}
	if StateParseFailed.Terminal() || StateQualityRejected.Terminal() {
		t.Fatalf("retryable states must not be terminal")
	}
}

func TestTransition_AttemptCountBoundsRun(t *testing.T) {
	// walking the machine with nothing but failures spends exactly MaxAttempts
	p := DefaultRetryPolicy()
	attempts := 0
	state := StateAttempting
	for !state.Terminal() {
		attempts++
		state = p.Transition(attempts, EventParseFailed)
	}
	if attempts != p.MaxAttempts {
		t.Fatalf("expected exactly %d attempts, got %d", p.MaxAttempts, attempts)
	}
}

func TestAttemptEvent_CauseMapping(t *testing.T) {
	if EventTransportFailed.Cause() != CauseTransport {
		t.Fatalf("transport event must map to transport cause")
	}
	if EventParseFailed.Cause() != CauseParse {
		t.Fatalf("parse event must map to parse cause")
	}
	if EventQualityRejected.Cause() != CauseQuality {
		t.Fatalf("quality event must map to quality cause")
	}
}

func TestGenerationFailedError_Messages(t *testing.T) {
	parse := &GenerationFailedError{Cause: CauseParse, Attempts: 3}
	if got := parse.Error(); got != "lesson generation failed: model returned unparseable JSON after 3 attempts" {
		t.Fatalf("unexpected parse message: %q", got)
	}
	transport := &GenerationFailedError{Cause: CauseTransport, Attempts: 3}
	if got := transport.Error(); got != "lesson generation failed: model call failed after 3 attempts" {
		t.Fatalf("unexpected transport message: %q", got)
	}
}
