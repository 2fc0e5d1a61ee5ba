package lesson

// RetryState is where a generation run stands after an attempt reported its
// outcome. ParseFailed and QualityRejected both mean "retry with the same
// prompt"; they stay distinct states because quality rejections carry a lesson
// worth keeping and parse failures do not.
type RetryState int

const (
	StateAttempting RetryState = iota
	StateParseFailed
	StateQualityRejected
	StateAccepted
	StateExhausted
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateParseFailed:
		return "parse_failed"
	case StateQualityRejected:
		return "quality_rejected"
	case StateAccepted:
		return "accepted"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Terminal reports whether the run is over.
func (s RetryState) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// Retryable reports whether another attempt should be issued.
func (s RetryState) Retryable() bool {
	return s == StateParseFailed || s == StateQualityRejected
}

// AttemptEvent is the outcome one attempt reports to the machine.
type AttemptEvent int

const (
	EventTransportFailed AttemptEvent = iota
	EventParseFailed
	EventQualityRejected
	EventAccepted
)

func (e AttemptEvent) String() string {
	switch e {
	case EventTransportFailed:
		return "transport_failed"
	case EventParseFailed:
		return "parse_failed"
	case EventQualityRejected:
		return "quality_rejected"
	case EventAccepted:
		return "accepted"
	}
	return "unknown"
}

// Cause maps the event onto the failure taxonomy used when a run exhausts.
func (e AttemptEvent) Cause() FailureCause {
	switch e {
	case EventParseFailed:
		return CauseParse
	case EventQualityRejected:
		return CauseQuality
	default:
		return CauseTransport
	}
}

// RetryPolicy bounds a generation run. MaxAttempts counts the first call, so 3
// means one call plus at most two retries.
type RetryPolicy struct {
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3}
}

// Transition computes the state after attempt number attempt (1-based) reports
// ev. Pure function: the full retry behavior is testable without a model, a
// clock, or a network. Transport failures transition like parse failures, no
// lesson was obtained either way.
func (p RetryPolicy) Transition(attempt int, ev AttemptEvent) RetryState {
	if ev == EventAccepted {
		return StateAccepted
	}
	if attempt >= p.MaxAttempts {
		return StateExhausted
	}
	if ev == EventQualityRejected {
		return StateQualityRejected
	}
	return StateParseFailed
}
