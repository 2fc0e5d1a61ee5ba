package lesson

import "fmt"

// FailureCause classifies why a generation run gave up.
type FailureCause string

const (
	CauseTransport FailureCause = "transport"
	CauseParse     FailureCause = "parse"
	CauseQuality   FailureCause = "quality"
)

// GenerationFailedError is returned once every attempt has been spent without
// obtaining a parseable lesson. Quality exhaustion does not surface through
// this error: the pipeline returns the last lesson flagged as below bar, so
// the student still gets usable material.
type GenerationFailedError struct {
	Cause    FailureCause
	Attempts int
	Last     error
}

func (e *GenerationFailedError) Error() string {
	switch e.Cause {
	case CauseParse:
		return fmt.Sprintf("lesson generation failed: model returned unparseable JSON after %d attempts", e.Attempts)
	case CauseQuality:
		return fmt.Sprintf("lesson generation failed: quality bar not met after %d attempts", e.Attempts)
	default:
		return fmt.Sprintf("lesson generation failed: model call failed after %d attempts", e.Attempts)
	}
}

func (e *GenerationFailedError) Unwrap() error { return e.Last }

// errorText builds the placeholder copy a teacher sees when a field could not
// be recovered. Every marker carries the literal substring "Error" so clients
// can style repaired fields distinctly from real content.
func errorText(msg string) string {
	return "Error: " + msg
}
