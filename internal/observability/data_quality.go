package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fluentclass/fluentclass-backend/internal/pkg/ctxutil"
	"github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
)

var (
	missingSectionRe = regexp.MustCompile(`required section "([^"]+)" missing`)
	sectionPrefixRe  = regexp.MustCompile(`^(warmup|reading|vocabulary|comprehension|sentenceFrames|discussion|quiz)\b`)
)

type dqAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var dqAlerts dqAlertState

// ReportRepairNotes classifies the repair notes a normalization pass produced
// and feeds them into metrics plus (optionally) the alert webhook. Stage is
// the pipeline phase that produced the notes (preprocess, normalize,
// quality_gate).
func ReportRepairNotes(ctx context.Context, log *logger.Logger, stage string, notes []string, meta map[string]any) {
	if len(notes) == 0 {
		return
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			meta["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			meta["request_id"] = td.RequestID
		}
	}

	issueCounts := map[string]int{}
	sampleNotes := make([]string, 0, 3)
	for _, note := range notes {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		if len(sampleNotes) < 3 {
			sampleNotes = append(sampleNotes, note)
		}
		issue := classifyRepairNote(note)
		incDataQuality(stage, issue, repairNoteKey(note))
		issueCounts[issue]++
	}

	if log != nil {
		log.Warn("lesson repair notes recorded",
			"stage", stage,
			"issues", issueCounts,
			"sample_notes", sampleNotes,
			"meta", meta,
		)
	}
	sendDataQualityAlert(stage, issueCounts, sampleNotes, meta, log)
}

func classifyRepairNote(note string) string {
	lower := strings.ToLower(note)
	switch {
	case strings.Contains(lower, "required section"):
		return "missing_section"
	case strings.Contains(lower, "dropped") || strings.Contains(lower, "discarded"):
		return "dropped_content"
	case strings.Contains(lower, "inserted error placeholder") || strings.Contains(lower, "marked missing"):
		return "placeholder_inserted"
	case strings.Contains(lower, "defaulted to first option") || strings.Contains(lower, "not among options"):
		return "answer_reset"
	case strings.Contains(lower, "defaulted"):
		return "defaulted_field"
	case strings.Contains(lower, "normalized to"):
		return "respelled_type"
	case strings.Contains(lower, "reflowed"):
		return "reflowed_reading"
	case strings.Contains(lower, "need >=") || strings.Contains(lower, "needs >=") || strings.Contains(lower, "below the"):
		return "thin_reading"
	default:
		return "repair_note"
	}
}

// repairNoteKey extracts the section the note is about, when it names one.
func repairNoteKey(note string) string {
	if match := missingSectionRe.FindStringSubmatch(note); len(match) == 2 {
		return match[1]
	}
	if match := sectionPrefixRe.FindString(note); match != "" {
		return match
	}
	return ""
}

func incDataQuality(stage, issue, key string) {
	metrics := Current()
	if metrics == nil {
		return
	}
	metrics.IncDataQuality(stage, issue, key)
}

func dataQualityAlertsEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("DATA_QUALITY_ALERTS_ENABLED")))
	if v == "" {
		return false
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func dataQualityAlertWebhook() string {
	return strings.TrimSpace(os.Getenv("DATA_QUALITY_ALERT_WEBHOOK_URL"))
}

func dataQualityAlertMinInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("DATA_QUALITY_ALERT_MIN_INTERVAL_SECONDS"))
	if raw == "" {
		return 5 * time.Minute
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}

func sendDataQualityAlert(stage string, issueCounts map[string]int, sampleNotes []string, meta map[string]any, log *logger.Logger) {
	if !dataQualityAlertsEnabled() {
		return
	}
	webhook := dataQualityAlertWebhook()
	if webhook == "" || len(issueCounts) == 0 {
		return
	}
	key := stage
	dqAlerts.mu.Lock()
	if dqAlerts.last == nil {
		dqAlerts.last = map[string]time.Time{}
	}
	last := dqAlerts.last[key]
	minInterval := dataQualityAlertMinInterval()
	if !last.IsZero() && time.Since(last) < minInterval {
		dqAlerts.mu.Unlock()
		return
	}
	dqAlerts.last[key] = time.Now()
	dqAlerts.mu.Unlock()

	payload := map[string]any{
		"title":        "Lesson repair notes",
		"stage":        stage,
		"issues":       issueCounts,
		"sample_notes": sampleNotes,
		"meta":         meta,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("data quality alert request build failed", "error", err, "stage", stage)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("data quality alert post failed", "error", err, "stage", stage)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("data quality alert sent", "stage", stage, "status", resp.StatusCode)
	}
}
