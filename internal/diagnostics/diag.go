package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time     time.Time      `json:"time"`
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// ShowFailed describes a show call that returned err.
func ShowFailed(mode string, err error) Diagnostic {
	return Diagnostic{
		Time:     time.Now(),
		Severity: Err,
		Code:     "SHOW.FAILED",
		Summary:  "Frame push failed; downstream LEDs may show a mixed frame",
		Detail:   err.Error(),
		Evidence: map[string]any{"mode": mode},
	}
}
