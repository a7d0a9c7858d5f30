package domain

import (
	"fmt"
	"strings"
	"time"
)

// TableStatus is the per-table pipeline outcome.
type TableStatus string

const (
	StatusPassed    TableStatus = "passed"
	StatusWarned    TableStatus = "passed_with_warnings"
	StatusFailed    TableStatus = "failed"
	StatusCancelled TableStatus = "cancelled"
)

// Publishable reports whether the table may be handed to exporters.
func (s TableStatus) Publishable() bool {
	return s == StatusPassed || s == StatusWarned
}

// TableReport is the validated, typed result of processing one source
// table, paired with its validation findings.
type TableReport struct {
	TableID  string              `json:"table_id"`
	Status   TableStatus         `json:"status"`
	Records  []CanonicalRecord   `json:"-"`
	Findings []ValidationFinding `json:"findings"`
	Metadata map[string]string   `json:"metadata,omitempty"`
	Duration time.Duration       `json:"duration"`
}

// AddFindings appends findings to the report.
func (r *TableReport) AddFindings(findings ...ValidationFinding) {
	r.Findings = append(r.Findings, findings...)
}

// RunReport aggregates per-table outcomes for one pipeline run.
type RunReport struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Attempted int            `json:"attempted"`
	Passed    int            `json:"passed"`
	Warned    int            `json:"warned"`
	Failed    int            `json:"failed"`
	Cancelled int            `json:"cancelled"`
	Tables    []*TableReport `json:"tables"`
}

// Add folds one table report into the aggregate counts.
func (r *RunReport) Add(t *TableReport) {
	r.Tables = append(r.Tables, t)
	r.Attempted++
	switch t.Status {
	case StatusPassed:
		r.Passed++
	case StatusWarned:
		r.Warned++
	case StatusFailed:
		r.Failed++
	case StatusCancelled:
		r.Cancelled++
	}
}

// ExitCode returns the CLI exit status: zero only if zero tables failed.
func (r *RunReport) ExitCode() int {
	if r.Failed > 0 {
		return 1
	}
	return 0
}

// Summary renders a human-readable run summary suitable for logs or CI.
func (r *RunReport) Summary() string {
	var b strings.Builder
	sep := strings.Repeat("=", 72)
	fmt.Fprintf(&b, "%s\nPIPELINE RUN %s\n%s\n", sep, r.RunID, sep)
	fmt.Fprintf(&b, "Attempted: %d  Passed: %d  Warned: %d  Failed: %d  Cancelled: %d\n",
		r.Attempted, r.Passed, r.Warned, r.Failed, r.Cancelled)
	for _, t := range r.Tables {
		errs, warns := CountBySeverity(t.Findings)
		fmt.Fprintf(&b, "  %-12s %-22s errors=%d warnings=%d rows=%d\n",
			t.TableID, t.Status, errs, warns, len(t.Records))
		for _, f := range t.Findings {
			if f.Severity == SeverityError {
				fmt.Fprintf(&b, "    - [%s] %s\n", f.Rule, f.Message)
			}
		}
	}
	b.WriteString(sep + "\n")
	return b.String()
}
