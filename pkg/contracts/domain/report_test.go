package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReport_AddAndExitCode(t *testing.T) {
	r := &RunReport{RunID: "run-1"}
	r.Add(&TableReport{TableID: "a", Status: StatusPassed})
	r.Add(&TableReport{TableID: "b", Status: StatusWarned})
	r.Add(&TableReport{TableID: "c", Status: StatusCancelled})

	assert.Equal(t, 3, r.Attempted)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 1, r.Warned)
	assert.Equal(t, 1, r.Cancelled)
	assert.Equal(t, 0, r.ExitCode(), "warnings and cancellations do not fail the run")

	r.Add(&TableReport{TableID: "d", Status: StatusFailed})
	assert.Equal(t, 1, r.ExitCode())
}

func TestTableStatus_Publishable(t *testing.T) {
	assert.True(t, StatusPassed.Publishable())
	assert.True(t, StatusWarned.Publishable())
	assert.False(t, StatusFailed.Publishable())
	assert.False(t, StatusCancelled.Publishable())
}

func TestRunReport_Summary(t *testing.T) {
	r := &RunReport{RunID: "run-42"}
	r.Add(&TableReport{
		TableID: "table10",
		Status:  StatusFailed,
		Findings: []ValidationFinding{
			Errorf(RuleArithmetic, "trade_balance", "104", "balance off by 5"),
			Warnf(RuleCompleteness, "year_month", "105", "period 105 missing"),
		},
	})

	out := r.Summary()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "table10")
	assert.Contains(t, out, "errors=1 warnings=1")
	assert.Contains(t, out, "[cross_field_arithmetic] balance off by 5")
	assert.False(t, strings.Contains(out, "period 105 missing"), "summary lists errors only")
}
