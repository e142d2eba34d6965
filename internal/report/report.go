// Package report receives structured run outcomes from the orchestrator
// and renders them. The comparison core never prints; it only emits
// Results into a Reporter.
package report

import (
	"github.com/hypesilico/apicheck/internal/validator"
)

// Reporter is the sink the runner writes outcomes to.
type Reporter interface {
	// GroupStart announces a test group, e.g. "Health Endpoints".
	GroupStart(name string)
	// UserStart announces the subject the following results belong to.
	UserStart(address, description string)
	// Result records one evaluated check.
	Result(r validator.Result)
	// Skip records a declared test that no validator handles.
	Skip(name, reason string)
	// Summary closes the run.
	Summary(s Summary)
}

// Summary is the aggregate of one validation run.
type Summary struct {
	Passed  int
	Failed  int
	Skipped int
	Total   int
}

// AllPassed reports run success. Skipped tests do not fail a run, but they
// are surfaced separately so a fixture newer than the validator is visible.
func (s Summary) AllPassed() bool { return s.Failed == 0 }
