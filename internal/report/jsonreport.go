package report

import (
	"encoding/json"
	"io"

	"github.com/hypesilico/apicheck/internal/validator"
)

// JSONReporter emits one JSON object per event, newline-delimited, for CI
// and log pipelines. The final event is always the summary.
type JSONReporter struct {
	enc     *json.Encoder
	verbose bool
}

func NewJSONReporter(w io.Writer, verbose bool) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w), verbose: verbose}
}

type jsonEvent struct {
	Type        string `json:"type"`
	Group       string `json:"group,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Name        string `json:"name,omitempty"`
	Passed      *bool  `json:"passed,omitempty"`
	Message     string `json:"message,omitempty"`
	Expected    any    `json:"expected,omitempty"`
	Actual      any    `json:"actual,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// jsonSummary is its own shape so zero counts and a false success flag
// still serialize.
type jsonSummary struct {
	Type    string `json:"type"`
	Passes  int    `json:"passes"`
	Fails   int    `json:"fails"`
	Skips   int    `json:"skips"`
	Total   int    `json:"total"`
	Success bool   `json:"success"`
}

func (j *JSONReporter) GroupStart(name string) {
	j.enc.Encode(jsonEvent{Type: "group", Group: name})
}

func (j *JSONReporter) UserStart(address, description string) {
	j.enc.Encode(jsonEvent{Type: "user", Address: address, Description: description})
}

func (j *JSONReporter) Result(r validator.Result) {
	ev := jsonEvent{
		Type:    "result",
		Name:    r.Name,
		Passed:  &r.Passed,
		Message: r.Message,
	}
	if j.verbose {
		ev.Expected = r.Expected
		ev.Actual = r.Actual
	}
	j.enc.Encode(ev)
}

func (j *JSONReporter) Skip(name, reason string) {
	j.enc.Encode(jsonEvent{Type: "skip", Name: name, Reason: reason})
}

func (j *JSONReporter) Summary(s Summary) {
	j.enc.Encode(jsonSummary{
		Type:    "summary",
		Passes:  s.Passed,
		Fails:   s.Failed,
		Skips:   s.Skipped,
		Total:   s.Total,
		Success: s.AllPassed(),
	})
}
