// Package expect evaluates one HTTP response against one expectation
// descriptor. It is pure: no I/O, every mismatch becomes a textual reason
// collected into an Outcome.
package expect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hypesilico/apicheck/internal/fetch"
	"github.com/hypesilico/apicheck/internal/fixture"
	"github.com/hypesilico/apicheck/internal/jsonval"
)

// Outcome accumulates the failure reasons of one check. Reasons are
// collected, never short-circuited per field, so a single check can report
// several simultaneous mismatches.
type Outcome struct {
	failures []string
}

// Failf records one failure reason.
func (o *Outcome) Failf(format string, args ...any) {
	o.failures = append(o.failures, fmt.Sprintf(format, args...))
}

func (o *Outcome) Passed() bool { return len(o.failures) == 0 }

func (o *Outcome) Failures() []string { return o.failures }

// Message is "OK" on success, otherwise the reasons joined with "; ".
func (o *Outcome) Message() string {
	if len(o.failures) == 0 {
		return "OK"
	}
	return strings.Join(o.failures, "; ")
}

// Evaluate applies the generic algorithm shared by the endpoint families:
// status short-circuit, required-field presence, then literal field
// comparison with the configured decimal tolerance.
func Evaluate(resp fetch.Response, d *fixture.Descriptor, tolerancePlaces int) Outcome {
	var o Outcome
	if StatusFailed(&o, resp) {
		return o
	}
	if d == nil {
		return o
	}
	CheckRequiredFields(&o, resp.Body, d.HasFields)
	CheckFields(&o, resp.Body, d.Fields, tolerancePlaces)
	return o
}

// StatusFailed records the single "HTTP <status>: <body>" failure for any
// non-200 response and reports whether evaluation should stop. No field
// check ever runs against an error response.
func StatusFailed(o *Outcome, resp fetch.Response) bool {
	if resp.Status == 200 {
		return false
	}
	o.Failf("HTTP %d: %s", resp.Status, resp.BodyText())
	return true
}

// CheckRequiredFields verifies presence (not value) of every has_fields
// entry.
func CheckRequiredFields(o *Outcome, body jsonval.Value, fields []string) {
	for _, f := range fields {
		if !body.Has(f) {
			o.Failf("Missing field: %s", f)
		}
	}
}

// CheckFields compares every literal field expectation against the body.
// A missing field and a mismatched value are distinct reasons.
func CheckFields(o *Outcome, body jsonval.Value, fields []fixture.Field, tolerancePlaces int) {
	for _, f := range fields {
		actual, ok := body.Field(f.Key)
		if !ok {
			o.Failf("Missing expected field '%s' in response", f.Key)
			continue
		}
		if !f.Expected.Matches(actual, tolerancePlaces) {
			o.Failf("%s: expected %s, got %s",
				f.Key, displayExpected(f.Expected), displayActual(f.Expected, actual))
		}
	}
}

// CheckCount compares the length of a named array field against an exact
// expected count. The field name is fixed per endpoint family. A missing
// or non-array field counts as zero elements.
func CheckCount(o *Outcome, body jsonval.Value, field, label string, want int) {
	got := ArrayFieldLen(body, field)
	if got != want {
		o.Failf("%s: expected %d, got %d", label, want, got)
	}
}

// ArrayFieldLen returns the element count of a named array field, or zero
// when the field is absent or not an array.
func ArrayFieldLen(body jsonval.Value, field string) int {
	v, ok := body.Field(field)
	if !ok || !v.IsArray() {
		return 0
	}
	return v.Len()
}

// displayExpected prefixes tolerant decimal expectations with "~" to
// signal that an approximate comparison was used.
func displayExpected(e jsonval.Expected) string {
	if e.Approx() {
		return "~" + e.Display()
	}
	return e.Display()
}

func displayActual(e jsonval.Expected, actual jsonval.Value) string {
	switch {
	case e.Kind() == jsonval.ExpectString:
		return strconv.Quote(actual.String())
	case actual.Kind() == jsonval.KindArray, actual.Kind() == jsonval.KindObject:
		return actual.JSON()
	default:
		return actual.String()
	}
}
