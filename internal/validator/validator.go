// Package validator implements one validator per endpoint family of the
// service under test. Each validator builds the request for its endpoint,
// issues a single fetch and evaluates the declared expectation into a
// Result.
package validator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hypesilico/apicheck/internal/expect"
	"github.com/hypesilico/apicheck/internal/fetch"
	"github.com/hypesilico/apicheck/internal/fixture"
	"github.com/hypesilico/apicheck/internal/jsonval"
)

// Endpoint paths are fixed per family, as is the array field each count
// check measures.
const (
	PathPnL         = "/v1/pnl"
	PathTrades      = "/v1/trades"
	PathPositions   = "/v1/positions/history"
	PathDeposits    = "/v1/deposits"
	PathLeaderboard = "/v1/leaderboard"
)

// Result is one evaluated check. Immutable once constructed; the runner
// only reads it.
type Result struct {
	Name    string
	Passed  bool
	Message string
	// Expected is the expectation the check was evaluated against.
	Expected any
	// Actual is the observed response or status; nil when the check
	// passed.
	Actual any
}

// Validator runs family-specific checks through a shared fetch client and
// tolerance setting.
type Validator struct {
	client    *fetch.Client
	tolerance int
}

func New(client *fetch.Client, tolerancePlaces int) *Validator {
	return &Validator{client: client, tolerance: tolerancePlaces}
}

// Run dispatches a per-user test to its family validator. The second
// return value is false when the test kind is unknown; the runner reports
// those as skipped.
func (v *Validator) Run(ctx context.Context, user fixture.User, t fixture.UserTest) (Result, bool) {
	switch t.Kind {
	case fixture.KindPnL:
		return v.UserEndpoint(ctx, user.Address, PathPnL, t), true
	case fixture.KindTrades:
		return v.Trades(ctx, user.Address, t), true
	case fixture.KindPositions:
		return v.Positions(ctx, user.Address, t), true
	case fixture.KindDeposits:
		return v.Deposits(ctx, user.Address, t), true
	case fixture.KindUnknown:
		return Result{}, false
	}
	return Result{}, false
}

// Health checks a status code and, when declared, a substring of the raw
// body. An absent expected_body means no body check at all.
func (v *Validator) Health(ctx context.Context, t fixture.HealthTest) Result {
	resp := v.client.Get(ctx, t.Endpoint, nil)

	statusOK := resp.Status == t.ExpectedStatus
	bodyOK := t.ExpectedBody == nil || strings.Contains(resp.BodyText(), *t.ExpectedBody)
	passed := statusOK && bodyOK

	message := "OK"
	if !passed {
		message = fmt.Sprintf("Status=%d (expected %d)", resp.Status, t.ExpectedStatus)
		if !bodyOK {
			message += fmt.Sprintf(", Body=%q (expected %q)", resp.BodyText(), *t.ExpectedBody)
		}
	}

	expected := map[string]any{"status": t.ExpectedStatus}
	if t.ExpectedBody != nil {
		expected["body"] = *t.ExpectedBody
	}

	r := Result{
		Name:     t.Endpoint,
		Passed:   passed,
		Message:  message,
		Expected: expected,
	}
	if !passed {
		r.Actual = map[string]any{"status": resp.Status, "body": resp.BodyText()}
	}
	return r
}

// ErrorCase asserts only the failure status of a negative test. The body
// is never inspected: these tests assert failure shape, not content.
func (v *Validator) ErrorCase(ctx context.Context, t fixture.ErrorTest) Result {
	resp := v.client.Get(ctx, t.Endpoint, t.Params)

	passed := resp.Status == t.ExpectedStatus
	message := "OK"
	if !passed {
		message = fmt.Sprintf("Expected status %d, got %d", t.ExpectedStatus, resp.Status)
	}

	r := Result{
		Name:     testName(t.Endpoint, t.Description),
		Passed:   passed,
		Message:  message,
		Expected: map[string]any{"status": t.ExpectedStatus},
	}
	if !passed {
		r.Actual = map[string]any{
			"status":   resp.Status,
			"response": truncate(resp.BodyText(), 100),
		}
	}
	return r
}

// UserEndpoint runs the full generic evaluation for a user-scoped
// endpoint: identity parameter plus declared params, then every field of
// the descriptor.
func (v *Validator) UserEndpoint(ctx context.Context, address, endpoint string, t fixture.UserTest) Result {
	resp := v.client.Get(ctx, endpoint, withUser(address, t.Params))
	o := expect.Evaluate(resp, t.Expected, v.tolerance)
	return v.finish(testName(endpoint, t.Name), t, resp, o)
}

// Trades checks required fields plus the exact length of the trades array
// against trade_count.
func (v *Validator) Trades(ctx context.Context, address string, t fixture.UserTest) Result {
	resp := v.client.Get(ctx, PathTrades, withUser(address, t.Params))

	var o expect.Outcome
	if !expect.StatusFailed(&o, resp) {
		d := t.Expected
		expect.CheckRequiredFields(&o, resp.Body, d.HasFields)
		expect.CheckFields(&o, resp.Body, d.Fields, v.tolerance)
		if d.TradeCount != nil {
			expect.CheckCount(&o, resp.Body, "trades", "trade_count", *d.TradeCount)
		}
	}

	r := v.finish(testName(PathTrades, t.Name), t, resp, o)
	if !r.Passed && resp.JSON {
		r.Actual = map[string]any{"trade_count": expect.ArrayFieldLen(resp.Body, "trades")}
	}
	return r
}

// Positions checks required fields plus the exact length of the snapshots
// array against snapshot_count.
func (v *Validator) Positions(ctx context.Context, address string, t fixture.UserTest) Result {
	resp := v.client.Get(ctx, PathPositions, withUser(address, t.Params))

	var o expect.Outcome
	if !expect.StatusFailed(&o, resp) {
		d := t.Expected
		expect.CheckRequiredFields(&o, resp.Body, d.HasFields)
		expect.CheckFields(&o, resp.Body, d.Fields, v.tolerance)
		if d.SnapshotCount != nil {
			expect.CheckCount(&o, resp.Body, "snapshots", "snapshot_count", *d.SnapshotCount)
		}
	}

	return v.finish(testName(PathPositions, t.Name), t, resp, o)
}

// Deposits checks the depositCount integer field exactly and the
// totalDeposits field with tolerant decimal comparison.
func (v *Validator) Deposits(ctx context.Context, address string, t fixture.UserTest) Result {
	resp := v.client.Get(ctx, PathDeposits, withUser(address, t.Params))

	var o expect.Outcome
	if !expect.StatusFailed(&o, resp) {
		d := t.Expected
		expect.CheckRequiredFields(&o, resp.Body, d.HasFields)
		expect.CheckFields(&o, resp.Body, d.Fields, v.tolerance)

		if d.DepositCount != nil {
			actual, _ := resp.Body.Field("depositCount")
			if !jsonval.IntExpected(int64(*d.DepositCount)).Matches(actual, v.tolerance) {
				o.Failf("depositCount: expected %d, got %s", *d.DepositCount, actual.String())
			}
		}
		if d.TotalDeposits != nil {
			actual, ok := resp.Body.Field("totalDeposits")
			actualText := "0" // absent totals compare as zero
			if ok {
				actualText = actual.String()
			}
			if !jsonval.ApproxEqual(*d.TotalDeposits, actualText, v.tolerance) {
				o.Failf("totalDeposits: expected ~%s, got %s", *d.TotalDeposits, actual.String())
			}
		}
	}

	return v.finish(testName(PathDeposits, t.Name), t, resp, o)
}

// Leaderboard checks the shape of the whole-body response: array-ness when
// is_array is set and a minimum entry count. The count check is skipped
// when the body is not an array.
func (v *Validator) Leaderboard(ctx context.Context, t fixture.LeaderboardTest) Result {
	resp := v.client.Get(ctx, PathLeaderboard, t.Params)

	var o expect.Outcome
	if !expect.StatusFailed(&o, resp) {
		d := t.Expected
		if d.IsArray && !resp.Body.IsArray() {
			o.Failf("Expected array, got %s", resp.Body.Kind())
		}
		if resp.Body.IsArray() {
			for _, min := range []*int{d.EntryCountMin, d.MinCount} {
				if min != nil && resp.Body.Len() < *min {
					o.Failf("Expected at least %d entries, got %d", *min, resp.Body.Len())
				}
			}
		}
	}

	label := t.Description
	if label == "" {
		label = paramsLabel(t.Params)
	}

	r := Result{
		Name:     testName(PathLeaderboard, label),
		Passed:   o.Passed(),
		Message:  o.Message(),
		Expected: t.Expected.RawExpected(),
	}
	if !r.Passed {
		r.Actual = actualPayload(resp)
	}
	return r
}

func (v *Validator) finish(name string, t fixture.UserTest, resp fetch.Response, o expect.Outcome) Result {
	r := Result{
		Name:     name,
		Passed:   o.Passed(),
		Message:  o.Message(),
		Expected: t.Expected.RawExpected(),
	}
	if !r.Passed {
		r.Actual = actualPayload(resp)
	}
	return r
}

func actualPayload(resp fetch.Response) any {
	if resp.Status != 200 || !resp.JSON {
		return map[string]any{"status": resp.Status, "response": resp.BodyText()}
	}
	return resp.Body
}

func withUser(address string, params map[string]string) map[string]string {
	merged := map[string]string{"user": address}
	for k, val := range params {
		merged[k] = val
	}
	return merged
}

func testName(endpoint, label string) string {
	return endpoint + " [" + label + "]"
}

func paramsLabel(params map[string]string) string {
	q := url.Values{}
	for k, val := range params {
		q.Set(k, val)
	}
	return q.Encode()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
