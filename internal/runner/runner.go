// Package runner orchestrates a validation run: it walks the fixture's
// test groups in a fixed order, invokes the right validator for each
// declared test and aggregates the results.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hypesilico/apicheck/internal/fixture"
	"github.com/hypesilico/apicheck/internal/report"
	"github.com/hypesilico/apicheck/internal/validator"
)

// Runner executes every check in a fixture, strictly sequentially: each
// request completes and its result is recorded before the next begins.
type Runner struct {
	v      *validator.Validator
	rep    report.Reporter
	logger *slog.Logger
}

func New(v *validator.Validator, rep report.Reporter, logger *slog.Logger) *Runner {
	return &Runner{v: v, rep: rep, logger: logger}
}

// Run executes all groups in fixture order: health endpoints, negative
// cases, per-user tests, then the leaderboard. It returns the aggregate
// summary plus every recorded result; per-check failures never abort the
// run.
func (r *Runner) Run(ctx context.Context, fx *fixture.Fixture) (report.Summary, []validator.Result) {
	var results []validator.Result
	skipped := 0

	r.rep.GroupStart("Health Endpoints")
	for _, t := range fx.HealthTests {
		results = append(results, r.record(r.v.Health(ctx, t)))
	}

	if len(fx.ErrorTests) > 0 {
		r.rep.GroupStart("Error Tests (Negative Cases)")
		for _, t := range fx.ErrorTests {
			results = append(results, r.record(r.v.ErrorCase(ctx, t)))
		}
	}

	r.rep.GroupStart("User Endpoints")
	for _, user := range fx.Users {
		r.rep.UserStart(user.Address, user.Description)
		for _, t := range user.Tests {
			res, ok := r.v.Run(ctx, user, t)
			if !ok {
				skipped++
				reason := fmt.Sprintf("no validator for test type %q", t.Name)
				r.logger.Warn("skipping test with unknown type",
					"user", fixture.ShortAddr(user.Address), "test", t.Name)
				r.rep.Skip(t.Name, reason)
				continue
			}
			results = append(results, r.record(res))
		}
	}

	r.rep.GroupStart("Leaderboard Endpoints")
	for _, t := range fx.Leaderboard {
		results = append(results, r.record(r.v.Leaderboard(ctx, t)))
	}

	summary := report.Summary{Skipped: skipped}
	for _, res := range results {
		summary.Total++
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	r.rep.Summary(summary)
	return summary, results
}

func (r *Runner) record(res validator.Result) validator.Result {
	r.rep.Result(res)
	return res
}
