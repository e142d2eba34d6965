package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hypesilico/apicheck/internal/fetch"
	"github.com/hypesilico/apicheck/internal/fixture"
)

const testAddr = "0x1234567890abcdef1234567890abcdef12345678"

func newValidator(t *testing.T, handler http.HandlerFunc) *Validator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := fetch.New(srv.URL, fetch.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return New(c, 2)
}

func jsonHandler(routes map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func userTest(t *testing.T, name, expected string) fixture.UserTest {
	t.Helper()
	fx, err := fixture.Parse([]byte(`{"test_users":[{"address":"` + testAddr +
		`","tests":{"` + name + `":{"expected":` + expected + `}}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	return fx.Users[0].Tests[0]
}

func TestHealth(t *testing.T) {
	v := newValidator(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status": "ok"}`))
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("short and stout"))
		}
	})

	t.Run("status and body fragment pass", func(t *testing.T) {
		bodyFrag := "ok"
		r := v.Health(context.Background(), fixture.HealthTest{
			Name: "health", Endpoint: "/health", ExpectedStatus: 200, ExpectedBody: &bodyFrag,
		})
		if !r.Passed || r.Message != "OK" {
			t.Fatalf("result = %+v", r)
		}
	})

	t.Run("status mismatch", func(t *testing.T) {
		r := v.Health(context.Background(), fixture.HealthTest{
			Name: "teapot", Endpoint: "/teapot", ExpectedStatus: 200,
		})
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "Status=418 (expected 200)" {
			t.Errorf("message = %q", r.Message)
		}
	})

	t.Run("body fragment mismatch", func(t *testing.T) {
		bodyFrag := "healthy"
		r := v.Health(context.Background(), fixture.HealthTest{
			Name: "health", Endpoint: "/health", ExpectedStatus: 200, ExpectedBody: &bodyFrag,
		})
		if r.Passed {
			t.Fatal("expected failure")
		}
		want := `Status=200 (expected 200), Body="{\"status\": \"ok\"}" (expected "healthy")`
		if r.Message != want {
			t.Errorf("message = %q, want %q", r.Message, want)
		}
	})
}

func TestErrorCase(t *testing.T) {
	v := newValidator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "user required"}`))
			return
		}
		w.Write([]byte(`{}`))
	})

	t.Run("rejection matches", func(t *testing.T) {
		r := v.ErrorCase(context.Background(), fixture.ErrorTest{
			Name: "missing_user", Endpoint: "/v1/pnl", Description: "no user", ExpectedStatus: 400,
		})
		if !r.Passed {
			t.Fatalf("result = %+v", r)
		}
		if r.Name != "/v1/pnl [no user]" {
			t.Errorf("name = %q", r.Name)
		}
	})

	t.Run("unexpected acceptance", func(t *testing.T) {
		r := v.ErrorCase(context.Background(), fixture.ErrorTest{
			Name: "bad", Endpoint: "/v1/pnl", Description: "bad",
			Params: map[string]string{"user": testAddr}, ExpectedStatus: 400,
		})
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "Expected status 400, got 200" {
			t.Errorf("message = %q", r.Message)
		}
	})
}

func TestUserEndpointPnL(t *testing.T) {
	var gotUser string
	v := newValidator(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.URL.Query().Get("user")
		w.Write([]byte(`{"realizedPnl": "5.004", "equity": "1000.00", "isLiquidated": false}`))
	})

	test := userTest(t, "pnl", `{"has_fields": ["equity"], "realizedPnl": "5.00", "isLiquidated": false}`)
	r, ok := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
	if !ok {
		t.Fatal("pnl must be a known kind")
	}
	if !r.Passed {
		t.Fatalf("message = %q", r.Message)
	}
	if gotUser != testAddr {
		t.Errorf("user param = %q", gotUser)
	}
	if r.Name != "/v1/pnl [pnl]" {
		t.Errorf("name = %q", r.Name)
	}
}

func TestTradesCount(t *testing.T) {
	v := newValidator(t, jsonHandler(map[string]string{
		PathTrades: `{"trades": [{"coin": "BTC"}, {"coin": "ETH"}]}`,
	}))

	t.Run("count matches", func(t *testing.T) {
		test := userTest(t, "trades", `{"has_fields": ["trades"], "trade_count": 2}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if !r.Passed {
			t.Fatalf("message = %q", r.Message)
		}
	})

	t.Run("count mismatch reports observed length", func(t *testing.T) {
		test := userTest(t, "trades", `{"trade_count": 3}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "trade_count: expected 3, got 2" {
			t.Errorf("message = %q", r.Message)
		}
		actual, ok := r.Actual.(map[string]any)
		if !ok || actual["trade_count"] != 2 {
			t.Errorf("actual = %#v", r.Actual)
		}
	})
}

func TestPositionsCount(t *testing.T) {
	v := newValidator(t, jsonHandler(map[string]string{
		PathPositions: `{"snapshots": [1, 2, 3]}`,
	}))

	test := userTest(t, "positions_history", `{"snapshot_count": 4}`)
	r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
	if r.Passed {
		t.Fatal("expected failure")
	}
	if r.Message != "snapshot_count: expected 4, got 3" {
		t.Errorf("message = %q", r.Message)
	}
	if r.Name != "/v1/positions/history [positions_history]" {
		t.Errorf("name = %q", r.Name)
	}
}

func TestDeposits(t *testing.T) {
	t.Run("count and tolerant total", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathDeposits: `{"depositCount": 2, "totalDeposits": "500.004"}`,
		}))
		test := userTest(t, "deposits", `{"deposit_count": 2, "total_deposits": "500.00"}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if !r.Passed {
			t.Fatalf("message = %q", r.Message)
		}
	})

	t.Run("count mismatch", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathDeposits: `{"depositCount": 1, "totalDeposits": "500.00"}`,
		}))
		test := userTest(t, "deposits", `{"deposit_count": 2}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "depositCount: expected 2, got 1" {
			t.Errorf("message = %q", r.Message)
		}
	})

	t.Run("absent total compares as zero", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathDeposits: `{"depositCount": 0}`,
		}))
		test := userTest(t, "deposits", `{"deposit_count": 0, "total_deposits": "0.00"}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if !r.Passed {
			t.Fatalf("message = %q", r.Message)
		}
	})

	t.Run("total outside tolerance", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathDeposits: `{"depositCount": 2, "totalDeposits": "500.02"}`,
		}))
		test := userTest(t, "deposits", `{"total_deposits": "500.00"}`)
		r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "totalDeposits: expected ~500.00, got 500.02" {
			t.Errorf("message = %q", r.Message)
		}
	})
}

func TestLeaderboard(t *testing.T) {
	intp := func(n int) *int { return &n }

	t.Run("array with enough entries", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathLeaderboard: `[{"rank": 1}, {"rank": 2}, {"rank": 3}]`,
		}))
		r := v.Leaderboard(context.Background(), fixture.LeaderboardTest{
			Description: "top",
			Expected:    &fixture.Descriptor{IsArray: true, EntryCountMin: intp(3)},
		})
		if !r.Passed {
			t.Fatalf("message = %q", r.Message)
		}
		if r.Name != "/v1/leaderboard [top]" {
			t.Errorf("name = %q", r.Name)
		}
	})

	t.Run("object instead of array", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathLeaderboard: `{"entries": []}`,
		}))
		r := v.Leaderboard(context.Background(), fixture.LeaderboardTest{
			Description: "shape",
			Expected:    &fixture.Descriptor{IsArray: true, EntryCountMin: intp(5)},
		})
		if r.Passed {
			t.Fatal("expected failure")
		}
		// The count check never runs against a non-array body.
		if r.Message != "Expected array, got object" {
			t.Errorf("message = %q", r.Message)
		}
	})

	t.Run("too few entries", func(t *testing.T) {
		v := newValidator(t, jsonHandler(map[string]string{
			PathLeaderboard: `[{"rank": 1}]`,
		}))
		r := v.Leaderboard(context.Background(), fixture.LeaderboardTest{
			Expected: &fixture.Descriptor{IsArray: true, EntryCountMin: intp(5)},
			Params:   map[string]string{"window": "7d"},
		})
		if r.Passed {
			t.Fatal("expected failure")
		}
		if r.Message != "Expected at least 5 entries, got 1" {
			t.Errorf("message = %q", r.Message)
		}
		// Without a description the params label names the check.
		if r.Name != "/v1/leaderboard [window=7d]" {
			t.Errorf("name = %q", r.Name)
		}
	})
}

func TestRunUnknownKind(t *testing.T) {
	v := newValidator(t, jsonHandler(nil))
	test := fixture.UserTest{Name: "withdrawals", Kind: fixture.KindUnknown, Expected: &fixture.Descriptor{}}
	if _, ok := v.Run(context.Background(), fixture.User{Address: testAddr}, test); ok {
		t.Fatal("unknown kinds must not dispatch")
	}
}

func TestTransportFailureBecomesHTTPMinusOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c, err := fetch.New(srv.URL, fetch.Options{})
	if err != nil {
		t.Fatal(err)
	}
	v := New(c, 2)

	test := userTest(t, "pnl", `{"equity": "1.00"}`)
	r, _ := v.Run(context.Background(), fixture.User{Address: testAddr}, test)
	if r.Passed {
		t.Fatal("expected failure")
	}
	if got := r.Message; len(got) < len("HTTP -1: ") || got[:9] != "HTTP -1: " {
		t.Errorf("message = %q", got)
	}
}
