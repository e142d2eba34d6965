// Package fixture loads and validates the golden-data fixture file that
// declares every check a validation run performs.
package fixture

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hypesilico/apicheck/internal/jsonval"
)

// DefaultTolerancePlaces is used when the fixture carries no
// validation_config.decimal_tolerance_places.
const DefaultTolerancePlaces = 2

// metaKeys are descriptor keys that alter interpretation instead of naming
// a response field. They are split out at load time and never compared as
// literal fields.
var metaKeys = map[string]bool{
	"has_fields":      true,
	"is_array":        true,
	"min_count":       true,
	"entry_count_min": true,
	"trade_count":     true,
	"snapshot_count":  true,
	"deposit_count":   true,
	"total_deposits":  true,
}

// IsMetaKey reports whether a descriptor key is reserved.
func IsMetaKey(key string) bool { return metaKeys[key] }

// Fixture is the fully parsed golden-data file. Maps in the source file are
// decoded in document order so runs are deterministic.
type Fixture struct {
	TolerancePlaces int
	HealthTests     []HealthTest
	ErrorTests      []ErrorTest
	Users           []User
	Leaderboard     []LeaderboardTest
}

// HealthTest asserts a status code and an optional body fragment.
type HealthTest struct {
	Name           string
	Endpoint       string
	ExpectedStatus int
	// ExpectedBody is a substring the body must contain; nil means no
	// body check at all, not "body must be empty".
	ExpectedBody *string
}

// ErrorTest asserts that an endpoint rejects a request with a given status.
type ErrorTest struct {
	Name           string
	Endpoint       string
	Description    string
	Params         map[string]string
	ExpectedStatus int
}

// User is one test subject with its declared per-endpoint tests.
type User struct {
	Address     string
	Description string
	Tests       []UserTest
}

// UserTest is one declared check for a user, routed by Kind.
type UserTest struct {
	Name     string
	Kind     TestKind
	Params   map[string]string
	Expected *Descriptor
}

// LeaderboardTest checks the shape of the leaderboard response.
type LeaderboardTest struct {
	Description string
	Params      map[string]string
	Expected    *Descriptor
}

// Field is one literal response-field expectation, with its comparison
// rule already resolved.
type Field struct {
	Key      string
	Expected jsonval.Expected
}

// Descriptor is a parsed expectation descriptor: the literal field
// expectations plus the reserved meta checks.
type Descriptor struct {
	HasFields     []string
	IsArray       bool
	MinCount      *int
	EntryCountMin *int
	TradeCount    *int
	SnapshotCount *int
	DepositCount  *int
	TotalDeposits *string
	Fields        []Field
}

// Load reads and parses the fixture file. Any failure here is fatal to the
// run: no HTTP calls may be made against a fixture that did not load.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse builds a Fixture from raw JSON.
func Parse(data []byte) (*Fixture, error) {
	root, err := jsonval.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if root.Kind() != jsonval.KindObject {
		return nil, fmt.Errorf("parse fixture: top level must be an object, got %s", root.Kind())
	}

	fx := &Fixture{TolerancePlaces: DefaultTolerancePlaces}

	if cfg, ok := root.Field("validation_config"); ok {
		if tol, ok := intField(cfg, "decimal_tolerance_places"); ok {
			if tol < 0 {
				return nil, fmt.Errorf("validation_config.decimal_tolerance_places must be non-negative, got %d", tol)
			}
			fx.TolerancePlaces = tol
		}
	}

	if ht, ok := root.Field("health_tests"); ok {
		for _, m := range ht.Members() {
			t, err := parseHealthTest(m.Key, m.Value)
			if err != nil {
				return nil, err
			}
			fx.HealthTests = append(fx.HealthTests, t)
		}
	}

	if et, ok := root.Field("error_tests"); ok {
		for _, m := range et.Members() {
			t, err := parseErrorTest(m.Key, m.Value)
			if err != nil {
				return nil, err
			}
			fx.ErrorTests = append(fx.ErrorTests, t)
		}
	}

	if tu, ok := root.Field("test_users"); ok {
		for i, elem := range tu.Elems() {
			u, err := parseUser(i, elem)
			if err != nil {
				return nil, err
			}
			fx.Users = append(fx.Users, u)
		}
	}

	if lb, ok := root.Field("leaderboard_tests"); ok {
		for i, elem := range lb.Elems() {
			t, err := parseLeaderboardTest(i, elem)
			if err != nil {
				return nil, err
			}
			fx.Leaderboard = append(fx.Leaderboard, t)
		}
	}

	return fx, nil
}

func parseHealthTest(name string, v jsonval.Value) (HealthTest, error) {
	t := HealthTest{Name: name, Endpoint: "/" + name, ExpectedStatus: 200}
	if ep, ok := v.Field("endpoint"); ok {
		t.Endpoint = ep.String()
	}
	if st, ok := intField(v, "expected_status"); ok {
		t.ExpectedStatus = st
	}
	if body, ok := v.Field("expected_body"); ok && body.Kind() != jsonval.KindNull {
		s := body.String()
		t.ExpectedBody = &s
	}
	return t, nil
}

func parseErrorTest(name string, v jsonval.Value) (ErrorTest, error) {
	t := ErrorTest{Name: name, Description: name, ExpectedStatus: 400}
	ep, ok := v.Field("endpoint")
	if !ok {
		return t, fmt.Errorf("error_tests.%s: endpoint is required", name)
	}
	t.Endpoint = ep.String()
	if st, ok := intField(v, "expected_status"); ok {
		t.ExpectedStatus = st
	}
	if d, ok := v.Field("description"); ok {
		t.Description = d.String()
	}
	t.Params = parseParams(v)
	return t, nil
}

func parseUser(i int, v jsonval.Value) (User, error) {
	addr, ok := v.Field("address")
	if !ok {
		return User{}, fmt.Errorf("test_users[%d]: address is required", i)
	}
	u := User{Address: addr.String()}
	if d, ok := v.Field("description"); ok {
		u.Description = d.String()
	}
	if tests, ok := v.Field("tests"); ok {
		for _, m := range tests.Members() {
			desc, err := parseDescriptor(m.Value)
			if err != nil {
				return User{}, fmt.Errorf("test_users[%d].tests.%s: %w", i, m.Key, err)
			}
			u.Tests = append(u.Tests, UserTest{
				Name:     m.Key,
				Kind:     ParseTestKind(m.Key),
				Params:   parseParams(m.Value),
				Expected: desc,
			})
		}
	}
	return u, nil
}

func parseLeaderboardTest(i int, v jsonval.Value) (LeaderboardTest, error) {
	t := LeaderboardTest{Params: parseParams(v)}
	if d, ok := v.Field("description"); ok {
		t.Description = d.String()
	}
	desc, err := parseDescriptor(v)
	if err != nil {
		return t, fmt.Errorf("leaderboard_tests[%d]: %w", i, err)
	}
	t.Expected = desc
	return t, nil
}

// parseDescriptor splits a test's "expected" object into meta checks and
// literal field expectations, resolving each field's comparison rule.
func parseDescriptor(test jsonval.Value) (*Descriptor, error) {
	exp, ok := test.Field("expected")
	if !ok {
		return &Descriptor{}, nil
	}
	if exp.Kind() != jsonval.KindObject {
		return nil, fmt.Errorf("expected must be an object, got %s", exp.Kind())
	}

	d := &Descriptor{}
	for _, m := range exp.Members() {
		switch m.Key {
		case "has_fields":
			for _, f := range m.Value.Elems() {
				d.HasFields = append(d.HasFields, f.String())
			}
		case "is_array":
			d.IsArray = m.Value.Kind() == jsonval.KindBool && m.Value.BoolVal()
		case "min_count":
			d.MinCount = intPtr(m.Value)
		case "entry_count_min":
			d.EntryCountMin = intPtr(m.Value)
		case "trade_count":
			d.TradeCount = intPtr(m.Value)
		case "snapshot_count":
			d.SnapshotCount = intPtr(m.Value)
		case "deposit_count":
			d.DepositCount = intPtr(m.Value)
		case "total_deposits":
			s := m.Value.String()
			if !jsonval.LooksDecimal(s) {
				return nil, fmt.Errorf("total_deposits is not a decimal: %q", s)
			}
			d.TotalDeposits = &s
		default:
			d.Fields = append(d.Fields, Field{
				Key:      m.Key,
				Expected: jsonval.ResolveExpected(m.Value),
			})
		}
	}
	return d, nil
}

// RawExpected rebuilds the descriptor as a plain map for reporting.
func (d *Descriptor) RawExpected() map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any)
	if len(d.HasFields) > 0 {
		out["has_fields"] = d.HasFields
	}
	if d.IsArray {
		out["is_array"] = true
	}
	for k, p := range map[string]*int{
		"min_count":       d.MinCount,
		"entry_count_min": d.EntryCountMin,
		"trade_count":     d.TradeCount,
		"snapshot_count":  d.SnapshotCount,
		"deposit_count":   d.DepositCount,
	} {
		if p != nil {
			out[k] = *p
		}
	}
	if d.TotalDeposits != nil {
		out["total_deposits"] = *d.TotalDeposits
	}
	for _, f := range d.Fields {
		out[f.Key] = f.Expected.Raw().String()
	}
	return out
}

func parseParams(v jsonval.Value) map[string]string {
	p, ok := v.Field("params")
	if !ok || p.Kind() != jsonval.KindObject {
		return nil
	}
	out := make(map[string]string, p.Len())
	for _, m := range p.Members() {
		out[m.Key] = m.Value.String()
	}
	return out
}

func intField(v jsonval.Value, key string) (int, bool) {
	f, ok := v.Field(key)
	if !ok {
		return 0, false
	}
	p := intPtr(f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intPtr(v jsonval.Value) *int {
	if v.Kind() != jsonval.KindNumber {
		return nil
	}
	n, err := strconv.Atoi(v.NumberVal())
	if err != nil {
		return nil
	}
	return &n
}

// ShortAddr truncates an address for display: first 10 characters, an
// ellipsis, then the last 4.
func ShortAddr(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-4:]
}
