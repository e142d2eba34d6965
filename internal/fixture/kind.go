package fixture

// TestKind routes a declared per-user test to its endpoint family. The set
// is closed; names the validator does not know about resolve to
// KindUnknown and are reported as skipped instead of silently dropped.
type TestKind int

const (
	KindUnknown TestKind = iota
	KindPnL
	KindTrades
	KindPositions
	KindDeposits
)

func (k TestKind) String() string {
	switch k {
	case KindPnL:
		return "pnl"
	case KindTrades:
		return "trades"
	case KindPositions:
		return "positions"
	case KindDeposits:
		return "deposits"
	}
	return "unknown"
}

// ParseTestKind maps a fixture test-type name to its family.
func ParseTestKind(name string) TestKind {
	switch name {
	case "pnl", "pnl_with_coin", "pnl_builder_only", "pnl_time_range":
		return KindPnL
	case "trades", "trades_with_coin", "trades_builder_only":
		return KindTrades
	case "positions_history", "positions_with_coin":
		return KindPositions
	case "deposits":
		return KindDeposits
	}
	return KindUnknown
}
