package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hypesilico/apicheck/internal/fixture"
	"github.com/hypesilico/apicheck/internal/validator"
)

const actualPreviewLimit = 200

// ConsoleReporter renders the human-readable run report: group headers,
// one PASS/FAIL line per check and a closing summary block. Colors follow
// the fatih/color global switch, which honors NO_COLOR and non-TTY output.
type ConsoleReporter struct {
	w       io.Writer
	verbose bool

	firstGroup bool

	passTag string
	failTag string
	skipTag string
}

// NewConsoleReporter writes to w. When verbose is set, failed checks also
// print the actual payload, truncated for readability.
func NewConsoleReporter(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		w:          w,
		verbose:    verbose,
		firstGroup: true,
		passTag:    color.New(color.FgGreen).Sprint("PASS"),
		failTag:    color.New(color.FgRed).Sprint("FAIL"),
		skipTag:    color.New(color.FgYellow).Sprint("SKIP"),
	}
}

func (c *ConsoleReporter) GroupStart(name string) {
	if !c.firstGroup {
		fmt.Fprintln(c.w)
	}
	c.firstGroup = false
	fmt.Fprintf(c.w, "=== %s ===\n", name)
}

func (c *ConsoleReporter) UserStart(address, description string) {
	fmt.Fprintf(c.w, "\nUser: %s (%s)\n", fixture.ShortAddr(address), description)
}

func (c *ConsoleReporter) Result(r validator.Result) {
	tag := c.passTag
	if !r.Passed {
		tag = c.failTag
	}
	fmt.Fprintf(c.w, "  [%s] %s: %s\n", tag, r.Name, r.Message)

	if c.verbose && !r.Passed && r.Actual != nil {
		fmt.Fprintf(c.w, "         Actual: %s\n", previewActual(r.Actual))
	}
}

func (c *ConsoleReporter) Skip(name, reason string) {
	fmt.Fprintf(c.w, "  [%s] %s: %s\n", c.skipTag, name, reason)
}

func (c *ConsoleReporter) Summary(s Summary) {
	line := strings.Repeat("=", 50)
	fmt.Fprintf(c.w, "\n%s\n", line)

	text := fmt.Sprintf("SUMMARY: %d/%d tests passed", s.Passed, s.Total)
	if s.Failed > 0 {
		text += fmt.Sprintf(" (%d failed)", s.Failed)
	}
	if s.Skipped > 0 {
		text += fmt.Sprintf(" (%d skipped)", s.Skipped)
	}

	if s.Failed > 0 {
		fmt.Fprintln(c.w, color.New(color.FgRed).Sprint(text))
	} else {
		fmt.Fprintln(c.w, color.New(color.FgGreen).Sprint(text))
	}
	fmt.Fprintln(c.w, line)
}

func previewActual(actual any) string {
	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", actual)
	}
	s := string(data)
	if len(s) > actualPreviewLimit {
		return s[:actualPreviewLimit] + "..."
	}
	return s
}
