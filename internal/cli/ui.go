package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tahmid-khan/cvc-approximation/pkg/acquire"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints graph size on a single line.
func printStats(w io.Writer, order, size int, cached bool) {
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	sep := StyleDim.Render(" · ")
	fmt.Fprintln(w, "  "+
		StyleDim.Render(plural(order, "vertex"))+sep+
		StyleDim.Render(plural(size, "edge"))+sep+
		statusStyle.Render(status))
}

// printOutcomeSummary reports how a batch went: totals first, then one line
// per file that did not make it.
func printOutcomeSummary(w io.Writer, outcomes []pipeline.Outcome, outDir string) {
	var accepted, skipped, failed, hits int
	for _, o := range outcomes {
		switch o.Status {
		case pipeline.StatusAccepted:
			accepted++
		case pipeline.StatusSkipped:
			skipped++
		case pipeline.StatusFailed:
			failed++
		}
		if o.CacheHit {
			hits++
		}
	}

	printSuccess(w, "Accepted %d of %s", accepted, plural(len(outcomes), "file"))
	if hits > 0 {
		printDetail(w, "%d from cache", hits)
	}
	for _, o := range outcomes {
		switch o.Status {
		case pipeline.StatusSkipped:
			printWarning(w, "skipped %s: %s", o.Name, o.Reason)
		case pipeline.StatusFailed:
			printError(w, "failed %s: %v", o.Name, o.Err)
		}
	}
	if skipped+failed > 0 {
		printDetail(w, "%d skipped, %d failed", skipped, failed)
	}
	if accepted > 0 {
		printFile(w, outDir)
		printNextStep(w, "Summarize them", appName+" stats "+outDir)
	}
}

// printPrepareSummary is printOutcomeSummary for index entries.
func printPrepareSummary(w io.Writer, results []acquire.EntryResult, outDir string) {
	var accepted, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case pipeline.StatusAccepted:
			accepted++
		case pipeline.StatusSkipped:
			skipped++
		case pipeline.StatusFailed:
			failed++
			printError(w, "failed %s: %v", r.Entry.Name, r.Err)
		}
	}
	printSuccess(w, "Accepted %d of %s", accepted, plural(len(results), "entry"))
	printDetail(w, "%d skipped, %d failed", skipped, failed)
	if accepted > 0 {
		printFile(w, outDir)
	}
}

// plural formats a count with its noun: "1 file", "2 files", "3 vertices".
func plural(n int, noun string) string {
	prefix := strconv.Itoa(n) + " "
	switch {
	case n == 1:
		return prefix + noun
	case strings.HasSuffix(noun, "ex"):
		return prefix + strings.TrimSuffix(noun, "ex") + "ices"
	case strings.HasSuffix(noun, "y"):
		return prefix + strings.TrimSuffix(noun, "y") + "ies"
	}
	return prefix + noun + "s"
}
