package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	barWidth    = 40
	recentLimit = 6
)

// =============================================================================
// BatchModel - live view of a process run
// =============================================================================

// outcomeMsg delivers one finished file to the model.
type outcomeMsg pipeline.Outcome

// batchDoneMsg tells the model the run is over.
type batchDoneMsg struct{}

// BatchModel is the bubbletea model showing the progress of a batch.
type BatchModel struct {
	Total    int
	Done     int
	Accepted int
	Skipped  int
	Failed   int
	Recent   []pipeline.Outcome
	Stopping bool
	Finished bool

	cancel context.CancelFunc
}

// NewBatchModel creates a model for total files. cancel is called when the
// user quits early.
func NewBatchModel(total int, cancel context.CancelFunc) BatchModel {
	return BatchModel{Total: total, cancel: cancel}
}

func (m BatchModel) Init() tea.Cmd {
	return nil
}

func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The run finishes its in-flight files and then sends batchDoneMsg.
			if !m.Stopping && m.cancel != nil {
				m.cancel()
			}
			m.Stopping = true
		}
	case outcomeMsg:
		o := pipeline.Outcome(msg)
		m.Done++
		switch o.Status {
		case pipeline.StatusAccepted:
			m.Accepted++
		case pipeline.StatusSkipped:
			m.Skipped++
		case pipeline.StatusFailed:
			m.Failed++
		}
		m.Recent = append(m.Recent, o)
		if len(m.Recent) > recentLimit {
			m.Recent = m.Recent[len(m.Recent)-recentLimit:]
		}
	case batchDoneMsg:
		m.Finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m BatchModel) View() string {
	var b strings.Builder

	title := "Processing graphs"
	if m.Stopping {
		title = "Stopping"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(progressBar(m.Done, m.Total, barWidth))
	fmt.Fprintf(&b, " %s/%d\n", StyleNumber.Render(fmt.Sprint(m.Done)), m.Total)
	fmt.Fprintf(&b, "%s  %s  %s\n\n",
		styleIconSuccess.Render(fmt.Sprintf("%d accepted", m.Accepted)),
		styleIconWarning.Render(fmt.Sprintf("%d skipped", m.Skipped)),
		styleIconError.Render(fmt.Sprintf("%d failed", m.Failed)))

	for _, o := range m.Recent {
		b.WriteString(outcomeLine(o))
		b.WriteString("\n")
	}
	if !m.Finished {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("q stop"))
		b.WriteString("\n")
	}
	return b.String()
}

func outcomeLine(o pipeline.Outcome) string {
	switch o.Status {
	case pipeline.StatusAccepted:
		cached := ""
		if o.CacheHit {
			cached = " " + styleCached.Render(iconCached)
		}
		return fmt.Sprintf("%s %s %s%s", styleIconSuccess.Render(iconSuccess), o.Name,
			StyleDim.Render(fmt.Sprintf("%s %d/%d", o.Bucket, o.Order, o.Size)), cached)
	case pipeline.StatusSkipped:
		return fmt.Sprintf("%s %s %s", styleIconWarning.Render(iconWarning), o.Name, StyleDim.Render(o.Reason))
	}
	return fmt.Sprintf("%s %s %s", styleIconError.Render(iconError), o.Name, StyleDim.Render(o.Reason))
}

// progressBar renders done/total as a bar of width cells.
func progressBar(done, total, width int) string {
	filled := width
	if total > 0 {
		filled = min(width, done*width/total)
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// runWithTUI runs a batch behind the live view. run receives a context the
// view cancels when the user quits, and a callback feeding it outcomes.
func runWithTUI(ctx context.Context, total int, run func(context.Context, func(pipeline.Outcome)) ([]pipeline.Outcome, error)) ([]pipeline.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewBatchModel(total, cancel), tea.WithOutput(os.Stderr))

	var (
		outcomes []pipeline.Outcome
		runErr   error
		finished = make(chan struct{})
	)
	go func() {
		defer close(finished)
		outcomes, runErr = run(ctx, func(o pipeline.Outcome) { p.Send(outcomeMsg(o)) })
		p.Send(batchDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return outcomes, err
	}
	<-finished
	return outcomes, runErr
}
