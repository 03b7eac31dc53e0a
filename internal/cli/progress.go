package cli

import (
	"fmt"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/jmulder/clearcat/internal/service"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// watchJob blocks until the job reaches a terminal state, showing an
// interactive progress display on a TTY and plain polling otherwise. The job
// runs in this process, so closing the display never abandons the work: after
// Ctrl+C the command keeps waiting without the UI.
func watchJob(job *service.Job, noUI bool) error {
	if noUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		return pollJobPlain(job)
	}

	quit, err := runJobProgress(job)
	if err != nil {
		return err
	}
	if quit {
		fmt.Println("Display closed; waiting for the job to finish...")
		return pollJobPlain(job)
	}
	return nil
}

// pollJobPlain waits for the job without a terminal UI.
func pollJobPlain(job *service.Job) error {
	for {
		snap := job.Snapshot()
		switch snap.Status {
		case service.JobStatusCompleted:
			fmt.Println("Completed")
			printJobResult(snap)
			return nil
		case service.JobStatusFailed:
			return fmt.Errorf("job failed: %s", snap.Error)
		}
		time.Sleep(pollInterval)
	}
}

// printJobResult prints the result counters of a finished job.
func printJobResult(job service.Job) {
	if job.Result == nil {
		return
	}
	switch job.Type {
	case service.JobTypeProcess:
		fmt.Printf("  Created: %v\n", job.Result["created"])
		fmt.Printf("  Updated: %v\n", job.Result["updated"])
		fmt.Printf("  Skipped: %v\n", job.Result["skipped"])
		fmt.Printf("  Failed:  %v\n", job.Result["failed"])
	case service.JobTypeEnrich:
		fmt.Printf("  Candidates: %v\n", job.Result["total"])
		fmt.Printf("  Completed:  %v\n", job.Result["completed"])
		fmt.Printf("  Skipped:    %v\n", job.Result["skipped"])
		fmt.Printf("  Failed:     %v\n", job.Result["failed"])
	}
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job data
type jobUpdateMsg struct {
	snap service.Job
}

// progressModel is the bubbletea model for job progress.
type progressModel struct {
	job      *service.Job
	snap     service.Job
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model.
func newProgressModel(job *service.Job) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		job:      job,
		snap:     job.Snapshot(),
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		// Fetch job status
		return m, m.fetchJob()

	case jobUpdateMsg:
		m.snap = msg.snap

		// Check for terminal states
		switch m.snap.Status {
		case service.JobStatusCompleted:
			m.done = true
			return m, tea.Quit
		case service.JobStatusFailed:
			m.done = true
			if m.snap.Error != "" {
				m.err = fmt.Errorf("%s", m.snap.Error)
			} else {
				m.err = fmt.Errorf("job failed with unknown error")
			}
			return m, tea.Quit
		}

		// Continue polling for running jobs
		return m, tickCmd()

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	// Calculate progress percentage
	var pct float64
	if m.snap.Total > 0 {
		pct = float64(m.snap.Progress) / float64(m.snap.Total)
	}

	// Status line with color
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.snap.Status))

	// Progress bar with counts
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d rows", m.snap.Progress, m.snap.Total)

	hint := m.theme.hintStyle().Render("Press Ctrl+C to close the display")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	// Success with results
	if m.snap.Result != nil {
		var output string
		output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		switch m.snap.Type {
		case service.JobTypeProcess:
			output += fmt.Sprintf("  Created: %v\n", m.snap.Result["created"])
			output += fmt.Sprintf("  Updated: %v\n", m.snap.Result["updated"])
			output += fmt.Sprintf("  Skipped: %v\n", m.snap.Result["skipped"])
			output += fmt.Sprintf("  Failed:  %v\n", m.snap.Result["failed"])
		case service.JobTypeEnrich:
			output += fmt.Sprintf("  Candidates: %v\n", m.snap.Result["total"])
			output += fmt.Sprintf("  Completed:  %v\n", m.snap.Result["completed"])
			output += fmt.Sprintf("  Skipped:    %v\n", m.snap.Result["skipped"])
			output += fmt.Sprintf("  Failed:     %v\n", m.snap.Result["failed"])
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// fetchJob snapshots the in-process job state.
// Runs as a command to keep Update() non-blocking.
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		return jobUpdateMsg{snap: m.job.Snapshot()}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runJobProgress runs the interactive progress UI for a job. Returns
// quit=true when the user closed the display before the job finished.
func runJobProgress(job *service.Job) (bool, error) {
	model := newProgressModel(job)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return true, nil
		}
		if m.err != nil {
			return false, m.err
		}
	}

	return false, nil
}
