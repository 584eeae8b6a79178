package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"hermes/pkg/scheduler"
	"hermes/pkg/ui"
)

// TUI represents the terminal user interface
type TUI struct {
	program  *tea.Program
	model    *Model
	notifier *ui.Notifier
}

// NewTUI creates a dashboard for handles of targetLength. onQuit runs when
// the user presses q; it should cancel the polling context.
func NewTUI(targetLength int, notifier *ui.Notifier, onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(targetLength, onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	program := tea.NewProgram(model, opts...)

	return &TUI{
		program:  program,
		model:    model,
		notifier: notifier,
	}
}

// Consume runs the program and forwards reports to it until the channel is
// closed, then quits and waits for the program to exit.
func (t *TUI) Consume(ctx context.Context, reports <-chan scheduler.Report) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.program.Run()
		done <- err
	}()

	for r := range reports {
		t.program.Send(ReportMsg(r))
		if r.Kind == scheduler.KindFound {
			t.notifier.NotifyDiscovery(r.Accounts)
		}
	}

	t.program.Quit()
	return <-done
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Log adds a line to the activity panel
func (t *TUI) Log(level, message string) {
	t.Send(SendLog(level, message))
}
