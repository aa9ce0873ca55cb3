package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/client"
	"github.com/grovetools/lombridge/tui/theme"
)

// sessionProber is the part of client.Manager the monitor uses.
type sessionProber interface {
	Address() string
	State() client.State
	EnsureConnected(ctx context.Context) error
	SendCommand(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error)
}

type probeMsg struct {
	info  *liveset.Info
	state client.State
	err   error
	at    time.Time
}

type pollMsg struct{}

type monitorModel struct {
	prober   sessionProber
	interval time.Duration
	spinner  spinner.Model

	info       *liveset.Info
	state      client.State
	err        error
	lastUpdate time.Time
	probes     int
	quitting   bool
}

func newMonitorModel(p sessionProber, interval time.Duration) *monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.DefaultTheme.Colors.Cyan)
	return &monitorModel{
		prober:   p,
		interval: interval,
		spinner:  s,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// poll checks the connection and fetches the session summary.
func (m *monitorModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval+time.Second)
		defer cancel()

		msg := probeMsg{at: time.Now()}
		if err := m.prober.EnsureConnected(ctx); err != nil {
			msg.err = err
			msg.state = m.prober.State()
			return msg
		}
		result, err := m.prober.SendCommand(ctx, "get_session_info", nil)
		msg.state = m.prober.State()
		if err != nil {
			msg.err = err
			return msg
		}
		info, err := toInfo(result)
		if err != nil {
			msg.err = errors.Protocol("unexpected session summary", err)
			return msg
		}
		msg.info = info
		return msg
	}
}

func toInfo(result interface{}) (*liveset.Info, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var info liveset.Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.poll()
		}

	case probeMsg:
		m.probes++
		m.state = msg.state
		m.err = msg.err
		m.lastUpdate = msg.at
		if msg.info != nil {
			m.info = msg.info
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })

	case pollMsg:
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) View() string {
	if m.quitting {
		return ""
	}
	t := theme.DefaultTheme
	var b strings.Builder

	b.WriteString(t.Header.Render("lombridge monitor"))
	b.WriteString("\n\n")

	status := t.Error.Render("● " + m.state.String())
	switch m.state {
	case client.Connected:
		status = t.Success.Render("● " + m.state.String())
	case client.Connecting:
		status = t.Warning.Render(m.spinner.View() + " " + m.state.String())
	}
	if m.probes == 0 {
		status = m.spinner.View() + " probing"
	}
	fmt.Fprintf(&b, "%s %s  %s\n", t.Key.Render("Host"), t.Value.Render(m.prober.Address()), status)

	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", t.Error.Render(errors.Describe(m.err)))
	}

	if m.info != nil {
		rows := []string{
			fmt.Sprintf("%s %s", t.Key.Render("Tempo    "), t.Value.Render(fmt.Sprintf("%.2f BPM", m.info.Tempo))),
			fmt.Sprintf("%s %s", t.Key.Render("Signature"), t.Value.Render(m.info.Signature)),
			fmt.Sprintf("%s %s", t.Key.Render("Tracks   "), t.Value.Render(fmt.Sprint(m.info.Tracks))),
			fmt.Sprintf("%s %s", t.Key.Render("Scenes   "), t.Value.Render(fmt.Sprint(m.info.Scenes))),
			fmt.Sprintf("%s %s", t.Key.Render("Playing  "), t.Value.Render(fmt.Sprint(m.info.IsPlaying))),
		}
		b.WriteString(t.Box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
		b.WriteString("\n")
	}

	if !m.lastUpdate.IsZero() {
		fmt.Fprintf(&b, "%s\n", t.Muted.Render("updated "+m.lastUpdate.Format("15:04:05")))
	}
	b.WriteString(t.Muted.Render("r refresh • q quit"))
	return b.String()
}

// NewMonitorCmd shows a live view of the host connection and session.
func NewMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch the host connection and session summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := newManager(cmd)
			if err != nil {
				return err
			}
			defer mgr.Close()

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = cfg.Client.MonitorInterval.Std()
			}
			restore := logging.RedirectGlobalOutput(io.Discard)
			defer restore()
			_, err = tea.NewProgram(newMonitorModel(mgr, interval), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().Duration("interval", 0, "Refresh period (defaults to client.monitor_interval)")
	return cmd
}
