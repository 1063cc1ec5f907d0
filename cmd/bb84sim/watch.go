package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alan-christopher/bb84sim/app"
	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	minTick      = time.Millisecond
	headerHeight = 6
	footerHeight = 8
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	stateStyle = lipgloss.NewStyle().Bold(true).Padding(0, 2).Border(lipgloss.RoundedBorder())
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// tickMsg asks the model to send the next photon. Ticks from an earlier
// generation were scheduled before a pause or reset and are dropped.
type tickMsg struct{ gen int }

// publishedMsg reports that the application state changed.
type publishedMsg struct{}

type watchModel struct {
	run      *bb84.Run
	state    *app.State
	updates  <-chan struct{}
	interval time.Duration

	gen       int
	paused    bool
	published bool
	shared    string
	lines     []string
	width     int
	vp        viewport.Model
}

func newWatchModel(run *bb84.Run, state *app.State, interval time.Duration) watchModel {
	if interval < minTick {
		interval = minTick
	}
	return watchModel{
		run:      run,
		state:    state,
		updates:  state.Subscribe(),
		interval: interval,
		vp:       viewport.New(80, 10),
		width:    80,
	}
}

func (m watchModel) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

// listen waits for the next change to the application state.
func (m watchModel) listen() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return publishedMsg{}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.listen())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.vp.Width = msg.Width
		m.vp.Height = max(1, msg.Height-headerHeight-footerHeight)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			if m.run.Done() {
				return m, nil
			}
			m.paused = !m.paused
			m.gen++
			if m.paused {
				return m, nil
			}
			return m, m.tick()
		case "r":
			m.run.Reset()
			m.state.Clear()
			m.gen++
			m.paused = true
			m.published = false
			m.lines = nil
			m.vp.SetContent("")
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case publishedMsg:
		m.shared = m.state.SharedKey()
		return m, m.listen()
	case tickMsg:
		if msg.gen != m.gen || m.paused {
			return m, nil
		}
		ev, err := m.run.Advance()
		if err != nil {
			return m.finish(), nil
		}
		m.lines = append(m.lines, photonRow(ev))
		m.vp.SetContent(strings.Join(m.lines, "\n"))
		m.vp.GotoBottom()
		if m.run.Done() {
			return m.finish(), nil
		}
		return m, m.tick()
	}
	return m, nil
}

// finish publishes the completed run once.
func (m watchModel) finish() watchModel {
	if !m.published {
		m.state.PublishRun(m.run)
		m.published = true
	}
	return m
}

func (m watchModel) status() string {
	switch {
	case m.run.Done():
		return "complete"
	case m.paused:
		return "paused"
	default:
		return "running"
	}
}

func (m watchModel) View() string {
	rs := m.run.Render()
	s := m.run.Stats()
	opts := m.run.Options()

	var b strings.Builder
	title := "BB84 key exchange"
	if opts.Eavesdropper {
		title += " (eavesdropper on the channel)"
	}
	fmt.Fprintln(&b, titleStyle.Render(title))
	fmt.Fprintln(&b, lipgloss.JoinHorizontal(lipgloss.Center,
		"Alice ", stateStyle.Render(rs.SenderBasis), "  ──", stateStyle.Render(rs.State), "──▶  ", stateStyle.Render(rs.ReceiverBasis), " Bob"))
	fmt.Fprintln(&b, photonHeader)
	fmt.Fprintln(&b, m.vp.View())
	fmt.Fprintf(&b, "photons %d/%d  same basis %d  key bits %d/%d  [%s]\n",
		s.TotalPhotons, opts.MaxPhotons, s.SameBasisCases, s.FinalKeyBits, opts.TargetKeyBits, m.status())
	if opts.Eavesdropper {
		fmt.Fprintf(&b, "interceptions %d  disturbed %d  error rate %.2f%%\n", s.Interceptions, s.Disturbed, s.ErrorRate())
	}
	fmt.Fprintln(&b, wordwrap.String(formatKey(m.run.Key().String()), m.width))
	if m.shared != "" {
		fmt.Fprintf(&b, "shared key published (%d bits)\n", len(m.shared))
	}
	fmt.Fprint(&b, helpStyle.Render("space pause/resume • r reset • q quit"))
	return b.String()
}

func newWatchCmd(e *env) *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a key exchange photon by photon in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := f.apply(cmd, e.cfg.Simulation)
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				// Nothing to draw on; print the exchange instead.
				return e.simulate(cmd, sim, &f)
			}
			run, err := newRun(sim, e.seedValue())
			if err != nil {
				return err
			}
			p := tea.NewProgram(newWatchModel(run, e.state, sim.Interval()), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return err
			}
			if snap, ok := e.state.Snapshot(); ok {
				printSummary(cmd.OutOrStdout(), snap.Stats, snap.Key, sim.Eavesdropper, false)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
