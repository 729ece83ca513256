// Package tui renders the live watch view: the node table, the current
// bootstrap phase, benchmark progress and a scrolling event log, driven
// entirely by the external event feed. The view is read-only; closing it
// never touches the cluster.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaykv/harness/pkg/events"
)

const maxLogLines = 8

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2)

	benchBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginLeft(2)

	logBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			MarginLeft(2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Quit}}
}

type nodeState struct {
	ID      int
	Port    int
	Pid     int
	Address string
	Ready   bool
	Leader  bool
}

type (
	eventMsg      events.Event
	feedClosedMsg struct{}
	tickMsg       time.Time
)

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the feed and hands the next event to Update. A
// closed feed surfaces once as feedClosedMsg.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(evt)
	}
}

// Model is the watch view's state. Construct it with New and hand it to
// a bubbletea program.
type Model struct {
	events    <-chan events.Event
	nodeTable table.Model
	help      help.Model
	keys      keyMap

	phase      string
	phaseState string
	leaderID   int
	hasLeader  bool

	nodes      map[int]*nodeState
	bench      map[string]events.BenchmarkPayload
	benchOrder []string

	log        []string
	eventCount int
	feedClosed bool

	startTime time.Time
	width     int
	height    int
}

// New builds a watch model reading from ch.
func New(ch <-chan events.Event) Model {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Port", Width: 6},
		{Title: "PID", Width: 8},
		{Title: "Address", Width: 18},
		{Title: "Ready", Width: 6},
		{Title: "Role", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(5),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return Model{
		events:    ch,
		nodeTable: t,
		help:      help.New(),
		keys:      keys,
		phase:     "waiting",
		nodes:     make(map[int]*nodeState),
		bench:     make(map[string]events.BenchmarkPayload),
		startTime: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		tickCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tickCmd()

	case eventMsg:
		m.apply(events.Event(msg))
		m.refreshNodeRows()
		return m, waitForEvent(m.events)

	case feedClosedMsg:
		m.feedClosed = true
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.nodeTable, cmd = m.nodeTable.Update(msg)
	return m, cmd
}

// apply folds one feed event into the view state.
func (m *Model) apply(evt events.Event) {
	m.eventCount++

	switch evt.Type {
	case events.EvtPhaseStarted:
		var p events.PhasePayload
		if evt.Decode(&p) == nil {
			m.phase = p.Phase
			m.phaseState = "running"
		}

	case events.EvtPhaseCompleted:
		var p events.PhasePayload
		if evt.Decode(&p) == nil {
			m.phase = p.Phase
			m.phaseState = p.Status
		}

	case events.EvtNodeSpawned:
		var p events.NodePayload
		if evt.Decode(&p) == nil {
			m.node(p.NodeID).Port = p.Port
			m.node(p.NodeID).Pid = p.Pid
		}

	case events.EvtAddressResolved:
		var p events.AddressPayload
		if evt.Decode(&p) == nil {
			m.node(p.NodeID).Address = p.Address
		}

	case events.EvtReadySignaled:
		var p events.ReadyPayload
		if evt.Decode(&p) == nil && p.OK {
			m.node(p.NodeID).Ready = true
		}

	case events.EvtLeaderFound:
		var p events.LeaderPayload
		if evt.Decode(&p) == nil {
			m.hasLeader = true
			m.leaderID = p.NodeID
			for id, n := range m.nodes {
				n.Leader = id == p.NodeID
			}
		}

	case events.EvtLeaderExhausted:
		m.hasLeader = false

	case events.EvtBenchmarkProgress, events.EvtBenchmarkCompleted:
		var p events.BenchmarkPayload
		if evt.Decode(&p) == nil {
			if _, seen := m.bench[p.OpType]; !seen {
				m.benchOrder = append(m.benchOrder, p.OpType)
			}
			m.bench[p.OpType] = p
		}
	}

	m.appendLog(formatEvent(evt))
}

func (m *Model) node(id int) *nodeState {
	n, ok := m.nodes[id]
	if !ok {
		n = &nodeState{ID: id}
		m.nodes[id] = n
	}
	return n
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *Model) refreshNodeRows() {
	ids := make([]int, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		n := m.nodes[id]

		addr := n.Address
		if addr == "" {
			addr = "-"
		}
		ready := "-"
		if n.Ready {
			ready = "yes"
		}
		role := "-"
		if m.hasLeader {
			if n.Leader {
				role = "leader"
			} else {
				role = "follower"
			}
		}

		rows = append(rows, table.Row{
			fmt.Sprintf("%d", n.ID),
			fmt.Sprintf("%d", n.Port),
			fmt.Sprintf("%d", n.Pid),
			addr,
			ready,
			role,
		})
	}
	m.nodeTable.SetRows(rows)
}

// formatEvent renders one event as a log line.
func formatEvent(evt events.Event) string {
	ts := time.Unix(evt.Timestamp, 0).Format("15:04:05")

	line := func(format string, args ...any) string {
		return ts + " " + fmt.Sprintf(format, args...)
	}

	switch evt.Type {
	case events.EvtPhaseStarted:
		var p events.PhasePayload
		if evt.Decode(&p) == nil {
			return line("phase %s started", p.Phase)
		}
	case events.EvtPhaseCompleted:
		var p events.PhasePayload
		if evt.Decode(&p) == nil {
			return line("phase %s %s", p.Phase, p.Status)
		}
	case events.EvtNodeSpawned:
		var p events.NodePayload
		if evt.Decode(&p) == nil {
			return line("node %d spawned (pid %d, port %d)", p.NodeID, p.Pid, p.Port)
		}
	case events.EvtAddressResolved:
		var p events.AddressPayload
		if evt.Decode(&p) == nil {
			return line("node %d listening on %s", p.NodeID, p.Address)
		}
	case events.EvtAddressUnresolved:
		var p events.AddressPayload
		if evt.Decode(&p) == nil {
			return line("node %d address unresolved", p.NodeID)
		}
	case events.EvtPeerConnected:
		var p events.PeerPayload
		if evt.Decode(&p) == nil {
			return line("peer %d -> %d connected", p.FromID, p.ToID)
		}
	case events.EvtPeerFailed:
		var p events.PeerPayload
		if evt.Decode(&p) == nil {
			return line("peer %d -> %d failed: %s", p.FromID, p.ToID, p.Reason)
		}
	case events.EvtReadySignaled:
		var p events.ReadyPayload
		if evt.Decode(&p) == nil {
			if p.OK {
				return line("node %d ready", p.NodeID)
			}
			return line("ready signal to node %d failed", p.NodeID)
		}
	case events.EvtLeaderFound:
		var p events.LeaderPayload
		if evt.Decode(&p) == nil {
			return line("leader: node %d after %d ticks", p.NodeID, p.Ticks)
		}
	case events.EvtLeaderExhausted:
		var p events.LeaderPayload
		if evt.Decode(&p) == nil {
			return line("no leader after %d ticks", p.Ticks)
		}
	case events.EvtBenchmarkProgress:
		var p events.BenchmarkPayload
		if evt.Decode(&p) == nil {
			return line("%s %d/%d", p.OpType, p.Completed, p.Total)
		}
	case events.EvtBenchmarkCompleted:
		var p events.BenchmarkPayload
		if evt.Decode(&p) == nil {
			return line("%s complete: %.2f ops/sec", p.OpType, p.OpsPerSecond)
		}
	}

	return line("%s", evt.Type)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("📡 RelayKV Harness - Cluster Watch"))
	s.WriteString("\n\n")

	s.WriteString(statusStyle.Render(m.statusLine()))
	s.WriteString("\n")

	s.WriteString(contentStyle.Render(m.nodeTable.View()))
	s.WriteString("\n")

	if len(m.benchOrder) > 0 {
		s.WriteString(benchBoxStyle.Render(m.renderBench()))
		s.WriteString("\n")
	}

	if len(m.log) > 0 {
		s.WriteString(logBoxStyle.Render(strings.Join(m.log, "\n")))
		s.WriteString("\n")
	}

	if m.feedClosed {
		s.WriteString(errorStyle.Render("✗ event feed closed"))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m Model) statusLine() string {
	uptime := time.Since(m.startTime).Round(time.Second)

	leader := "no leader"
	if m.hasLeader {
		leader = fmt.Sprintf("leader: node %d", m.leaderID)
	}

	phase := m.phase
	if m.phaseState != "" {
		phase = fmt.Sprintf("%s (%s)", m.phase, m.phaseState)
	}

	return fmt.Sprintf("phase: %s • %s • %d events • up %s", phase, leader, m.eventCount, uptime)
}

func (m Model) renderBench() string {
	var s strings.Builder
	for i, op := range m.benchOrder {
		p := m.bench[op]

		bar := progressBar(p.Completed, p.Total, 20)
		if p.OpsPerSecond > 0 {
			s.WriteString(fmt.Sprintf("%-6s %s %d/%d  %.2f ops/sec", op, bar, p.Completed, p.Total, p.OpsPerSecond))
		} else {
			s.WriteString(fmt.Sprintf("%-6s %s %d/%d", op, bar, p.Completed, p.Total))
		}
		if i < len(m.benchOrder)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func progressBar(completed, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := completed * width / total
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
