package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return s
	}
	return s + strings.Repeat(" ", width-current)
}

// truncToWidth shortens s to at most width display columns, marking the cut
// with an ellipsis.
func truncToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	truncated := ""
	for _, r := range s {
		if runewidth.StringWidth(truncated+string(r)) > width-3 {
			break
		}
		truncated += string(r)
	}
	return truncated + "..."
}

func separatorLine(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "├" + strings.Repeat("─", width-2) + "┤"
}

func formatInfoLine(text string, width int) string {
	if width < 2 {
		return padToWidth(text, width)
	}
	return "│" + padToWidth(truncToWidth(text, width-2), width-2) + "│"
}

// Command is an admin action requested via the console keys.
type Command int

const (
	// CommandNewTransaction issues and broadcasts a fresh transaction.
	CommandNewTransaction Command = iota
	// CommandRaiseDifficulty bumps the difficulty for future transactions.
	CommandRaiseDifficulty
	// CommandLowerDifficulty lowers the difficulty for future transactions.
	CommandLowerDifficulty
)

// TransactionRow is one row of the transactions table.
type TransactionRow struct {
	MessageID  string
	Difficulty int
	Winner     string // empty while the transaction is still open
	Nonce      uint64
	Message    string
}

// ScoreRow is one row of the scoreboard.
type ScoreRow struct {
	UserID string
	Awards int
}

// Snapshot replaces the whole board state.
type Snapshot struct {
	Channel      string
	Nick         string
	Difficulty   int
	Transactions []TransactionRow
	Scores       []ScoreRow
}

// Event is one line for the activity feed.
type Event struct {
	At   time.Time
	Text string
}

// SnapshotMsg is sent when the board state should be replaced
type SnapshotMsg struct {
	Snapshot Snapshot
}

// EventMsg is sent when a line should be added to the activity feed
type EventMsg struct {
	Event Event
}

// maxEvents bounds the activity feed kept in the model.
const maxEvents = 6

// maxScores bounds the scoreboard rows shown on the board.
const maxScores = 5

// Model holds the TUI state
type Model struct {
	snapshot Snapshot
	events   []Event
	width    int
	height   int
	commands chan<- Command
}

// NewModel creates a new TUI model emitting admin actions on commands.
func NewModel(commands chan<- Command) Model {
	return Model{commands: commands}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		return m, nil

	case EventMsg:
		m.events = append(m.events, msg.Event)
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "t":
			m.emit(CommandNewTransaction)
		case "+", "=":
			m.emit(CommandRaiseDifficulty)
		case "-", "_":
			m.emit(CommandLowerDifficulty)
		}
	}

	return m, nil
}

// emit hands a command to the coordinator without ever blocking the UI.
func (m Model) emit(cmd Command) {
	if m.commands == nil {
		return
	}
	select {
	case m.commands <- cmd:
	default:
	}
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatus(),
		m.renderTransactions(),
		m.renderScores(),
		m.renderEvents(),
		m.renderFooter(),
	)
}

// renderStatus renders the top box with the game parameters.
func (m Model) renderStatus() string {
	if m.width < 2 {
		return ""
	}

	awarded := 0
	for _, tx := range m.snapshot.Transactions {
		if tx.Winner != "" {
			awarded++
		}
	}
	total := len(m.snapshot.Transactions)

	topBorder := "┌" + strings.Repeat("─", m.width-2) + "┐"
	lines := []string{
		fmt.Sprintf(" channel: %s  nick: %s  difficulty: %d",
			m.snapshot.Channel, m.snapshot.Nick, m.snapshot.Difficulty),
		fmt.Sprintf(" transactions: %d  awarded: %d  open: %d",
			total, awarded, total-awarded),
	}
	for i, line := range lines {
		lines[i] = formatInfoLine(line, m.width)
	}

	return topBorder + "\n" + strings.Join(lines, "\n")
}

// renderTransactions renders the most recent transactions, newest last.
func (m Model) renderTransactions() string {
	// Everything else on the board takes a fixed number of lines; give the
	// transactions table whatever height remains.
	used := 3 + // status box
		2 + // table header and its separator
		minInt(len(m.snapshot.Scores), maxScores) + 2 + // scoreboard
		len(m.events) + 1 + // activity feed
		3 // footer
	maxRows := m.height - used
	if maxRows < 3 {
		maxRows = 3
	}

	rows := m.snapshot.Transactions
	if len(rows) > maxRows {
		rows = rows[len(rows)-maxRows:]
	}

	lines := []string{
		separatorLine(m.width),
		formatInfoLine(fmt.Sprintf(" %-8s  %4s  %-12s  %10s  %s",
			"ID", "DIFF", "WINNER", "NONCE", "PAYLOAD"), m.width),
	}
	if len(rows) == 0 {
		lines = append(lines, formatInfoLine(" no transactions yet - press t to issue one", m.width))
	}
	for _, tx := range rows {
		winner := "open"
		nonce := ""
		if tx.Winner != "" {
			winner = tx.Winner
			nonce = fmt.Sprintf("%d", tx.Nonce)
		}
		lines = append(lines, formatInfoLine(fmt.Sprintf(" %-8s  %4d  %-12s  %10s  %s",
			tx.MessageID, tx.Difficulty, winner, nonce, tx.Message), m.width))
	}

	return strings.Join(lines, "\n")
}

// renderScores renders the top of the scoreboard.
func (m Model) renderScores() string {
	lines := []string{
		separatorLine(m.width),
		formatInfoLine(fmt.Sprintf(" %-5s  %-16s  %s", "RANK", "USER", "AWARDS"), m.width),
	}
	if len(m.snapshot.Scores) == 0 {
		lines = append(lines, formatInfoLine(" nobody has mined anything yet", m.width))
		return strings.Join(lines, "\n")
	}

	scores := m.snapshot.Scores
	if len(scores) > maxScores {
		scores = scores[:maxScores]
	}
	for i, score := range scores {
		lines = append(lines, formatInfoLine(fmt.Sprintf(" %-5d  %-16s  %d",
			i+1, score.UserID, score.Awards), m.width))
	}

	return strings.Join(lines, "\n")
}

// renderEvents renders the activity feed.
func (m Model) renderEvents() string {
	if len(m.events) == 0 {
		return separatorLine(m.width)
	}

	lines := []string{separatorLine(m.width)}
	for _, ev := range m.events {
		lines = append(lines, formatInfoLine(fmt.Sprintf(" %s  %s",
			ev.At.Format("15:04:05"), ev.Text), m.width))
	}

	return strings.Join(lines, "\n")
}

// renderFooter renders the key help and the bottom border.
func (m Model) renderFooter() string {
	if m.width < 2 {
		return ""
	}
	help := formatInfoLine(" t: new transaction   +/-: difficulty   q: quit", m.width)
	bottomBorder := "└" + strings.Repeat("─", m.width-2) + "┘"
	return separatorLine(m.width) + "\n" + help + "\n" + bottomBorder
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run starts the TUI program
func Run(updateCh <-chan interface{}, commands chan<- Command) error {
	m := NewModel(commands)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Feed the program from the update channel until it is closed.
	go func() {
		for data := range updateCh {
			switch v := data.(type) {
			case Snapshot:
				p.Send(SnapshotMsg{Snapshot: v})
			case Event:
				p.Send(EventMsg{Event: v})
			}
		}
		// Channel closed, quit TUI
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
