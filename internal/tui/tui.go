// Package tui provides a Bubble Tea terminal user interface for audioconv.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/handiism/audioconv/internal/config"
	"github.com/handiism/audioconv/internal/convert"
	ioutils "github.com/handiism/audioconv/internal/io"
	"github.com/handiism/audioconv/internal/model"
	"github.com/handiism/audioconv/internal/transcode"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateScanning
	StateConverting
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   convert.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	err      error

	ctx    context.Context
	cancel context.CancelFunc

	dispatcher *convert.Dispatcher
	events     chan convert.ProgressEvent
	lock       *flock.Flock

	discovered int
	unreadable int
	completed  int
	total      int
	summary    model.RunSummary

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model. settings provides the defaults for
// every option; a nil value uses config.DefaultSettings.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	in := textinput.New()
	in.Placeholder = "/music/lossless"
	in.CharLimit = 1024
	in.Width = 60
	in.SetValue(settings.InputDir)
	in.Focus()

	out := textinput.New()
	out.Placeholder = "/music/mp3"
	out.CharLimit = 1024
	out.Width = 60
	out.SetValue(settings.OutputDir)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		inputs:   []textinput.Model{in, out},
		spinner:  sp,
		progress: prog,
		settings: settings,
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one dispatcher event.
	ProgressMsg struct {
		Event convert.ProgressEvent
	}

	// ScanDoneMsg is sent when the input tree has been enumerated.
	ScanDoneMsg struct {
		Files      []string
		Unreadable int
		Err        error
	}

	// ConvertDoneMsg is sent when the dispatcher returns.
	ConvertDoneMsg struct {
		Summary model.RunSummary
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			m.unlock()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateConverting || m.state == StateScanning {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "tab", "shift+tab", "up", "down":
			if m.state == StateInput {
				m.inputs[m.focus].Blur()
				m.focus = (m.focus + 1) % len(m.inputs)
				cmds = append(cmds, m.inputs[m.focus].Focus())
				return m, tea.Batch(cmds...)
			}

		case "enter":
			if m.state == StateInput {
				return m.start()
			}

		case "ctrl+s":
			if m.state == StateInput {
				m.settings.SkipExisting = !m.settings.SkipExisting
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.settings.CreatePlaylist = !m.settings.CreatePlaylist
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.settings.FillMissingTags = !m.settings.FillMissingTags
			}

		case "ctrl+n":
			if m.state == StateInput {
				m.settings.Mode = nextMode(m.settings.Mode)
				if m.settings.Mode == config.ModeChunked && m.settings.BatchSize == 0 {
					m.settings.BatchSize = m.settings.Workers()
				}
			}

		case "ctrl+e":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				return m.reset(), textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m.appendLog(msg.Event)
		if m.state == StateConverting || m.state == StateScanning {
			cmds = append(cmds, waitForEvent(m.events))
		}

	case ScanDoneMsg:
		if m.state != StateScanning {
			m.unlock()
			return m, nil
		}
		if msg.Err != nil {
			m.unlock()
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.discovered = len(msg.Files)
		m.unreadable = msg.Unreadable
		m.state = StateConverting
		cmds = append(cmds,
			startConversion(m.ctx, m.dispatcher, m.settings.InputDir, m.settings.OutputDir, msg.Files),
			m.tickProgress(),
		)

	case ConvertDoneMsg:
		m.unlock()
		m.summary = msg.Summary
		m.completed = msg.Summary.Processed
		m.total = msg.Summary.Discovered
		if m.ctx.Err() != nil {
			m.state = StateError
			m.err = errCancelled
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.dispatcher != nil && m.state == StateConverting {
			m.completed, m.total = m.dispatcher.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// start validates the form and begins scanning.
func (m Model) start() (tea.Model, tea.Cmd) {
	m.settings.InputDir = strings.TrimSpace(m.inputs[0].Value())
	m.settings.OutputDir = strings.TrimSpace(m.inputs[1].Value())
	if err := m.settings.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	if _, err := transcode.CheckBinary(m.settings.TranscoderBinary); err != nil {
		m.err = err
		return m, nil
	}
	if err := m.settings.ResolveRoots(); err != nil {
		m.err = err
		return m, nil
	}
	lock, err := ioutils.LockDir(m.settings.OutputDir)
	if err != nil {
		m.err = fmt.Errorf("lock %s: %w", m.settings.OutputDir, err)
		return m, nil
	}
	m.lock = lock

	m.err = nil
	m.state = StateScanning
	m.events = make(chan convert.ProgressEvent, 256)
	events := m.events
	send := func(e convert.ProgressEvent) {
		select {
		case events <- e:
		default:
		}
	}
	tcOpts := m.settings.ToTranscodeOptions()
	tcOpts.OnWarning = func(err error) {
		send(convert.ProgressEvent{Message: err.Error(), Level: convert.LevelWarning, Err: err})
	}
	m.dispatcher = convert.NewDispatcher(m.settings, transcode.NewFFmpeg(tcOpts), send)

	return m, tea.Batch(
		scanInput(m.ctx, m.settings.InputDir, m.events),
		waitForEvent(m.events),
		m.spinner.Tick,
	)
}

func (m Model) reset() Model {
	m.unlock()
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.discovered, m.unreadable = 0, 0
	m.completed, m.total = 0, 0
	m.summary = model.RunSummary{}
	m.dispatcher = nil
	m.events = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.focus = 0
	m.inputs[1].Blur()
	m.inputs[0].Focus()
	return m
}

// unlock releases the output directory lock taken by start.
func (m *Model) unlock() {
	if m.lock != nil {
		_ = m.lock.Unlock()
		m.lock = nil
	}
}

func (m *Model) appendLog(event convert.ProgressEvent) {
	if event.Level == convert.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func nextMode(mode config.Mode) config.Mode {
	switch mode {
	case config.ModePooled:
		return config.ModeChunked
	case config.ModeChunked:
		return config.ModeAsync
	default:
		return config.ModePooled
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ audioconv"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Convert a music tree with ffmpeg"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateScanning:
		b.WriteString(m.viewScanning())
	case StateConverting:
		b.WriteString(m.viewConverting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Input directory:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[0].View())
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("Output directory:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[1].View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Skip existing outputs (ctrl+s)\n", check(m.settings.SkipExisting))
	fmt.Fprintf(&b, "  %s Create playlists (ctrl+p)\n", check(m.settings.CreatePlaylist))
	fmt.Fprintf(&b, "  %s Fill missing tags (ctrl+t)\n", check(m.settings.FillMissingTags))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+e)\n", check(m.verbose))
	fmt.Fprintf(&b, "      Mode: %s (ctrl+n)\n", m.settings.Mode)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Target: .%s  Workers: %d", model.NormalizeExtension(m.settings.TargetExtension), m.settings.Workers())))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewScanning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Scanning " + m.settings.InputDir + "..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewConverting() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("Found %d file(s)", m.discovered)))
	if m.unreadable > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf(", %d unreadable director(ies)", m.unreadable)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d/%d | Mode: %s", m.completed, m.total, m.settings.Mode)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	s := m.summary
	return boxStyle.Render(fmt.Sprintf(
		"✨ Conversion complete\n\n"+
			"Converted: %d\n"+
			"Skipped:   %d\n"+
			"Failed:    %d\n"+
			"Size:      %s\n"+
			"Elapsed:   %s",
		s.Converted, s.Skipped, s.Failed,
		humanize.Bytes(uint64(max(s.OutputBytes, 0))),
		s.Elapsed.Round(time.Second),
	))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n", m.err.Error())
	}
	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case convert.LevelError:
			style = errorStyle
			prefix = "✗"
		case convert.LevelWarning:
			style = warningStyle
			prefix = "!"
		case convert.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case convert.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: next field • ctrl+s/p/t/e: toggle • ctrl+n: mode • esc: quit"
	case StateScanning, StateConverting:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new conversion • q: quit"
	}
	return ""
}

// scanInput enumerates root. Unreadable directories are reported as
// warnings on events.
func scanInput(ctx context.Context, root string, events chan<- convert.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		unreadable := 0
		files, err := ioutils.Enumerate(ctx, root, func(err error) {
			unreadable++
			select {
			case events <- convert.ProgressEvent{Message: err.Error(), Level: convert.LevelWarning, Err: err}:
			default:
			}
		})
		return ScanDoneMsg{Files: files, Unreadable: unreadable, Err: err}
	}
}

// startConversion runs the dispatcher in the background.
func startConversion(ctx context.Context, d *convert.Dispatcher, inputRoot, outputRoot string, files []string) tea.Cmd {
	return func() tea.Msg {
		summary := d.Dispatch(ctx, inputRoot, outputRoot, files)
		return ConvertDoneMsg{Summary: summary}
	}
}

// waitForEvent delivers the next dispatcher event as a ProgressMsg.
func waitForEvent(events <-chan convert.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: e}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.unlock()
	}
	return err
}
