package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxquery/internal/domain"
)

var clipboardWriteAll = clipboard.WriteAll

// Workflow is the controller surface the terminal UI drives.
type Workflow interface {
	Snapshot() domain.Snapshot
	SubmitIntent(ctx context.Context, text string) (string, error)
	SubmitFormalQuery(ctx context.Context, query string) (string, error)
	Restart(to domain.Stage) error
	SetMode(mode domain.InputMode) error
	SetDraft(text string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (string, error)
}

type operation string

const (
	opConvert operation = "convert"
	opExecute operation = "execute"
	opStart   operation = "start recording"
	opStop    operation = "stop recording"
)

// opDoneMsg reports the outcome of a workflow call run off the event loop.
type opDoneMsg struct {
	op  operation
	err error
}

type Model struct {
	ctx      context.Context
	workflow Workflow

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	intent  textarea.Model
	query   textarea.Model

	snapshot domain.Snapshot
	// formal is the last formal query loaded into the editor; edits are
	// local until submitted.
	formal string
	status string
	errMsg string
	width  int
}

func NewModel(ctx context.Context, workflow Workflow) Model {
	intent := textarea.New()
	intent.Placeholder = "Ask a question, e.g. list all red products"
	intent.ShowLineNumbers = false
	intent.SetHeight(4)

	query := textarea.New()
	query.ShowLineNumbers = false
	query.SetHeight(6)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		workflow: workflow,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		intent:   intent,
		query:    query,
		width:    100,
	}
	m.apply(workflow.Snapshot())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.intent.SetWidth(max(20, msg.Width-6))
		m.query.SetWidth(max(20, msg.Width-6))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventsMsg:
		if msg.snapshot != nil {
			m.apply(*msg.snapshot)
		}
		if text := msg.reason.Message(); text != "" {
			m.status = text
		}
		for _, f := range msg.failures {
			m.errMsg = f.code.Message(f.detail)
		}
		return m, nil

	case opDoneMsg:
		m.apply(m.workflow.Snapshot())
		switch {
		case msg.err == nil:
			m.errMsg = ""
		case errors.Is(msg.err, domain.ErrStaleResponse):
			// Superseded by a newer request; nothing to report.
		case domain.CodeFor(msg.err) == domain.ErrorCodeUnknown:
			m.errMsg = fmt.Sprintf("%s: %v", msg.op, msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleMode):
		mode := domain.InputModeVoice
		if m.snapshot.Capture.Mode == domain.InputModeVoice {
			mode = domain.InputModeText
		}
		if err := m.workflow.SetMode(mode); err != nil {
			m.errMsg = err.Error()
		}
		m.apply(m.workflow.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.Record):
		return m.toggleRecording()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Stage1):
		return m.selectStage(domain.StageNaturalLanguageQuery)
	case key.Matches(msg, m.keys.Stage2):
		return m.selectStage(domain.StageFormalQuery)
	case key.Matches(msg, m.keys.Stage3):
		return m.selectStage(domain.StageQueryResult)

	case key.Matches(msg, m.keys.Copy):
		value := m.currentValue()
		if value == "" {
			return m, nil
		}
		if err := clipboardWriteAll(value); err != nil {
			m.errMsg = domain.ErrorCodeClipboard.Message(err.Error())
		} else {
			m.status = "Copied to clipboard"
		}
		return m, nil
	}

	return m.updateEditor(msg)
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.snapshot.Current {
	case domain.StageNaturalLanguageQuery:
		if m.snapshot.Capture.Transcribing {
			return m, nil
		}
		m.intent, cmd = m.intent.Update(msg)
		if value := m.intent.Value(); value != m.snapshot.Capture.Draft {
			if err := m.workflow.SetDraft(value); err != nil {
				m.errMsg = err.Error()
			}
			m.apply(m.workflow.Snapshot())
		}
	case domain.StageFormalQuery:
		m.query, cmd = m.query.Update(msg)
	}
	return m, cmd
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.snapshot.Current != domain.StageNaturalLanguageQuery || m.snapshot.Capture.Mode != domain.InputModeVoice {
		m.status = "Switch to voice input (tab) to record"
		return m, nil
	}
	if m.snapshot.Capture.Recording {
		return m, m.run(opStop, func(ctx context.Context) error {
			_, err := m.workflow.StopRecording(ctx)
			return err
		})
	}
	return m, m.run(opStart, m.workflow.StartRecording)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	switch m.snapshot.Current {
	case domain.StageNaturalLanguageQuery:
		if !m.snapshot.CanGenerate {
			return m, nil
		}
		text := m.intent.Value()
		return m, m.run(opConvert, func(ctx context.Context) error {
			_, err := m.workflow.SubmitIntent(ctx, text)
			return err
		})
	case domain.StageFormalQuery:
		if m.snapshot.Executing || strings.TrimSpace(m.query.Value()) == "" {
			return m, nil
		}
		query := m.query.Value()
		return m, m.run(opExecute, func(ctx context.Context) error {
			_, err := m.workflow.SubmitFormalQuery(ctx, query)
			return err
		})
	}
	return m, nil
}

func (m Model) selectStage(stage domain.Stage) (tea.Model, tea.Cmd) {
	if err := m.workflow.Restart(stage); err != nil {
		if errors.Is(err, domain.ErrStageUnavailable) {
			m.status = fmt.Sprintf("%s is not available yet", stageTitle(stage))
			return m, nil
		}
		m.errMsg = err.Error()
		return m, nil
	}
	m.apply(m.workflow.Snapshot())
	return m, nil
}

// run executes fn off the event loop; the result comes back as opDoneMsg.
func (m Model) run(op operation, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// apply syncs editors and focus with a snapshot.
func (m *Model) apply(snapshot domain.Snapshot) {
	m.snapshot = snapshot

	if draft := snapshot.Capture.Draft; m.intent.Value() != draft {
		m.intent.SetValue(draft)
	}
	if formal := snapshot.View(domain.StageFormalQuery).Value; formal != m.formal {
		m.formal = formal
		m.query.SetValue(formal)
	}

	switch snapshot.Current {
	case domain.StageNaturalLanguageQuery:
		m.query.Blur()
		m.intent.Focus()
	case domain.StageFormalQuery:
		m.intent.Blur()
		m.query.Focus()
	default:
		m.intent.Blur()
		m.query.Blur()
	}
}

func (m Model) currentValue() string {
	switch m.snapshot.Current {
	case domain.StageNaturalLanguageQuery:
		return m.intent.Value()
	case domain.StageFormalQuery:
		return m.query.Value()
	default:
		return m.snapshot.View(domain.StageQueryResult).Value
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voxquery"))
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")
	b.WriteString(panelStyle.Width(max(20, m.width-2)).Render(m.body()))
	b.WriteString("\n")

	if line := m.statusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) tabs() string {
	rendered := make([]string, 0, len(m.snapshot.Stages))
	for i, view := range m.snapshot.Stages {
		label := fmt.Sprintf("%d %s", i+1, stageTitle(view.Stage))
		switch {
		case view.Active:
			rendered = append(rendered, activeTabStyle.Render(label))
		case view.Enabled:
			rendered = append(rendered, enabledTabStyle.Render(label))
		default:
			rendered = append(rendered, disabledTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) body() string {
	switch m.snapshot.Current {
	case domain.StageFormalQuery:
		lines := []string{dimStyle.Render("Review or edit the query, then ctrl+s to execute."), m.query.View()}
		if m.snapshot.Executing {
			lines = append(lines, m.spinner.View()+" Executing...")
		}
		return strings.Join(lines, "\n")

	case domain.StageQueryResult:
		return m.snapshot.View(domain.StageQueryResult).Value

	default:
		capture := m.snapshot.Capture
		mode := "Text input"
		if capture.Mode == domain.InputModeVoice {
			mode = "Voice input"
		}
		lines := []string{dimStyle.Render(mode)}
		switch {
		case capture.Recording:
			lines = append(lines, recordingStyle.Render("● Recording. ctrl+r to stop."))
		case capture.Transcribing:
			lines = append(lines, m.spinner.View()+" Transcribing...")
		}
		lines = append(lines, m.intent.View())
		if m.snapshot.Converting {
			lines = append(lines, m.spinner.View()+" Generating formal query...")
		}
		return strings.Join(lines, "\n")
	}
}

func (m Model) statusLine() string {
	if m.errMsg != "" {
		return errorStyle.Render(m.errMsg)
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	return ""
}

func stageTitle(stage domain.Stage) string {
	switch stage {
	case domain.StageNaturalLanguageQuery:
		return "Question"
	case domain.StageFormalQuery:
		return "Query"
	case domain.StageQueryResult:
		return "Result"
	default:
		return stage.String()
	}
}

// Run starts the terminal UI and blocks until it exits.
func Run(ctx context.Context, workflow Workflow, bridge *EventBridge) error {
	program := tea.NewProgram(NewModel(ctx, workflow), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)
	defer bridge.Close()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
