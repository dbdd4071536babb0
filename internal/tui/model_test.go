package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxquery/internal/domain"
)

type fakeWorkflow struct {
	mu      sync.Mutex
	session domain.Session
	capture domain.CaptureStatus

	formal     string
	result     string
	transcript string
	convertErr error

	intents  []string
	queries  []string
	restarts []domain.Stage
}

func newFakeWorkflow() *fakeWorkflow {
	return &fakeWorkflow{
		session: domain.NewSession(),
		capture: domain.CaptureStatus{Mode: domain.InputModeText},
	}
}

func (f *fakeWorkflow) Snapshot() domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.NewSnapshot(f.session, f.capture, false, false)
}

func (f *fakeWorkflow) SubmitIntent(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, text)
	if f.convertErr != nil {
		return "", f.convertErr
	}
	f.session = f.session.WithFormalQuery(text, f.formal)
	return f.formal, nil
}

func (f *fakeWorkflow) SubmitFormalQuery(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	session, err := f.session.WithResult(query, f.result)
	if err != nil {
		return "", err
	}
	f.session = session
	return f.result, nil
}

func (f *fakeWorkflow) Restart(to domain.Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts = append(f.restarts, to)
	if to == f.session.Current() {
		return nil
	}
	session, err := f.session.Rewind(to)
	if err != nil {
		return err
	}
	f.session = session
	return nil
}

func (f *fakeWorkflow) SetMode(mode domain.InputMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capture.Mode = mode
	f.capture.Recording = false
	return nil
}

func (f *fakeWorkflow) SetDraft(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capture.Draft = text
	return nil
}

func (f *fakeWorkflow) StartRecording(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capture.Recording = true
	return nil
}

func (f *fakeWorkflow) StopRecording(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capture.Recording = false
	f.capture.Draft = f.transcript
	return f.transcript, nil
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(t *testing.T, m Model, keyType tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: keyType})
	return updated.(Model), cmd
}

// finish runs an operation command and feeds its result back into the model.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(opDoneMsg)
	require.True(t, ok, "expected opDoneMsg, got %T", msg)
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestModelGenerateAndExecute(t *testing.T) {
	t.Parallel()

	wf := newFakeWorkflow()
	wf.formal = "SELECT * FROM products WHERE color='red'"
	wf.result = "TestValue1, TestValue2"
	m := NewModel(context.Background(), wf)

	m = typeText(t, m, "list all red products")
	assert.Equal(t, "list all red products", wf.Snapshot().Capture.Draft)
	assert.True(t, m.snapshot.CanGenerate)

	m, cmd := press(t, m, tea.KeyCtrlS)
	m = finish(t, m, cmd)
	assert.Equal(t, []string{"list all red products"}, wf.intents)
	assert.Equal(t, domain.StageFormalQuery, m.snapshot.Current)
	assert.Equal(t, wf.formal, m.query.Value())

	m = typeText(t, m, " LIMIT 5")
	m, cmd = press(t, m, tea.KeyCtrlS)
	m = finish(t, m, cmd)
	require.Len(t, wf.queries, 1)
	assert.Equal(t, wf.formal+" LIMIT 5", wf.queries[0])
	assert.Equal(t, domain.StageQueryResult, m.snapshot.Current)
	assert.Contains(t, m.View(), "TestValue1, TestValue2")
}

func TestModelGenerateDisabledWithoutText(t *testing.T) {
	t.Parallel()

	wf := newFakeWorkflow()
	m := NewModel(context.Background(), wf)

	_, cmd := press(t, m, tea.KeyCtrlS)
	assert.Nil(t, cmd)
	assert.Empty(t, wf.intents)
}

func TestModelSelectStage(t *testing.T) {
	t.Parallel()

	wf := newFakeWorkflow()
	wf.formal = "SELECT 1"
	m := NewModel(context.Background(), wf)

	m, _ = press(t, m, tea.KeyF3)
	assert.Contains(t, m.status, "not available")
	assert.Equal(t, domain.StageNaturalLanguageQuery, m.snapshot.Current)

	m = typeText(t, m, "one")
	m, cmd := press(t, m, tea.KeyCtrlS)
	m = finish(t, m, cmd)

	m, _ = press(t, m, tea.KeyF1)
	assert.Equal(t, domain.StageNaturalLanguageQuery, m.snapshot.Current)
	view := m.snapshot.View(domain.StageFormalQuery)
	assert.True(t, view.Populated)
	assert.False(t, view.Enabled)
	assert.Equal(t, []domain.Stage{domain.StageQueryResult, domain.StageNaturalLanguageQuery}, wf.restarts)
}

func TestModelVoiceRecording(t *testing.T) {
	t.Parallel()

	wf := newFakeWorkflow()
	wf.transcript = "count users"
	m := NewModel(context.Background(), wf)

	m, cmd := press(t, m, tea.KeyCtrlR)
	assert.Nil(t, cmd, "recording is unavailable in text mode")
	assert.Contains(t, m.status, "voice")

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, domain.InputModeVoice, m.snapshot.Capture.Mode)

	m, cmd = press(t, m, tea.KeyCtrlR)
	m = finish(t, m, cmd)
	assert.True(t, m.snapshot.Capture.Recording)
	assert.Contains(t, m.View(), "Recording")

	m, cmd = press(t, m, tea.KeyCtrlR)
	m = finish(t, m, cmd)
	assert.False(t, m.snapshot.Capture.Recording)
	assert.Equal(t, "count users", m.intent.Value())
}

func TestModelShowsFailures(t *testing.T) {
	t.Parallel()

	m := NewModel(context.Background(), newFakeWorkflow())
	snapshot := m.snapshot

	updated, _ := m.Update(eventsMsg{
		snapshot: &snapshot,
		reason:   domain.CaptureReasonRecordingFailed,
		failures: []failure{{code: domain.ErrorCodePermissionDenied, detail: "pulse refused"}},
	})
	m = updated.(Model)

	assert.Equal(t, "Microphone unavailable", m.status)
	assert.Contains(t, m.View(), "Microphone permission denied")
}

func TestModelReportsControlErrors(t *testing.T) {
	t.Parallel()

	wf := newFakeWorkflow()
	wf.convertErr = domain.ErrRequestPending
	m := NewModel(context.Background(), wf)

	m = typeText(t, m, "q")
	m, cmd := press(t, m, tea.KeyCtrlS)
	m = finish(t, m, cmd)
	assert.Contains(t, m.errMsg, "convert")

	wf.convertErr = nil
	m, cmd = press(t, m, tea.KeyCtrlS)
	m = finish(t, m, cmd)
	assert.Empty(t, m.errMsg)
}

func TestModelCopiesCurrentValue(t *testing.T) {
	var copied string
	original := clipboardWriteAll
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { clipboardWriteAll = original })

	m := NewModel(context.Background(), newFakeWorkflow())
	m = typeText(t, m, "hello")
	m, _ = press(t, m, tea.KeyCtrlY)

	assert.Equal(t, "hello", copied)
	assert.Equal(t, "Copied to clipboard", m.status)

	clipboardWriteAll = func(string) error { return errors.New("no display") }
	m, _ = press(t, m, tea.KeyCtrlY)
	assert.True(t, strings.HasPrefix(m.errMsg, "Clipboard write failed"))
}

func TestModelQuit(t *testing.T) {
	t.Parallel()

	m := NewModel(context.Background(), newFakeWorkflow())
	_, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
