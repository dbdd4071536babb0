package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"voxquery/internal/bootstrap"
	"voxquery/internal/config"
	"voxquery/internal/domain"
	"voxquery/internal/ports"
	"voxquery/internal/usecase"
)

const (
	eventSession = "voxquery:session"
	eventCapture = "voxquery:capture"
	eventError   = "voxquery:error"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	logger *zap.Logger

	controller *usecase.WorkflowController
	clipboard  ports.Clipboard
	emit       func(ctx context.Context, name string, data ...interface{})
	cfg        config.Config
	bootErr    error
}

func NewApp(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, clipboard: &wailsClipboard{}, emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a.cfg, a, a.logger)
	if err != nil {
		a.bootErr = err
		a.Failure(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionChanged(a.controller.Snapshot())
}

// GetSnapshot returns the whole workflow state for the initial render.
func (a *App) GetSnapshot() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	return a.controller.Snapshot(), nil
}

// SetInputMode switches between "text" and "voice" input.
func (a *App) SetInputMode(mode string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := a.controller.SetMode(domain.InputMode(mode)); err != nil {
		return domain.Snapshot{}, err
	}
	return a.controller.Snapshot(), nil
}

// UpdateDraft stores hand-typed or hand-edited intent text.
func (a *App) UpdateDraft(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SetDraft(text)
}

// StartRecording opens the microphone.
func (a *App) StartRecording() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := a.controller.StartRecording(a.ctx); err != nil {
		return domain.Snapshot{}, err
	}
	return a.controller.Snapshot(), nil
}

// StopRecording closes the microphone and returns the transcript.
func (a *App) StopRecording() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return ignoreStale(a.controller.StopRecording(a.ctx))
}

// TranscribeFile transcribes an audio file chosen by the user.
func (a *App) TranscribeFile(path string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return ignoreStale(a.controller.TranscribeFile(a.ctx, path))
}

// GenerateFormalQuery converts intent text into a formal query.
func (a *App) GenerateFormalQuery(text string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return ignoreStale(a.controller.SubmitIntent(a.ctx, text))
}

// ExecuteFormalQuery runs the (possibly edited) formal query.
func (a *App) ExecuteFormalQuery(query string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return ignoreStale(a.controller.SubmitFormalQuery(a.ctx, query))
}

// SelectStage navigates back to an already reached stage.
func (a *App) SelectStage(stage string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	parsed, err := domain.ParseStage(stage)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := a.controller.Restart(parsed); err != nil {
		return domain.Snapshot{}, err
	}
	return a.controller.Snapshot(), nil
}

// CopyToClipboard writes a stage value to the system clipboard.
func (a *App) CopyToClipboard(text string) error {
	if a.ctx == nil {
		return fmt.Errorf("application is not initialized")
	}
	if err := a.clipboard.SetText(a.ctx, text); err != nil {
		a.Failure(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"transcriber":      a.cfg.Transcriber,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
	if a.cfg.Transcriber == config.TranscriberDeepgram {
		info["model"] = a.cfg.Deepgram.Model
		info["language"] = a.cfg.Deepgram.Language
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// The frontend only renders the latest state, which a superseded request
// never changes.
func ignoreStale(text string, err error) (string, error) {
	if errors.Is(err, domain.ErrStaleResponse) {
		return "", nil
	}
	return text, err
}

// SessionChanged emits the workflow snapshot to the frontend.
func (a *App) SessionChanged(snapshot domain.Snapshot) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventSession, snapshot)
}

// CaptureChanged emits input capture updates to the frontend.
func (a *App) CaptureChanged(status domain.CaptureStatus, reason domain.CaptureReason) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventCapture, capturePayload(status, reason))
}

// Failure emits stage failures to the UI.
func (a *App) Failure(code domain.ErrorCode, detail string) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventError, errorPayload(code, detail))
}

func capturePayload(status domain.CaptureStatus, reason domain.CaptureReason) map[string]any {
	return map[string]any{
		"status":  status,
		"reason":  string(reason),
		"message": reason.Message(),
	}
}

func errorPayload(code domain.ErrorCode, detail string) map[string]string {
	return map[string]string{
		"code":    string(code),
		"message": code.Message(detail),
		"detail":  detail,
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
