package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voxquery/internal/domain"
	"voxquery/internal/ports"
)

// CaptureStage produces the raw intent text, typed or transcribed from
// the microphone. Both modes share one draft.
type CaptureStage struct {
	recorder    ports.Recorder
	loader      ports.ClipLoader
	transcriber ports.Transcriber
	rules       ports.RulesEngine
	events      ports.EventSink
	logger      *zap.Logger

	// changed runs after every status change, outside of mu.
	changed func()

	// recMu serializes recorder operations so a restart cannot interleave
	// with a stop.
	recMu sync.Mutex

	mu         sync.Mutex
	mode       domain.InputMode
	draft      string
	transcribe requestSlot
}

func newCaptureStage(
	recorder ports.Recorder,
	loader ports.ClipLoader,
	transcriber ports.Transcriber,
	rules ports.RulesEngine,
	events ports.EventSink,
	logger *zap.Logger,
	changed func(),
) *CaptureStage {
	if changed == nil {
		changed = func() {}
	}
	return &CaptureStage{
		recorder:    recorder,
		loader:      loader,
		transcriber: transcriber,
		rules:       rules,
		events:      events,
		logger:      logger,
		changed:     changed,
		mode:        domain.InputModeText,
	}
}

// Status returns the current capture status.
func (s *CaptureStage) Status() domain.CaptureStatus {
	recording := s.recorder.Recording()

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CaptureStatus{
		Mode:         s.mode,
		Recording:    recording,
		Transcribing: s.transcribe.pending,
		Draft:        s.draft,
	}
}

func (s *CaptureStage) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *CaptureStage) Transcribing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcribe.pending
}

// SetMode switches input mode. Leaving voice mode discards an open
// recording unheard and drops any outstanding transcription.
func (s *CaptureStage) SetMode(mode domain.InputMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown input mode %q", mode)
	}

	s.mu.Lock()
	if s.mode == mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	s.transcribe.invalidate()
	s.mu.Unlock()

	reason := domain.CaptureReasonModeChanged
	s.recMu.Lock()
	if s.recorder.Recording() {
		reason = domain.CaptureReasonRecordingDiscarded
		if err := s.recorder.Discard(); err != nil {
			s.logger.Warn("discarding recording on mode switch", zap.Error(err))
		}
	}
	s.recMu.Unlock()

	s.logger.Debug("input mode changed", zap.String("mode", string(mode)))
	s.notify(reason)
	return nil
}

// SetDraft replaces the draft with hand-edited text.
func (s *CaptureStage) SetDraft(text string) error {
	s.mu.Lock()
	if s.transcribe.pending {
		s.mu.Unlock()
		return fmt.Errorf("%w: transcription in progress", domain.ErrRequestPending)
	}
	if s.draft == text {
		s.mu.Unlock()
		return nil
	}
	s.draft = text
	s.mu.Unlock()

	s.notify(domain.CaptureReasonDraftEdited)
	return nil
}

// StartRecording opens the microphone. An open recording is discarded
// first, and a transcription still in flight can no longer land.
func (s *CaptureStage) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.mode != domain.InputModeVoice {
		s.mu.Unlock()
		return domain.ErrWrongInputMode
	}
	s.transcribe.invalidate()
	s.mu.Unlock()

	s.recMu.Lock()
	restarted := false
	if s.recorder.Recording() {
		restarted = true
		if err := s.recorder.Discard(); err != nil {
			s.logger.Warn("discarding previous recording", zap.Error(err))
		}
	}
	err := s.recorder.Start(ctx)
	s.recMu.Unlock()

	if err != nil {
		s.events.Failure(domain.CodeFor(err), err.Error())
		s.notify(domain.CaptureReasonRecordingFailed)
		return err
	}

	reason := domain.CaptureReasonRecordingStarted
	if restarted {
		reason = domain.CaptureReasonRecordingRestarted
	}
	s.notify(reason)
	return nil
}

// StopRecording closes the microphone and transcribes what was captured.
// With nothing recorded it returns an empty string and no error.
func (s *CaptureStage) StopRecording(ctx context.Context) (string, error) {
	s.mu.Lock()
	mode, observed := s.mode, s.transcribe.generation
	s.mu.Unlock()
	if mode != domain.InputModeVoice {
		return "", domain.ErrWrongInputMode
	}

	s.recMu.Lock()
	clip, ok, err := s.recorder.Stop()
	s.recMu.Unlock()

	if err != nil {
		s.events.Failure(domain.ErrorCodeAudioStop, err.Error())
		s.notify(domain.CaptureReasonRecordingFailed)
		return "", err
	}
	if !ok {
		s.notify(domain.CaptureReasonNoAudio)
		return "", nil
	}
	return s.transcribeClip(ctx, clip, observed)
}

// TranscribeFile transcribes an audio file from disk in place of a recording.
func (s *CaptureStage) TranscribeFile(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	mode, observed := s.mode, s.transcribe.generation
	s.mu.Unlock()
	if mode != domain.InputModeVoice {
		return "", domain.ErrWrongInputMode
	}
	if s.recorder.Recording() {
		return "", domain.ErrAlreadyRecording
	}

	clip, err := s.loader.Load(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
		s.events.Failure(domain.ErrorCodeTranscription, err.Error())
		return "", err
	}
	return s.transcribeClip(ctx, clip, observed)
}

// transcribeClip only starts if no mode switch or new recording happened
// since observed was read; otherwise the clip belongs to an abandoned capture.
func (s *CaptureStage) transcribeClip(ctx context.Context, clip domain.AudioClip, observed uint64) (string, error) {
	s.mu.Lock()
	generation, ok := s.transcribe.beginFrom(observed)
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("dropping clip from an abandoned capture", zap.Int("bytes", clip.Len()))
		return "", domain.ErrStaleResponse
	}
	s.draft = ""
	s.mu.Unlock()
	s.notify(domain.CaptureReasonTranscribing)

	text, err := s.transcriber.Transcribe(ctx, clip)
	code, reason := domain.ErrorCodeTranscription, domain.CaptureReasonTranscriptionFailed
	if err == nil {
		text, err = s.rules.Apply(strings.TrimSpace(text))
		if err != nil {
			code, reason = domain.ErrorCodeRules, domain.CaptureReasonRulesFailed
		}
	}

	s.mu.Lock()
	if !s.transcribe.settle(generation) {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded transcription", zap.Uint64("generation", generation))
		return "", domain.ErrStaleResponse
	}
	if err == nil {
		s.draft = text
	}
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, domain.ErrTranscriptionFailed) && code == domain.ErrorCodeTranscription {
			err = fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
		}
		s.logger.Warn("transcription failed", zap.Error(err))
		s.events.Failure(code, err.Error())
		s.notify(reason)
		return "", err
	}

	s.notify(domain.CaptureReasonTranscriptReady)
	return text, nil
}

func (s *CaptureStage) notify(reason domain.CaptureReason) {
	s.events.CaptureChanged(s.Status(), reason)
	s.changed()
}
