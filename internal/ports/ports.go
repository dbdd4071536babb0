package ports

import (
	"context"
	"io"

	"voxquery/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session producing raw PCM. After Stop,
// Read keeps returning audio the device flushed until io.EOF; Close
// releases the stream.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioDevice opens microphone capture sessions.
type AudioDevice interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Recorder owns the single open recording session.
type Recorder interface {
	Start(ctx context.Context) error
	// Stop closes the open session. ok is false when nothing was recording
	// or the device produced no audio.
	Stop() (clip domain.AudioClip, ok bool, err error)
	Discard() error
	Recording() bool
}

// ClipLoader reads a previously recorded audio file.
type ClipLoader interface {
	Load(path string) (domain.AudioClip, error)
}

// Transcriber turns a finished clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.AudioClip) (string, error)
}

// QueryConverter turns raw intent text into a formal query.
type QueryConverter interface {
	Convert(ctx context.Context, text string) (string, error)
}

// QueryExecutor runs a formal query and returns its rendered result.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits workflow state and failures to the UI.
type EventSink interface {
	SessionChanged(snapshot domain.Snapshot)
	CaptureChanged(status domain.CaptureStatus, reason domain.CaptureReason)
	Failure(code domain.ErrorCode, detail string)
}
