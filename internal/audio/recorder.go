package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxquery/internal/domain"
	"voxquery/internal/ports"
)

const drainTimeout = 2 * time.Second

// Recorder buffers one microphone session at a time and turns it into a
// WAV clip when stopped.
type Recorder struct {
	device    ports.AudioDevice
	cfg       ports.AudioConfig
	chunkSize int
	logger    *zap.Logger

	mu      sync.Mutex
	current *recording
}

type recording struct {
	session ports.AudioSession
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	chunks  [][]byte
	readErr error
}

func NewRecorder(device ports.AudioDevice, cfg ports.AudioConfig, chunkSize int, logger *zap.Logger) *Recorder {
	if chunkSize < 256 {
		chunkSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		device:    device,
		cfg:       withAudioDefaults(cfg),
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Start opens the microphone. ctx bounds the lifetime of the capture
// process, so it should outlive the recording.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return domain.ErrAlreadyRecording
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session, err := r.device.Start(sessionCtx, r.cfg)
	if err != nil {
		cancel()
		if !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
		}
		r.logger.Warn("microphone unavailable", zap.Error(err))
		return err
	}

	rec := &recording{
		session: session,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go rec.collect(r.chunkSize)
	r.current = rec

	r.logger.Debug("recording started",
		zap.Int("sample_rate", r.cfg.SampleRate),
		zap.Int("channels", r.cfg.Channels))
	return nil
}

// Stop closes the open session and assembles its chunks in arrival order.
// With no open session it is a no-op returning ok=false.
func (r *Recorder) Stop() (domain.AudioClip, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.current
	if rec == nil {
		return domain.AudioClip{}, false, nil
	}
	r.current = nil

	stopErr := rec.close()
	pcm, readErr := rec.pcm()

	if len(pcm) == 0 {
		if err := errors.Join(stopErr, readErr); err != nil {
			return domain.AudioClip{}, false, fmt.Errorf("%w: no audio captured: %v", domain.ErrDeviceUnavailable, err)
		}
		r.logger.Debug("recording stopped without audio")
		return domain.AudioClip{}, false, nil
	}
	if stopErr != nil {
		r.logger.Warn("audio capture did not stop cleanly", zap.Error(stopErr))
	}

	clip := domain.NewAudioClip(encodeWAV(pcm, r.cfg.SampleRate, r.cfg.Channels), wavMIMEType)
	r.logger.Debug("recording stopped", zap.Int("bytes", clip.Len()))
	return clip, true, nil
}

// Discard closes the open session without producing a clip.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.current
	if rec == nil {
		return nil
	}
	r.current = nil
	err := rec.close()
	r.logger.Debug("recording discarded")
	return err
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

func (rec *recording) collect(chunkSize int) {
	defer close(rec.done)

	buf := make([]byte, chunkSize)
	for {
		n, err := rec.session.Read(buf)
		if n > 0 {
			rec.mu.Lock()
			rec.chunks = append(rec.chunks, append([]byte(nil), buf[:n]...))
			rec.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				rec.mu.Lock()
				rec.readErr = err
				rec.mu.Unlock()
			}
			return
		}
	}
}

// close stops the device and drains what it flushed before releasing the
// stream. A device that never reaches EOF is cut off after drainTimeout.
func (rec *recording) close() error {
	err := rec.session.Stop()
	select {
	case <-rec.done:
	case <-time.After(drainTimeout):
	}
	if closeErr := rec.session.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	<-rec.done
	rec.cancel()
	return err
}

func (rec *recording) pcm() ([]byte, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return bytes.Join(rec.chunks, nil), rec.readErr
}
