package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxquery/internal/domain"
	"voxquery/internal/ports"
)

const startupProbe = 250 * time.Millisecond

// FFMPEGCapture streams microphone PCM (s16le) from an ffmpeg subprocess.
type FFMPEGCapture struct {
	command string
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withAudioDefaults(cfg)

	cmd := exec.CommandContext(ctx, c.command, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Bounds Wait when a child of the capture command outlives it.
	cmd.WaitDelay = time.Second

	// A plain pipe instead of StdoutPipe: Wait must not close the read end
	// while the audio ffmpeg flushes on interrupt is still being drained.
	stdout, pipeWriter, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", domain.ErrDeviceUnavailable, err)
	}
	cmd.Stdout = pipeWriter
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = pipeWriter.Close()
		return nil, fmt.Errorf("%w: start %s: %v", domain.ErrDeviceUnavailable, c.command, err)
	}
	_ = pipeWriter.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// ffmpeg reports an unusable device by exiting right away.
	select {
	case err := <-waitErr:
		_ = stdout.Close()
		return nil, classifyEarlyExit(err, trimOutput(stderr.String()))
	case <-time.After(startupProbe):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

func withAudioDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func captureArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

var permissionMarkers = []string{
	"permission denied",
	"access denied",
	"operation not permitted",
	"not authorized",
}

func classifyEarlyExit(err error, stderr string) error {
	kind := domain.ErrDeviceUnavailable
	lower := strings.ToLower(stderr)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			kind = domain.ErrPermissionDenied
			break
		}
	}
	if err == nil {
		err = errors.New("exited before capture started")
	}
	if stderr == "" {
		return fmt.Errorf("%w: ffmpeg exited before capture started: %v", kind, err)
	}
	return fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", kind, err, stderr)
}

// ffmpegSession reads PCM until ffmpeg exits and its output is drained.
// Stop ends the capture; Close releases the pipe.
type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	err := s.Stop()
	if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
		err = closeErr
	}
	return err
}

// Stop interrupts ffmpeg so it flushes, and kills it if it lingers.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var err error
		select {
		case err = <-s.waitErr:
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err = <-s.waitErr
		}
		s.stopErr = ignoreExitStatus(err)
		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimOutput(s.stderr.String()))
		}
	})
	return s.stopErr
}

// An interrupted ffmpeg exits non-zero; that is the normal way to stop it.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(input string) string {
	return strings.TrimSpace(input)
}
