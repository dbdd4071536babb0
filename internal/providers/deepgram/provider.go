package deepgram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxquery/internal/domain"
)

const (
	defaultChunkSize = 8192
	finalizeTimeout  = 4 * time.Second
)

// Provider transcribes finished clips over the Deepgram live endpoint.
type Provider struct {
	cfg       Config
	dialer    *websocket.Dialer
	chunkSize int
	finalize  time.Duration
	logger    *zap.Logger
}

func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:       cfg,
		dialer:    websocket.DefaultDialer,
		chunkSize: defaultChunkSize,
		finalize:  finalizeTimeout,
		logger:    logger,
	}
}

// Transcribe streams the clip, closes the send side and joins the final
// segments Deepgram returns before the connection closes.
func (p *Provider) Transcribe(ctx context.Context, clip domain.AudioClip) (string, error) {
	if clip.Empty() {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, domain.ErrEmptyInput)
	}

	conn, err := dialListen(ctx, p.dialer, p.cfg, streamConfigFor(clip))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}
	defer conn.Close()

	stream := &listenStream{conn: conn, finalize: p.finalize}
	agg := &transcriptAggregator{}

	g, gctx := errgroup.WithContext(ctx)
	// Unblocks both halves when either fails or the caller gives up.
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	g.Go(func() error {
		return stream.send(gctx, clip.Reader(), p.chunkSize)
	})
	g.Go(func() error {
		return stream.receive(agg)
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		p.logger.Warn("deepgram transcription failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}

	text := agg.Raw()
	p.logger.Debug("deepgram transcription finished",
		zap.Int("clip_bytes", clip.Len()),
		zap.Int("transcript_chars", len(text)))
	return text, nil
}

// Raw PCM needs explicit encoding parameters; anything else carries a header.
func streamConfigFor(clip domain.AudioClip) streamConfig {
	switch strings.ToLower(clip.MIMEType()) {
	case "audio/l16", "audio/pcm":
		return streamConfig{Encoding: "linear16", SampleRate: 16000, Channels: 1}
	default:
		return streamConfig{}
	}
}
