package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const defaultAPIBase = "https://api.deepgram.com/v1"

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// streamConfig describes the audio sent on one stream. An empty Encoding
// means the audio is containerized (WAV, Ogg, WebM) and Deepgram reads the
// format from the container header.
type streamConfig struct {
	Encoding   string
	SampleRate int
	Channels   int
}

// listenStream is one /listen connection carrying a single clip. send and
// receive may run concurrently; nothing else writes to the connection.
type listenStream struct {
	conn     *websocket.Conn
	finalize time.Duration
}

func dialListen(ctx context.Context, dialer *websocket.Dialer, cfg Config, stream streamConfig) (*websocket.Conn, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := buildListenURL(cfg, stream)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	return conn, nil
}

// send writes audio in chunkSize frames, asks Deepgram to flush with
// CloseStream and bounds how long receive waits for the last results.
func (s *listenStream) send(ctx context.Context, audio io.Reader, chunkSize int) error {
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := audio.Read(buf)
		if n > 0 {
			if werr := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return fmt.Errorf("failed to send audio: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read clip: %w", err)
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, closeStreamMessage); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return s.conn.SetReadDeadline(time.Now().Add(s.finalize))
}

// receive feeds results into agg until Deepgram closes the stream, reports
// an error, or the finalize deadline set by send passes.
func (s *listenStream) receive(agg *transcriptAggregator) error {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if endOfStream(err) {
				return nil
			}
			return fmt.Errorf("failed to read provider event: %w", err)
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			return errors.New(message)
		}

		agg.Add(extractTranscript(response), response.IsFinal || response.SpeechFinal)
	}
}

func endOfStream(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type deepgramAlternative struct {
	Transcript string `json:"transcript"`
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []deepgramAlternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []deepgramAlternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func buildListenURL(providerCfg Config, streamCfg streamConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultAPIBase
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	query.Set("interim_results", "false")
	if streamCfg.Encoding != "" {
		sampleRate := streamCfg.SampleRate
		if sampleRate <= 0 {
			sampleRate = 16000
		}
		query.Set("encoding", streamCfg.Encoding)
		query.Set("sample_rate", strconv.Itoa(sampleRate))
		query.Set("channels", strconv.Itoa(max(streamCfg.Channels, 1)))
	}
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
