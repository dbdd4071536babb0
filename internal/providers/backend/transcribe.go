package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"voxquery/internal/domain"
)

// Transcribe uploads clip as multipart form field "audio" and returns the
// plain-text transcription.
func (c *Client) Transcribe(ctx context.Context, clip domain.AudioClip) (string, error) {
	if clip.Empty() {
		return "", fmt.Errorf("%w: empty audio clip", domain.ErrTranscriptionFailed)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, clipFilename(clip)))
	header.Set("Content-Type", clip.MIMEType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%w: create form part: %v", domain.ErrTranscriptionFailed, err)
	}
	if _, err := io.Copy(part, clip.Reader()); err != nil {
		return "", fmt.Errorf("%w: write audio: %v", domain.ErrTranscriptionFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: close form: %v", domain.ErrTranscriptionFailed, err)
	}

	payload, err := c.post(ctx, "transcribe", c.cfg.TranscribePath, writer.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(string(payload)), nil
}

func clipFilename(clip domain.AudioClip) string {
	ext := ".bin"
	if known := mimetype.Lookup(clip.MIMEType()); known != nil && known.Extension() != "" {
		ext = known.Extension()
	}
	return "recording" + ext
}
