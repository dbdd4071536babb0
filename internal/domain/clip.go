package domain

import (
	"bytes"
	"io"
)

// AudioClip is a finished, immutable recording.
type AudioClip struct {
	data     []byte
	mimeType string
}

// NewAudioClip copies data so later writes by the caller cannot change the clip.
func NewAudioClip(data []byte, mimeType string) AudioClip {
	return AudioClip{data: append([]byte(nil), data...), mimeType: mimeType}
}

func (c AudioClip) MIMEType() string { return c.mimeType }

func (c AudioClip) Len() int { return len(c.data) }

func (c AudioClip) Empty() bool { return len(c.data) == 0 }

// Reader returns a fresh reader over the clip bytes.
func (c AudioClip) Reader() io.Reader {
	return bytes.NewReader(c.data)
}

// Bytes returns a copy of the clip bytes.
func (c AudioClip) Bytes() []byte {
	return append([]byte(nil), c.data...)
}
