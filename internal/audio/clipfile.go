package audio

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"voxquery/internal/domain"
)

// containers that carry audio but are not reported under audio/*.
var audioContainers = []string{"video/webm", "application/ogg", "video/mp4"}

// LoadClip reads an audio file from disk and tags it with its sniffed MIME type.
func LoadClip(path string) (domain.AudioClip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("read audio file %q: %w", path, err)
	}
	if len(data) == 0 {
		return domain.AudioClip{}, fmt.Errorf("audio file %q is empty", path)
	}

	detected := mimetype.Detect(data)
	if !isAudio(detected) {
		return domain.AudioClip{}, fmt.Errorf("%q is not an audio file (%s)", path, detected.String())
	}
	return domain.NewAudioClip(data, detected.String()), nil
}

func isAudio(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
		for _, container := range audioContainers {
			if m.Is(container) {
				return true
			}
		}
	}
	return false
}

// FileLoader adapts LoadClip to ports.ClipLoader.
type FileLoader struct{}

func (FileLoader) Load(path string) (domain.AudioClip, error) {
	return LoadClip(path)
}
