package deepgram

import "strings"

// transcriptAggregator is owned by the receiving goroutine.
type transcriptAggregator struct {
	finals     []string
	lastSpoken string
}

func (a *transcriptAggregator) Add(text string, final bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if final {
		a.finals = append(a.finals, text)
	}
}

// Raw joins final segments, falling back to the last partial when the
// stream closed before anything was finalized.
func (a *transcriptAggregator) Raw() string {
	joined := strings.Join(a.finals, " ")
	switch {
	case joined == "":
		return a.lastSpoken
	case strings.HasSuffix(joined, a.lastSpoken):
		return joined
	default:
		return joined + " " + a.lastSpoken
	}
}
