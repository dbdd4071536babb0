package domain

import (
	"fmt"
	"strings"
)

// Stage identifies one step of the query workflow.
type Stage int

const (
	StageNaturalLanguageQuery Stage = iota
	StageFormalQuery
	StageQueryResult
)

// Stages lists every stage in forward order.
var Stages = []Stage{StageNaturalLanguageQuery, StageFormalQuery, StageQueryResult}

func (s Stage) String() string {
	switch s {
	case StageNaturalLanguageQuery:
		return "natural_language_query"
	case StageFormalQuery:
		return "formal_query"
	case StageQueryResult:
		return "query_result"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return s >= StageNaturalLanguageQuery && s <= StageQueryResult
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage accepts the wire name of a stage or its 1-based position.
func ParseStage(value string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "natural_language_query", "1":
		return StageNaturalLanguageQuery, nil
	case "formal_query", "2":
		return StageFormalQuery, nil
	case "query_result", "3":
		return StageQueryResult, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, value)
	}
}

// Progress is what the workflow has produced so far. Exactly one of
// Drafting, Converted or Executed.
type Progress interface {
	Reached() Stage
	isProgress()
}

// Drafting means no intent has been converted yet.
type Drafting struct{}

// Converted holds a submitted intent and the formal query derived from it.
type Converted struct {
	Intent      string
	FormalQuery string
}

// Executed holds the full chain up to the execution result.
type Executed struct {
	Intent      string
	FormalQuery string
	Result      string
}

func (Drafting) Reached() Stage  { return StageNaturalLanguageQuery }
func (Converted) Reached() Stage { return StageFormalQuery }
func (Executed) Reached() Stage  { return StageQueryResult }

func (Drafting) isProgress()  {}
func (Converted) isProgress() {}
func (Executed) isProgress()  {}

// Session is the root state of one interaction. Values are immutable;
// transitions return a new Session.
type Session struct {
	current  Stage
	progress Progress
}

// NewSession returns the initial state: natural language stage, nothing produced.
func NewSession() Session {
	return Session{current: StageNaturalLanguageQuery, progress: Drafting{}}
}

func (s Session) Current() Stage { return s.current }

func (s Session) Progress() Progress {
	if s.progress == nil {
		return Drafting{}
	}
	return s.progress
}

// WithFormalQuery records a successful conversion. Anything produced
// downstream of the intent is superseded.
func (s Session) WithFormalQuery(intent string, formalQuery string) Session {
	return Session{
		current:  StageFormalQuery,
		progress: Converted{Intent: intent, FormalQuery: formalQuery},
	}
}

// WithResult records a successful execution of formalQuery, which may
// differ from the converted query when the user edited it.
func (s Session) WithResult(formalQuery string, result string) (Session, error) {
	var intent string
	switch p := s.Progress().(type) {
	case Converted:
		intent = p.Intent
	case Executed:
		intent = p.Intent
	default:
		return s, fmt.Errorf("%w: no formal query has been produced", ErrStageUnavailable)
	}
	return Session{
		current:  StageQueryResult,
		progress: Executed{Intent: intent, FormalQuery: formalQuery, Result: result},
	}, nil
}

// Rewind moves back to an already completed stage. Values ahead of it are
// kept but become inert until the stage produces a new value.
func (s Session) Rewind(to Stage) (Session, error) {
	if !to.Valid() {
		return s, fmt.Errorf("%w: %d", ErrUnknownStage, int(to))
	}
	if to > s.current {
		return s, fmt.Errorf("%w: %s is ahead of %s", ErrStageUnavailable, to, s.current)
	}
	return Session{current: to, progress: s.Progress()}, nil
}

// Enabled reports whether stage can be selected. Stages after the current
// one are disabled even when they still hold a value.
func (s Session) Enabled(stage Stage) bool {
	return stage.Valid() && stage <= s.current
}

// Value returns the stored value of stage, if it has one.
func (s Session) Value(stage Stage) (string, bool) {
	switch p := s.Progress().(type) {
	case Converted:
		switch stage {
		case StageNaturalLanguageQuery:
			return p.Intent, true
		case StageFormalQuery:
			return p.FormalQuery, true
		}
	case Executed:
		switch stage {
		case StageNaturalLanguageQuery:
			return p.Intent, true
		case StageFormalQuery:
			return p.FormalQuery, true
		case StageQueryResult:
			return p.Result, true
		}
	}
	return "", false
}
