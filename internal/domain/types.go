package domain

import "strings"

// NoResults replaces an empty execution result so it is never rendered blank.
const NoResults = "No results"

// InputMode selects how raw intent text is captured.
type InputMode string

const (
	InputModeText  InputMode = "text"
	InputModeVoice InputMode = "voice"
)

func (m InputMode) Valid() bool {
	return m == InputModeText || m == InputModeVoice
}

// CaptureReason explains a capture status change.
type CaptureReason string

const (
	CaptureReasonModeChanged         CaptureReason = "mode_changed"
	CaptureReasonRecordingStarted    CaptureReason = "recording_started"
	CaptureReasonRecordingRestarted  CaptureReason = "recording_restarted"
	CaptureReasonRecordingDiscarded  CaptureReason = "recording_discarded"
	CaptureReasonRecordingFailed     CaptureReason = "recording_failed"
	CaptureReasonTranscribing        CaptureReason = "transcribing"
	CaptureReasonTranscriptReady     CaptureReason = "transcript_ready"
	CaptureReasonNoAudio             CaptureReason = "no_audio"
	CaptureReasonTranscriptionFailed CaptureReason = "transcription_failed"
	CaptureReasonRulesFailed         CaptureReason = "rules_failed"
	CaptureReasonDraftEdited         CaptureReason = "draft_edited"
)

// CaptureStatus is the observable state of the input capture stage.
type CaptureStatus struct {
	Mode         InputMode `json:"mode"`
	Recording    bool      `json:"recording"`
	Transcribing bool      `json:"transcribing"`
	Draft        string    `json:"draft"`
}

// StageView is one tab of the workflow as the UI renders it.
type StageView struct {
	Stage     Stage  `json:"stage"`
	Value     string `json:"value"`
	Populated bool   `json:"populated"`
	Enabled   bool   `json:"enabled"`
	Active    bool   `json:"active"`
}

// Snapshot is a read-only projection of the whole workflow.
type Snapshot struct {
	Current     Stage         `json:"current"`
	Stages      []StageView   `json:"stages"`
	Converting  bool          `json:"converting"`
	Executing   bool          `json:"executing"`
	Capture     CaptureStatus `json:"capture"`
	CanGenerate bool          `json:"canGenerate"`
}

// View returns the view of stage, or a zero view for unknown stages.
func (s Snapshot) View(stage Stage) StageView {
	for _, view := range s.Stages {
		if view.Stage == stage {
			return view
		}
	}
	return StageView{Stage: stage}
}

// NewSnapshot projects session and capture status into a Snapshot.
func NewSnapshot(session Session, capture CaptureStatus, converting bool, executing bool) Snapshot {
	snapshot := Snapshot{
		Current:    session.Current(),
		Stages:     make([]StageView, 0, len(Stages)),
		Converting: converting,
		Executing:  executing,
		Capture:    capture,
	}
	for _, stage := range Stages {
		value, ok := session.Value(stage)
		snapshot.Stages = append(snapshot.Stages, StageView{
			Stage:     stage,
			Value:     value,
			Populated: ok,
			Enabled:   session.Enabled(stage),
			Active:    stage == session.Current(),
		})
	}
	snapshot.CanGenerate = session.Current() == StageNaturalLanguageQuery &&
		!converting &&
		!capture.Transcribing &&
		strings.TrimSpace(capture.Draft) != ""
	return snapshot
}
