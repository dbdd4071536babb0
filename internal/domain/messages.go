package domain

// Message is the user-facing text for a capture status change.
func (r CaptureReason) Message() string {
	switch r {
	case CaptureReasonModeChanged:
		return "Input mode changed"
	case CaptureReasonRecordingStarted:
		return "Recording started"
	case CaptureReasonRecordingRestarted:
		return "Recording restarted; previous capture discarded"
	case CaptureReasonRecordingDiscarded:
		return "Recording discarded"
	case CaptureReasonRecordingFailed:
		return "Microphone unavailable"
	case CaptureReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case CaptureReasonTranscriptReady:
		return "Transcript ready"
	case CaptureReasonNoAudio:
		return "No audio captured"
	case CaptureReasonTranscriptionFailed:
		return "Transcription failed"
	case CaptureReasonRulesFailed:
		return "Rules processing failed"
	default:
		return ""
	}
}

// Message is the user-facing summary of a failure; unknown codes fall back
// to the detail.
func (c ErrorCode) Message(detail string) string {
	switch c {
	case ErrorCodeStartup:
		return "Startup failed"
	case ErrorCodePermissionDenied:
		return "Microphone permission denied"
	case ErrorCodeDevice:
		return "Audio input device unavailable"
	case ErrorCodeAudioStop:
		return "Audio stop issue"
	case ErrorCodeTranscription:
		return "Transcription error"
	case ErrorCodeRules:
		return "Rules processing failed"
	case ErrorCodeConversion:
		return "Could not generate a formal query"
	case ErrorCodeExecution:
		return "Query execution failed"
	case ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
