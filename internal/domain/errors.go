package domain

import "errors"

var (
	ErrPermissionDenied    = errors.New("microphone permission denied")
	ErrDeviceUnavailable   = errors.New("audio input device unavailable")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrConversionFailed    = errors.New("query conversion failed")
	ErrExecutionFailed     = errors.New("query execution failed")
)

var (
	// ErrStaleResponse is returned when a gateway response arrives after
	// its request was superseded. State is left untouched.
	ErrStaleResponse = errors.New("response superseded by a newer request")

	ErrRequestPending   = errors.New("a request is already outstanding")
	ErrStageInactive    = errors.New("stage is not the current stage")
	ErrStageUnavailable = errors.New("stage has not been reached")
	ErrUnknownStage     = errors.New("unknown stage")
	ErrEmptyInput       = errors.New("input text is empty")
	ErrWrongInputMode   = errors.New("operation not available in the current input mode")
	ErrAlreadyRecording = errors.New("a recording session is already open")
)

// ErrorCode identifies a failure for the UI.
type ErrorCode string

const (
	ErrorCodeStartup          ErrorCode = "startup"
	ErrorCodePermissionDenied ErrorCode = "permission_denied"
	ErrorCodeDevice           ErrorCode = "device_unavailable"
	ErrorCodeAudioStop        ErrorCode = "audio_stop"
	ErrorCodeTranscription    ErrorCode = "transcription"
	ErrorCodeRules            ErrorCode = "rules"
	ErrorCodeConversion       ErrorCode = "conversion"
	ErrorCodeExecution        ErrorCode = "execution"
	ErrorCodeClipboard        ErrorCode = "clipboard"
	ErrorCodeUnknown          ErrorCode = "unknown"
)

// CodeFor classifies err into the error code reported to the UI.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermissionDenied
	case errors.Is(err, ErrDeviceUnavailable):
		return ErrorCodeDevice
	case errors.Is(err, ErrTranscriptionFailed):
		return ErrorCodeTranscription
	case errors.Is(err, ErrConversionFailed):
		return ErrorCodeConversion
	case errors.Is(err, ErrExecutionFailed):
		return ErrorCodeExecution
	default:
		return ErrorCodeUnknown
	}
}
