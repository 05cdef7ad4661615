package voice

import "errors"

var (
	// ErrEngineNotReady means the speech engine was never initialized. Nothing was sent to it.
	ErrEngineNotReady = errors.New("speech engine is not ready")

	// ErrSynthesisFailed marks a failure of a single synthesis call.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	ErrSessionNotConnected = errors.New("voice session is not connected")
	ErrNoActiveSession     = errors.New("no active voice session for guild")
	ErrAborted             = errors.New("speech sequence aborted")

	// ErrPlaybackBusy is a signal, not a failure: the device is already playing.
	ErrPlaybackBusy = errors.New("playback device is busy")

	// ErrNotificationDeliveryFailed is only ever logged.
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// SynthesisError carries the cause of a failed synthesis call.
// errors.Is matches both ErrSynthesisFailed and the cause.
type SynthesisError struct {
	Text  string
	Cause error
}

func NewSynthesisError(text string, cause error) *SynthesisError {
	return &SynthesisError{Text: text, Cause: cause}
}

func (e *SynthesisError) Error() string {
	if e.Cause == nil {
		return ErrSynthesisFailed.Error()
	}
	return ErrSynthesisFailed.Error() + ": " + e.Cause.Error()
}

func (e *SynthesisError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSynthesisFailed}
	}
	return []error{ErrSynthesisFailed, e.Cause}
}
