package umebot

import "errors"

// Sentinel errors for the error kinds described in the orchestration
// fabric's error handling design. Components wrap these with fmt.Errorf
// and %w so callers can errors.Is against a stable kind. Only
// ErrDeviceNotFound, ErrResamplerUnavailable, ErrSourceNotPermitted,
// ErrAnimationNotFound and ErrHardwareNotInitialized are returned by a
// component; the rest name conditions that components handle without
// returning an error value.
var (
	// ErrDeviceNotFound is returned when no matching local audio input
	// device could be discovered after the configured retry budget.
	ErrDeviceNotFound = errors.New("umebot: audio input device not found")

	// ErrResamplerUnavailable is returned when a resample is required but
	// no resampler could be constructed for the source/target rate pair.
	// Fail loud: never silently pass through un-resampled audio.
	ErrResamplerUnavailable = errors.New("umebot: resampler unavailable for required rate conversion")

	// ErrSourceNotPermitted is returned when the robot-audio TCP path is
	// asked to accept a connection while the permission gate is closed.
	ErrSourceNotPermitted = errors.New("umebot: robot audio source not permitted")

	// ErrRecognizerBusy indicates a concurrent call was attempted against
	// a single-threaded recognizer; this is a programming error, not a
	// runtime condition, and should never be observed outside tests.
	ErrRecognizerBusy = errors.New("umebot: concurrent recognizer access")

	// ErrNoActiveBackend names get_response being called with no LM
	// backend configured; the conversation core answers with a canned
	// apology instead of returning it.
	ErrNoActiveBackend = errors.New("umebot: no active lm backend")

	// ErrNoActiveConversation names get_response being called before a
	// conversation has been started; the conversation core answers with a
	// canned apology instead of returning it.
	ErrNoActiveConversation = errors.New("umebot: no active conversation")

	// ErrConversationNotFound names an unknown conversation id; the
	// persistence layer does not return it.
	ErrConversationNotFound = errors.New("umebot: conversation not found")

	// ErrBusy names process_input being called while the orchestrator's
	// busy flag is held; the orchestrator sends the tablet a notice and
	// drops the input instead of returning it.
	ErrBusy = errors.New("umebot: orchestrator busy")

	// ErrEmergencyStopped names a motion command arriving while the arbiter
	// is latched in the emergency_stopped state; the arbiter does not
	// return it.
	ErrEmergencyStopped = errors.New("umebot: motion arbiter emergency stopped")

	// ErrUnknownPersonality names set_personality with a key absent from
	// the loaded catalogue; SetPersonality reports that case by returning
	// false instead.
	ErrUnknownPersonality = errors.New("umebot: unknown personality key")

	// ErrAnimationNotFound is returned when a local-animation request
	// names a category with no catalogued files.
	ErrAnimationNotFound = errors.New("umebot: no local animation in category")

	// ErrHardwareNotInitialized is returned by facade methods that
	// require a prior successful Initialize call.
	ErrHardwareNotInitialized = errors.New("umebot: robot hardware not initialized")

	// ErrClientClosed names a send attempted on a tablet client whose
	// connection has already been torn down; the gateway does not return it.
	ErrClientClosed = errors.New("umebot: tablet client closed")

	// ErrMalformedFrame names an inbound tablet frame that failed to parse
	// or validate against its expected payload shape; the gateway does not
	// return it.
	ErrMalformedFrame = errors.New("umebot: malformed client frame")
)
