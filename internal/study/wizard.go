package study

import (
	"errors"
	"fmt"
)

// Step is the page the participant is on.
type Step string

const (
	StepWelcome  Step = "welcome"
	StepConsent  Step = "consent"
	StepSurvey   Step = "survey"
	StepGuidance Step = "guidance"
)

// ParseStep returns the step named s, or StepWelcome for anything unknown.
func ParseStep(s string) Step {
	switch st := Step(s); st {
	case StepWelcome, StepConsent, StepSurvey, StepGuidance:
		return st
	}
	return StepWelcome
}

// Event is a participant action that may move the wizard.
type Event string

const (
	EventSelectLanguage Event = "select_language"
	EventContinue       Event = "continue"
	EventSubmit         Event = "submit"
	EventBack           Event = "back"
)

var (
	// ErrTransitionBlocked means the event is valid for the step but its
	// guard does not hold yet.
	ErrTransitionBlocked = errors.New("transition blocked")
	// ErrInvalidTransition means the event has no meaning at the step.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoSurvey means no survey record exists for the device.
	ErrNoSurvey = errors.New("no survey record")
)

// Guard carries the facts the transitions depend on.
type Guard struct {
	AgreedInfo bool
	AgreedData bool
	// Missing holds the labels of the empty required survey fields.
	Missing   []string
	HasSurvey bool
}

// Advance returns the step reached from step on ev. It has no side effects.
//
//	welcome  --select_language-->                 consent
//	consent  --continue [both consents]-->        survey
//	survey   --submit [nothing missing]-->        guidance
//	guidance --back [no survey record]-->         survey
//
// Selecting a language elsewhere keeps the current step.
func Advance(step Step, ev Event, g Guard) (Step, error) {
	switch {
	case ev == EventSelectLanguage:
		if step == StepWelcome {
			return StepConsent, nil
		}
		return step, nil

	case step == StepConsent && ev == EventContinue:
		if !(g.AgreedInfo && g.AgreedData) {
			return step, fmt.Errorf("%w: both consent boxes must be checked", ErrTransitionBlocked)
		}
		return StepSurvey, nil

	case step == StepSurvey && ev == EventSubmit:
		if len(g.Missing) > 0 {
			return step, &ValidationError{Missing: g.Missing}
		}
		return StepGuidance, nil

	case step == StepGuidance && ev == EventBack:
		if g.HasSurvey {
			return step, fmt.Errorf("%w: survey already submitted", ErrTransitionBlocked)
		}
		return StepSurvey, nil
	}
	return step, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, ev, step)
}
