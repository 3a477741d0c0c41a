package services

import "errors"

var (
	// ErrInvalidStateTransition is returned when a task transition is requested
	// from a status that does not permit it. State is left unchanged.
	ErrInvalidStateTransition = errors.New("invalid task state transition")

	// ErrNotProcessable is returned when ProcessJob is invoked on a job that is
	// neither READY nor ERROR.
	ErrNotProcessable = errors.New("job is not in a processable state")

	// ErrInvalidPublishState is returned when Publish is invoked on a task that
	// is not READY, PUBLISHING or FAILED. No side effect happens.
	ErrInvalidPublishState = errors.New("task is not in a publishable state")

	// ErrNoPublishableContent is returned when a publish attempt finds no
	// usable image URL; the task ends FAILED.
	ErrNoPublishableContent = errors.New("task has no publishable content")

	// ErrUnknownTemplate is returned at task creation for an unrecognized
	// template name.
	ErrUnknownTemplate = errors.New("unknown task template")

	// ErrUnknownGenerator is returned when a job names a generator that was
	// never registered.
	ErrUnknownGenerator = errors.New("unknown generator")

	// ErrUnknownAction is returned when a schedule rule names an action that
	// was never registered.
	ErrUnknownAction = errors.New("unknown schedule action")
)
