package tasks

import "errors"

var (
	ErrEmptyInstructions = errors.New("task instructions must not be empty")
	ErrEmptyInput        = errors.New("user input must not be empty")
	ErrAlreadyWaiting    = errors.New("task already has a pending input request")
	ErrNoWaiter          = errors.New("no pending input request for task")
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskTerminal      = errors.New("task already reached a terminal status")
	ErrCancelled         = errors.New("task cancelled")
)
