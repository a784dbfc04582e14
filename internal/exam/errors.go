package exam

import (
	"errors"
	"fmt"
)

var (
	ErrTestNotFound       = errors.New("test not found")
	ErrRelationNotFound   = errors.New("no responses stored for test")
	ErrTestExists         = errors.New("test id already registered")
	ErrDuplicateSubmitter = errors.New("telegram id already registered")
	ErrAnswerLength       = errors.New("answer length mismatch")
	ErrInvalidTest        = errors.New("invalid test")
	ErrInvalidSubmission  = errors.New("invalid submission")
	ErrTestHasResponses   = errors.New("test already has responses")
)

// AnswerLengthError reports a submission whose length differs from the key.
type AnswerLengthError struct {
	Got, Want int
}

func (e *AnswerLengthError) Error() string {
	return fmt.Sprintf("Answer length (%d) doesn't match test requirements (%d)", e.Got, e.Want)
}

func (e *AnswerLengthError) Is(target error) bool { return target == ErrAnswerLength }
