package review

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoActionableTask = errors.New("no actionable task")
	ErrCommentRequired  = errors.New("comment is required")
	ErrNoResult         = errors.New("no result submitted")
	ErrAlreadyRejected  = errors.New("result already rejected, waiting for a new upload")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInProgress       = errors.New("a request for this contract is already in progress")
)

// RejectedError is a decision the remote API declined.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "decision was not accepted by the server"
	}
	return e.Message
}
