package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/inflight"
	"github.com/nurpe/lab-review/internal/model"
)

const genericDecisionFailure = "failed to submit decision"

type Submission struct {
	ContractID model.ID
	TaskID     model.ID
	Decision   model.Decision
	Comments   string
}

type Outcome struct {
	ContractID model.ID       `json:"contract_id"`
	TaskID     model.ID       `json:"task_id"`
	Decision   model.Decision `json:"decision"`
	Message    string         `json:"message,omitempty"`
}

// decisionBody is the exact wire body of both decision endpoints.
type decisionBody struct {
	ContractID int64  `json:"contract_id"`
	TaskID     int64  `json:"task_id"`
	Comments   string `json:"comments"`
}

type Submitter struct {
	api                  API
	requireAcceptComment bool
	inFlight             *inflight.Tracker
	log                  zerolog.Logger
}

func NewSubmitter(api API, requireAcceptComment bool, log zerolog.Logger) *Submitter {
	return &Submitter{
		api:                  api,
		requireAcceptComment: requireAcceptComment,
		inFlight:             inflight.NewTracker(),
		log:                  log,
	}
}

// Validate runs every local precondition of Submit without touching the
// network.
func (s *Submitter) Validate(sub Submission) error {
	if !sub.Decision.Valid() {
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, sub.Decision)
	}
	if !sub.ContractID.Valid() {
		return fmt.Errorf("%w: contract_id is required", ErrInvalidInput)
	}
	if !sub.TaskID.Valid() {
		return ErrNoActionableTask
	}
	if strings.TrimSpace(sub.Comments) == "" {
		if sub.Decision == model.DecisionReject || s.requireAcceptComment {
			return ErrCommentRequired
		}
	}
	return nil
}

// Submit posts an accept or reject decision for the resolved task. Only one
// submission per contract may be in flight.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if err := s.Validate(sub); err != nil {
		return nil, err
	}

	key := sub.ContractID.String()
	if !s.inFlight.Begin(key) {
		return nil, ErrInProgress
	}
	defer s.inFlight.End(key)

	path := pathAcceptResult
	if sub.Decision == model.DecisionReject {
		path = pathCancelResult
	}

	body := decisionBody{
		ContractID: int64(sub.ContractID),
		TaskID:     int64(sub.TaskID),
		Comments:   strings.TrimSpace(sub.Comments),
	}

	log := s.log.With().
		Int64("contract_id", body.ContractID).
		Int64("task_id", body.TaskID).
		Str("decision", string(sub.Decision)).
		Logger()

	resp, err := s.api.PostJSON(ctx, path, body)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			log.Warn().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("decision refused by server")
			return nil, &RejectedError{Message: fallbackMessage(apiErr.Message)}
		}
		log.Error().Err(err).Msg("submit decision failed")
		return nil, err
	}

	ok, message := decisionSucceeded(resp.Body)
	if !ok {
		log.Warn().Str("message", message).Msg("decision reported as failed")
		return nil, &RejectedError{Message: fallbackMessage(message)}
	}

	log.Info().Msg("decision submitted")
	return &Outcome{
		ContractID: sub.ContractID,
		TaskID:     sub.TaskID,
		Decision:   sub.Decision,
		Message:    message,
	}, nil
}

// InProgress reports whether a submission for the contract is running.
func (s *Submitter) InProgress(contractID model.ID) bool {
	return s.inFlight.Active(contractID.String())
}

func fallbackMessage(message string) string {
	if strings.TrimSpace(message) == "" {
		return genericDecisionFailure
	}
	return message
}
