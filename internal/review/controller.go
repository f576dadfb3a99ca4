package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/lab-review/internal/model"
)

// Recorder journals decisions that reached the remote API.
type Recorder interface {
	Record(ctx context.Context, record model.DecisionRecord) error
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, model.DecisionRecord) error { return nil }

// Session is the state of one review dialog, rebuilt from a fresh fetch
// every time it is opened.
type Session struct {
	ContractID       model.ID             `json:"contract_id"`
	Tasks            []model.Task         `json:"tasks"`
	FinalDocument    *model.FinalDocument `json:"final_document"`
	ActionableTaskID *model.ID            `json:"actionable_task_id"`
	Status           model.ResultStatus   `json:"result_status"`
	HasResult        bool                 `json:"has_result"`
	CanDecide        bool                 `json:"can_decide"`
}

type DecideInput struct {
	ContractID model.ID
	Decision   model.Decision
	Comments   string
}

type DecideResult struct {
	Outcome   *Outcome            `json:"outcome"`
	Refreshed *model.ContractPage `json:"refreshed,omitempty"`
}

type Controller struct {
	fetcher   *Fetcher
	submitter *Submitter
	lister    *Lister
	recorder  Recorder
	listLimit int
	log       zerolog.Logger
	now       func() time.Time
}

func NewController(fetcher *Fetcher, submitter *Submitter, lister *Lister, recorder Recorder, listLimit int, log zerolog.Logger) *Controller {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if listLimit <= 0 {
		listLimit = DefaultLimit
	}
	return &Controller{
		fetcher:   fetcher,
		submitter: submitter,
		lister:    lister,
		recorder:  recorder,
		listLimit: listLimit,
		log:       log,
		now:       time.Now,
	}
}

func (c *Controller) Lister() *Lister {
	return c.lister
}

// Submitting reports whether a decision for the contract is in flight.
func (c *Controller) Submitting(contractID model.ID) bool {
	return c.submitter.InProgress(contractID)
}

// Open loads the task history of a contract and works out whether a
// decision can be made on it.
func (c *Controller) Open(ctx context.Context, contractID model.ID) Session {
	session, _ := c.open(ctx, contractID)
	return session
}

// open also reports whether the history was fetched; a failed fetch looks
// like an empty history in the Session.
func (c *Controller) open(ctx context.Context, contractID model.ID) (Session, bool) {
	info, fetched := c.fetcher.load(ctx, contractID)

	session := Session{
		ContractID:    contractID,
		Tasks:         info.Tasks,
		FinalDocument: info.FinalDocument,
		HasResult:     info.FinalDocument != nil || len(info.Tasks) > 0,
	}

	// Tasks only exist once a result was submitted, so they stand in for a
	// final_document the info endpoint did not return.
	document := info.FinalDocument
	if document == nil && session.HasResult {
		document = &model.FinalDocument{}
	}
	session.Status = Classify(model.Contract{
		ID:            contractID,
		FinalDocument: document,
		TaskInfo:      info,
	})

	if id, ok := ResolveActionableTask(info.Tasks); ok {
		session.ActionableTaskID = &id
	}
	session.CanDecide = session.ActionableTaskID != nil &&
		session.HasResult &&
		session.Status != model.ResultRejected
	return session, fetched
}

// Decide submits a decision against the currently actionable task and
// refreshes the pending list afterwards.
func (c *Controller) Decide(ctx context.Context, principal model.Principal, input DecideInput) (*DecideResult, error) {
	if !principal.CanDecide() {
		return nil, ErrPermissionDenied
	}
	if !input.ContractID.Valid() {
		return nil, ErrInvalidInput
	}

	session, fetched := c.open(ctx, input.ContractID)
	switch {
	case !fetched:
		return nil, ErrNoActionableTask
	case !session.HasResult:
		return nil, ErrNoResult
	case session.Status == model.ResultRejected:
		return nil, ErrAlreadyRejected
	case session.ActionableTaskID == nil:
		return nil, ErrNoActionableTask
	}

	sub := Submission{
		ContractID: input.ContractID,
		TaskID:     *session.ActionableTaskID,
		Decision:   input.Decision,
		Comments:   input.Comments,
	}
	if err := c.submitter.Validate(sub); err != nil {
		return nil, err
	}

	outcome, err := c.submitter.Submit(ctx, sub)
	if !errors.Is(err, ErrInProgress) {
		c.record(ctx, principal, sub, outcome, err)
	}
	if err != nil {
		return nil, err
	}

	result := &DecideResult{Outcome: outcome}
	page, err := c.lister.List(ctx, Query{Stage: model.StagePending, Page: 1, Limit: c.listLimit})
	if err != nil {
		c.log.Warn().Err(err).Int64("contract_id", int64(input.ContractID)).Msg("refresh contract list failed")
		return result, nil
	}
	result.Refreshed = page
	return result, nil
}

func (c *Controller) record(ctx context.Context, principal model.Principal, sub Submission, outcome *Outcome, submitErr error) {
	record := model.DecisionRecord{
		ID:         uuid.New(),
		ContractID: int64(sub.ContractID),
		TaskID:     int64(sub.TaskID),
		Decision:   string(sub.Decision),
		Comments:   strings.TrimSpace(sub.Comments),
		UserID:     principal.UserID,
		Role:       string(principal.Role),
		Succeeded:  submitErr == nil,
		CreatedAt:  c.now().UTC(),
	}
	switch {
	case submitErr != nil:
		record.Message = submitErr.Error()
	case outcome != nil:
		record.Message = outcome.Message
	}
	if err := c.recorder.Record(ctx, record); err != nil {
		c.log.Warn().Err(err).Int64("contract_id", record.ContractID).Msg("record decision failed")
	}
}
