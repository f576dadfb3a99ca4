package review

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nurpe/lab-review/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Query struct {
	Stage  model.Stage
	Page   int
	Limit  int
	Search string
}

type Lister struct {
	api API
}

func NewLister(api API) *Lister {
	return &Lister{api: api}
}

// ParseStage accepts the stage names and their numeric contract_status codes.
func ParseStage(raw string) (model.Stage, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "5":
		return model.StagePending, nil
	case "new", "2":
		return model.StageNew, nil
	case "completed", "6":
		return model.StageCompleted, nil
	default:
		return 0, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, raw)
	}
}

// List fetches one page of contracts for a workflow stage and classifies
// every row.
func (l *Lister) List(ctx context.Context, q Query) (*model.ContractPage, error) {
	switch q.Stage {
	case model.StageNew, model.StagePending, model.StageCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown stage %d", ErrInvalidInput, q.Stage)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	params := url.Values{
		"contract_status": {strconv.Itoa(int(q.Stage))},
		"page":            {strconv.Itoa(q.Page)},
		"limit":           {strconv.Itoa(q.Limit)},
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		params.Set("search", search)
	}

	resp, err := l.api.Get(ctx, pathAppointmentList, params)
	if err != nil {
		return nil, err
	}

	items, total := normalizeContractPage(resp.Body)
	return &model.ContractPage{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
		Stage: q.Stage,
	}, nil
}
