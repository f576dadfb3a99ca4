package review

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/model"
)

// API is the part of the remote gateway the review workflow talks to.
type API interface {
	Get(ctx context.Context, path string, query url.Values) (*gateway.Response, error)
	PostJSON(ctx context.Context, path string, body any) (*gateway.Response, error)
}

const (
	pathAppointmentInfo = "appointment/info"
	pathAcceptResult    = "appointment/accept/result"
	pathCancelResult    = "appointment/cancel/result"
	pathAppointmentList = "appointment/all/list"
)

type Fetcher struct {
	api API
	log zerolog.Logger
}

func NewFetcher(api API, log zerolog.Logger) *Fetcher {
	return &Fetcher{api: api, log: log}
}

// Fetch loads the task history of a contract. Any failure is logged and
// reported as an empty history so the caller falls back to "no actionable
// task".
func (f *Fetcher) Fetch(ctx context.Context, contractID model.ID) model.TaskInfo {
	info, _ := f.load(ctx, contractID)
	return info
}

// load is Fetch plus whether the history actually came from the API.
func (f *Fetcher) load(ctx context.Context, contractID model.ID) (model.TaskInfo, bool) {
	empty := model.TaskInfo{Tasks: []model.Task{}}
	if !contractID.Valid() {
		return empty, false
	}

	resp, err := f.api.Get(ctx, pathAppointmentInfo, url.Values{"contract_id": {contractID.String()}})
	if err != nil {
		f.log.Error().Err(err).Int64("contract_id", int64(contractID)).Msg("fetch appointment info failed")
		return empty, false
	}
	return normalizeTaskInfo(resp.Body), true
}
