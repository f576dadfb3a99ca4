package review

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/model"
)

func TestFetcher_Fetch(t *testing.T) {
	api := newFakeAPI().reply(pathAppointmentInfo, `{"data": {"task_info": {"tasks": [{"task_id": 11}]}}}`)
	fetcher := NewFetcher(api, zerolog.Nop())

	info := fetcher.Fetch(context.Background(), 42)
	require.Len(t, info.Tasks, 1)
	assert.Equal(t, model.ID(11), info.Tasks[0].ID)

	calls := api.callsTo(pathAppointmentInfo)
	require.Len(t, calls, 1)
	assert.Equal(t, "42", calls[0].Query.Get("contract_id"))
}

func TestFetcher_InvalidIDSkipsNetwork(t *testing.T) {
	api := newFakeAPI()
	fetcher := NewFetcher(api, zerolog.Nop())

	info := fetcher.Fetch(context.Background(), 0)
	assert.Empty(t, info.Tasks)
	assert.Zero(t, api.callCount())
}

func TestFetcher_ErrorsBecomeEmptyHistory(t *testing.T) {
	errs := []error{
		errors.New("connection refused"),
		&gateway.APIError{StatusCode: 500},
		&gateway.APIError{StatusCode: 403, Message: "forbidden"},
	}
	for _, err := range errs {
		api := newFakeAPI().fail(pathAppointmentInfo, err)
		fetcher := NewFetcher(api, zerolog.Nop())

		info := fetcher.Fetch(context.Background(), 1)
		assert.NotNil(t, info.Tasks)
		assert.Empty(t, info.Tasks)

		_, ok := ResolveActionableTask(info.Tasks)
		assert.False(t, ok)
	}
}
