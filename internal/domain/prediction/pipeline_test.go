package prediction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls   atomic.Int32
	value   float64
	err     error
	last    Payload
	predict func(ctx context.Context, payload Payload) (float64, error)
}

func (c *stubClient) Predict(ctx context.Context, payload Payload) (float64, error) {
	c.calls.Add(1)
	c.last = payload
	if c.predict != nil {
		return c.predict(ctx, payload)
	}
	return c.value, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineSuccess(t *testing.T) {
	client := &stubClient{value: 17.456}
	p := NewPipeline(client, Messages{}, discardLogger())

	outcome := p.Run(context.Background(), validInput())
	require.Equal(t, Succeeded(17.456), outcome)
	require.Equal(t, "17.46", outcome.Display())
	require.Equal(t, "2024-01-01T10:00:00", client.last.Timestamp)
	require.EqualValues(t, 1, client.calls.Load())
}

func TestPipelineValidationNeverCallsClient(t *testing.T) {
	client := &stubClient{value: 1}
	p := NewPipeline(client, Messages{}, discardLogger())

	raw := validInput()
	raw.Humidity = "abc"
	outcome := p.Run(context.Background(), raw)
	require.Equal(t, ValidationFailed("Please enter valid numerical values for all fields."), outcome)
	require.Zero(t, client.calls.Load())
}

func TestPipelineRemoteErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{
			name: "detail is shown",
			err:  &RemoteError{StatusCode: 422, Detail: "Timestamp out of range"},
			want: APIFailed("Timestamp out of range"),
		},
		{
			name: "missing detail falls back",
			err:  &RemoteError{StatusCode: 500},
			want: APIFailed("Failed to get prediction from API."),
		},
		{
			name: "wrapped remote error",
			err:  errors.Join(errors.New("outer"), &RemoteError{StatusCode: 400, Detail: "bad"}),
			want: APIFailed("bad"),
		},
		{
			name: "transport failure is generic",
			err:  errors.New("dial tcp 127.0.0.1:8000: connection refused"),
			want: NetworkFailed("Could not connect to the prediction service."),
		},
		{
			name: "deadline is a transport failure",
			err:  context.DeadlineExceeded,
			want: NetworkFailed("Could not connect to the prediction service."),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{err: tc.err}
			p := NewPipeline(client, Messages{}, discardLogger())
			require.Equal(t, tc.want, p.Run(context.Background(), validInput()))
			require.EqualValues(t, 1, client.calls.Load())
		})
	}
}

func TestPipelineCustomMessages(t *testing.T) {
	msgs := Messages{Validation: "fix the form", API: "api down", Network: "offline"}

	p := NewPipeline(&stubClient{err: &RemoteError{StatusCode: 500}}, msgs, discardLogger())
	require.Equal(t, APIFailed("api down"), p.Run(context.Background(), validInput()))

	p = NewPipeline(&stubClient{err: errors.New("boom")}, msgs, discardLogger())
	require.Equal(t, NetworkFailed("offline"), p.Run(context.Background(), validInput()))
	require.Equal(t, ValidationFailed("fix the form"), p.Run(context.Background(), RawInput{}))
}
