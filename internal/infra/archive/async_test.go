package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

type recordingArchive struct {
	mu    sync.Mutex
	ids   []string
	block chan struct{}
	err   error
}

func (r *recordingArchive) Put(_ context.Context, record prediction.Record) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, record.ID)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncDrainsOnClose(t *testing.T) {
	sink := &recordingArchive{}
	a := NewAsync(sink, 8, quietLogger())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, a.Put(context.Background(), prediction.Record{ID: id}))
	}
	a.Close()

	require.Equal(t, []string{"a", "b", "c"}, sink.ids)
	require.ErrorIs(t, a.Put(context.Background(), prediction.Record{ID: "d"}), errClosed)
	a.Close()
}

func TestAsyncRejectsWhenBacklogFull(t *testing.T) {
	sink := &recordingArchive{block: make(chan struct{})}
	a := NewAsync(sink, 1, quietLogger())

	// the worker may already hold one record, so at most two fit before the queue overflows
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = a.Put(context.Background(), prediction.Record{ID: "r"})
	}
	require.ErrorIs(t, err, errBacklogFull)

	close(sink.block)
	a.Close()
}

func TestAsyncUploadErrorsAreSwallowed(t *testing.T) {
	sink := &recordingArchive{err: errors.New("bucket gone")}
	a := NewAsync(sink, 0, quietLogger())
	require.NoError(t, a.Put(context.Background(), prediction.Record{ID: "x"}))
	a.Close()
	require.Equal(t, []string{"x"}, sink.ids)
}
