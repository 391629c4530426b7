package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

const (
	testSessionKey = "test:session:s1"
	testLockKey    = "test:session:s1:lock"
)

func isLockAcquire(cmd []string) bool {
	return len(cmd) >= 4 && cmd[0] == "SET" && cmd[1] == testLockKey && cmd[3] == "NX"
}

func isLockRelease(cmd []string) bool {
	if len(cmd) == 0 || (cmd[0] != "EVALSHA" && cmd[0] != "EVAL") {
		return false
	}
	for _, arg := range cmd {
		if arg == testLockKey {
			return true
		}
	}
	return false
}

func isSessionWrite(cmd []string) bool {
	return len(cmd) >= 3 && cmd[0] == "SET" && cmd[1] == testSessionKey
}

func newMockedStore(t *testing.T) (*ValkeyStore, *mock.Client) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	store := NewValkeyStore(client, "test")
	store.lockWait = time.Millisecond
	store.lockAttempts = 3
	return store, client
}

func encodedSession(t *testing.T, s prediction.Session) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func TestValkeyStoreUpdateLocksAppliesAndReleases(t *testing.T) {
	store, client := newMockedStore(t)
	ctx := context.Background()
	current := prediction.NewSession("s1", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))

	var written string
	gomock.InOrder(
		client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockAcquire, "SET lock NX")).
			Return(mock.Result(mock.ValkeyString("OK"))),
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", testSessionKey)).
			Return(mock.Result(mock.ValkeyString(encodedSession(t, current)))),
		client.EXPECT().Do(gomock.Any(), mock.MatchFn(isSessionWrite, "SET session")).
			DoAndReturn(func(_ context.Context, cmd valkey.Completed) valkey.ValkeyResult {
				written = cmd.Commands()[2]
				return mock.Result(mock.ValkeyString("OK"))
			}),
		client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockRelease, "release script")).
			Return(mock.Result(mock.ValkeyInt64(1))),
	)

	next, err := store.Update(ctx, "s1", time.Hour, func(s prediction.Session) (prediction.Session, error) {
		return prediction.Apply(s, prediction.FieldChanged{Field: prediction.FieldHumidity, Value: "40"})
	})
	require.NoError(t, err)
	require.Equal(t, "40", next.Input.Humidity)

	var saved prediction.Session
	require.NoError(t, json.Unmarshal([]byte(written), &saved))
	require.Equal(t, "40", saved.Input.Humidity)
}

func TestValkeyStoreUpdateGivesUpWhenLockIsHeld(t *testing.T) {
	store, client := newMockedStore(t)

	client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockAcquire, "SET lock NX")).
		Return(mock.Result(mock.ValkeyNil())).
		Times(3)

	_, err := store.Update(context.Background(), "s1", time.Hour, func(s prediction.Session) (prediction.Session, error) {
		t.Fatal("fn must not run without the lock")
		return s, nil
	})
	require.ErrorIs(t, err, errLockBusy)
}

func TestValkeyStoreUpdateMissingSessionReleasesLock(t *testing.T) {
	store, client := newMockedStore(t)

	client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockAcquire, "SET lock NX")).
		Return(mock.Result(mock.ValkeyString("OK")))
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", testSessionKey)).
		Return(mock.Result(mock.ValkeyNil()))
	client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockRelease, "release script")).
		Return(mock.Result(mock.ValkeyInt64(1)))

	_, err := store.Update(context.Background(), "s1", time.Hour, func(s prediction.Session) (prediction.Session, error) {
		return s, nil
	})
	require.ErrorIs(t, err, prediction.ErrSessionNotFound)
}

func TestValkeyStoreUpdateRejectedTransitionWritesNothing(t *testing.T) {
	store, client := newMockedStore(t)
	current := prediction.NewSession("s1", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	current, err := prediction.Apply(current, prediction.SubmitStarted{At: current.CreatedAt})
	require.NoError(t, err)

	client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockAcquire, "SET lock NX")).
		Return(mock.Result(mock.ValkeyString("OK")))
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", testSessionKey)).
		Return(mock.Result(mock.ValkeyString(encodedSession(t, current))))
	client.EXPECT().Do(gomock.Any(), mock.MatchFn(isLockRelease, "release script")).
		Return(mock.Result(mock.ValkeyInt64(1)))

	_, err = store.Update(context.Background(), "s1", time.Hour, func(s prediction.Session) (prediction.Session, error) {
		return prediction.Apply(s, prediction.SubmitStarted{At: s.CreatedAt})
	})
	require.ErrorIs(t, err, prediction.ErrSubmissionInFlight)
}

func TestValkeyStoreGetPropagatesErrors(t *testing.T) {
	store, client := newMockedStore(t)
	boom := errors.New("connection reset")

	client.EXPECT().Do(gomock.Any(), mock.Match("GET", testSessionKey)).
		Return(mock.ErrorResult(boom))

	_, ok, err := store.Get(context.Background(), "s1")
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
}
