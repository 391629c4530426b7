package prediction

import (
	"context"
	"time"
)

// PredictClient performs the single outbound call to the remote predictor.
// A failure status must be reported as *RemoteError; any other error is a transport failure.
type PredictClient interface {
	Predict(ctx context.Context, payload Payload) (float64, error)
}

// UpdateFunc derives the next session state. Returning an error aborts the update.
type UpdateFunc func(Session) (Session, error)

// SessionStore owns the session cells. Update must apply fn atomically per session.
type SessionStore interface {
	Create(ctx context.Context, session Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, bool, error)
	Update(ctx context.Context, id string, ttl time.Duration, fn UpdateFunc) (Session, error)
}

// HistoryRepository persists the prediction log.
type HistoryRepository interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Archive ships log records to long-term storage for offline drift analysis.
type Archive interface {
	Put(ctx context.Context, record Record) error
}

// OutcomeRecorder counts resolved outcomes.
type OutcomeRecorder interface {
	Observe(status string)
}
