package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/power-predictor/pkg/errors"
	"github.com/yanqian/power-predictor/pkg/util"
)

const maxHistoryLimit = 500

// Service is the form state holder: it owns sessions and drives submissions through the pipeline.
type Service interface {
	Open(ctx context.Context) (Session, error)
	Session(ctx context.Context, id string) (Session, error)
	UpdateFields(ctx context.Context, id string, changes map[Field]string) (Session, error)
	Submit(ctx context.Context, id string) (Session, error)
	Predict(ctx context.Context, raw RawInput) Outcome
	History(ctx context.Context, limit int) ([]Record, error)
}

type service struct {
	cfg      Config
	pipeline *Pipeline
	store    SessionStore
	history  HistoryRepository
	archive  Archive
	recorder OutcomeRecorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires up the prediction domain.
func NewService(cfg Config, client PredictClient, store SessionStore, history HistoryRepository, archive Archive, recorder OutcomeRecorder, logger *slog.Logger) Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &service{
		cfg:      cfg,
		pipeline: NewPipeline(client, cfg.Messages, logger),
		store:    store,
		history:  history,
		archive:  archive,
		recorder: recorder,
		logger:   logger.With("component", "prediction.service"),
		now:      util.NowUTC,
		newID:    uuid.NewString,
	}
}

func (s *service) Open(ctx context.Context) (Session, error) {
	session := NewSession(s.newID(), s.now())
	if err := s.store.Create(ctx, session, s.cfg.SessionTTL); err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to create session", err)
	}
	s.logger.Info("session opened", "session_id", session.ID)
	return session, nil
}

func (s *service) Session(ctx context.Context, id string) (Session, error) {
	session, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to load session", err)
	}
	if !ok {
		return Session{}, apperrors.Wrap(apperrors.CodeNotFound, "session not found", ErrSessionNotFound)
	}
	return session, nil
}

func (s *service) UpdateFields(ctx context.Context, id string, changes map[Field]string) (Session, error) {
	if len(changes) == 0 {
		return s.Session(ctx, id)
	}
	return s.update(ctx, id, func(current Session) (Session, error) {
		next := current
		for field, value := range changes {
			var err error
			if next, err = Apply(next, FieldChanged{Field: field, Value: value}); err != nil {
				return current, err
			}
		}
		return next, nil
	})
}

func (s *service) Submit(ctx context.Context, id string) (Session, error) {
	started, err := s.update(ctx, id, func(current Session) (Session, error) {
		return Apply(current, SubmitStarted{At: s.now(), StaleAfter: s.cfg.StaleAfter})
	})
	if err != nil {
		return Session{}, err
	}

	// Submissions cannot be cancelled: the call runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	outcome, payload, latency := s.resolve(ctx, started.Input)

	resolved, err := s.update(ctx, id, func(current Session) (Session, error) {
		return Apply(current, SubmitResolved{Attempt: started.Attempts, Outcome: outcome})
	})
	if errors.Is(err, ErrStaleResolution) {
		// a newer attempt owns the session; its own resolution will land
		s.logger.Warn("dropping outcome of replaced submission", "session_id", id, "attempt", started.Attempts, "status", outcome.Status)
		if payload != nil {
			s.record(ctx, id, *payload, outcome, latency)
		}
		return s.Session(ctx, id)
	}
	if err != nil {
		s.logger.Error("failed to record submission outcome", "session_id", id, "status", outcome.Status, "error", err)
		return Session{}, err
	}
	s.logger.Info("submission resolved", "session_id", id, "status", outcome.Status, "attempt", resolved.Attempts)
	if payload != nil {
		s.record(ctx, id, *payload, outcome, latency)
	}
	return resolved, nil
}

func (s *service) Predict(ctx context.Context, raw RawInput) Outcome {
	ctx = context.WithoutCancel(ctx)
	outcome, payload, latency := s.resolve(ctx, raw)
	if payload != nil {
		s.record(ctx, "", *payload, outcome, latency)
	}
	return outcome
}

func (s *service) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreError, "failed to load prediction history", err)
	}
	return records, nil
}

// resolve returns the payload only when a request was actually sent.
func (s *service) resolve(ctx context.Context, raw RawInput) (Outcome, *Payload, time.Duration) {
	payload, err := s.pipeline.Normalize(raw)
	if err != nil {
		outcome := s.pipeline.rejected(err)
		s.observe(outcome)
		return outcome, nil, 0
	}
	start := s.now()
	outcome := s.pipeline.Submit(ctx, payload)
	latency := s.now().Sub(start)
	s.observe(outcome)
	return outcome, &payload, latency
}

func (s *service) observe(outcome Outcome) {
	if s.recorder != nil {
		s.recorder.Observe(string(outcome.Status))
	}
}

func (s *service) record(ctx context.Context, sessionID string, payload Payload, outcome Outcome, latency time.Duration) {
	record := Record{
		ID:        s.newID(),
		SessionID: sessionID,
		Payload:   payload,
		Outcome:   outcome,
		LatencyMS: latency.Milliseconds(),
		CreatedAt: s.now(),
	}
	if s.history != nil {
		if err := s.history.Save(ctx, record); err != nil {
			s.logger.Warn("failed to save prediction record", "record_id", record.ID, "error", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Put(ctx, record); err != nil {
			s.logger.Warn("failed to archive prediction record", "record_id", record.ID, "error", err)
		}
	}
}

func (s *service) update(ctx context.Context, id string, fn UpdateFunc) (Session, error) {
	session, err := s.store.Update(ctx, id, s.cfg.SessionTTL, func(current Session) (Session, error) {
		next, err := fn(current)
		if err != nil {
			return current, err
		}
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err == nil {
		return session, nil
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return Session{}, apperrors.Wrap(apperrors.CodeNotFound, "session not found", err)
	case errors.Is(err, ErrSubmissionInFlight):
		return Session{}, apperrors.Wrap(apperrors.CodeSubmissionInFlight, "a prediction is already being computed for this form", err)
	case errors.Is(err, ErrUnknownField):
		return Session{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unknown form field", err)
	default:
		return Session{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to update session", err)
	}
}
