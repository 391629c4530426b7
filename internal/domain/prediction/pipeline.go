package prediction

import (
	"context"
	"errors"
	"log/slog"
)

// Pipeline turns raw form input into exactly one terminal Outcome.
type Pipeline struct {
	client   PredictClient
	messages Messages
	logger   *slog.Logger
}

// NewPipeline builds a submission pipeline around the given predictor client.
func NewPipeline(client PredictClient, messages Messages, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		client:   client,
		messages: messages.withDefaults(),
		logger:   logger.With("component", "prediction.pipeline"),
	}
}

// Normalize validates raw input using the pipeline's configured validation message.
func (p *Pipeline) Normalize(raw RawInput) (Payload, error) {
	return normalize(raw, p.messages.Validation)
}

// Run normalizes raw and, only when it is valid, submits it.
func (p *Pipeline) Run(ctx context.Context, raw RawInput) Outcome {
	payload, err := p.Normalize(raw)
	if err != nil {
		return p.rejected(err)
	}
	return p.Submit(ctx, payload)
}

// Submit issues one request for payload and classifies the result.
func (p *Pipeline) Submit(ctx context.Context, payload Payload) Outcome {
	value, err := p.client.Predict(ctx, payload)
	return p.classify(value, err)
}

func (p *Pipeline) rejected(err error) Outcome {
	var verr *ValidationError
	if errors.As(err, &verr) {
		p.logger.Debug("payload rejected", "fields", verr.Fields)
		return ValidationFailed(verr.Message)
	}
	return ValidationFailed(p.messages.Validation)
}

func (p *Pipeline) classify(value float64, err error) Outcome {
	if err == nil {
		return Succeeded(value)
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		p.logger.Warn("predictor rejected request", "status", remote.StatusCode, "detail", remote.Detail)
		if remote.Detail != "" {
			return APIFailed(remote.Detail)
		}
		return APIFailed(p.messages.API)
	}
	p.logger.Error("predictor request failed", "error", err)
	return NetworkFailed(p.messages.Network)
}
