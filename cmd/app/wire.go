//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/power-predictor/internal/bootstrap"
	"github.com/yanqian/power-predictor/internal/domain/prediction"
	"github.com/yanqian/power-predictor/internal/infra/config"
	"github.com/yanqian/power-predictor/internal/infra/predictor"
	httpiface "github.com/yanqian/power-predictor/internal/interface/http"
	"github.com/yanqian/power-predictor/pkg/logger"
	"github.com/yanqian/power-predictor/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewOutcomeCounter,
		providePredictionConfig,
		providePredictorClient,
		provideSessionStore,
		provideHistoryRepository,
		provideArchive,
		prediction.NewService,
		wire.Bind(new(prediction.PredictClient), new(*predictor.Client)),
		wire.Bind(new(prediction.OutcomeRecorder), new(*metrics.OutcomeCounter)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
