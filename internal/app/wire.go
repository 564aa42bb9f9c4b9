//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/eslsoft/gapmap/internal/adapter/api"
	"github.com/eslsoft/gapmap/internal/adapter/repository"
	"github.com/eslsoft/gapmap/internal/fsrs"
	"github.com/eslsoft/gapmap/internal/infrastructure/config"
	"github.com/eslsoft/gapmap/internal/infrastructure/database"
	"github.com/eslsoft/gapmap/internal/infrastructure/server"
	"github.com/eslsoft/gapmap/internal/mastery"
	"github.com/eslsoft/gapmap/internal/planner"
	"github.com/eslsoft/gapmap/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
)

var databaseSet = wire.NewSet(
	database.NewConnection,
)

var engineSet = wire.NewSet(
	provideSchedulerParams,
	fsrs.NewScheduler,
	provideEstimatorConfig,
	mastery.NewEstimator,
	provideThresholds,
	providePlannerConfig,
	planner.NewBuilder,
	providePlanBudget,
)

var repositorySet = wire.NewSet(
	repository.NewConceptRepository,
	repository.NewItemRepository,
	repository.NewAttemptRepository,
	repository.NewMemoryStateRepository,
	repository.NewMasteryStateRepository,
	repository.NewLearningRepository,
	repository.NewSessionRepository,
)

var usecaseSet = wire.NewSet(
	usecase.NewConceptUsecase,
	usecase.NewItemUsecase,
	usecase.NewLearningUsecase,
	usecase.NewAnalyticsUsecase,
	usecase.NewPlanUsecase,
	usecase.NewSessionUsecase,
)

var apiSet = wire.NewSet(
	api.NewHandlers,
	api.NewRouter,
	provideHandler,
)

var serverSet = wire.NewSet(
	server.NewLogger,
	server.NewServer,
)

// Initialize builds the application container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		engineSet,
		repositorySet,
		usecaseSet,
		apiSet,
		serverSet,
		wire.Struct(new(Container), "Logger", "Server"),
	)
	return nil, nil, nil
}
