package service

import (
	"context"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/logger"
	"github.com/d5h-foss/hwtest/internal/repository"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// RunControl starts and aborts the test run. One run at a time.
type RunControl interface {
	Start(ctx context.Context) (hwtest.RunStatus, error)
	Abort(ctx context.Context) error
}

// Monitoring exposes read-only run state and the freshest telemetry.
type Monitoring interface {
	Status(ctx context.Context) (hwtest.RunStatus, error)
	Latest() (hwtest.Sample, bool)
}

// EventLog exposes the persisted log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]hwtest.EventRecord, error)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	RunControl
	Monitoring
	EventLog
	Authorization
}

// Deps carries everything the composed service needs beyond the
// repositories.
type Deps struct {
	Repos   *repository.Repository
	Factory RunFactory
	Buffer  *sampler.Handoff
	Log     *logger.Logger
	Auth    AuthConfig
}

// NewService wires the repository layer and run machinery into the
// concrete sub-services.
func NewService(d Deps) *Service {
	return &Service{
		RunControl:    NewRunService(d.Repos.RunRepo, d.Factory, d.Log),
		Monitoring:    NewMonitoringService(d.Repos.RunRepo, d.Buffer),
		EventLog:      NewEventLogService(d.Repos.EventRepo),
		Authorization: NewAuthService(d.Repos.Auth, d.Auth),
	}
}
