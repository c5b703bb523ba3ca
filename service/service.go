package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-statecache/config"
	"github.com/saiset-co/sai-statecache/logger"
	"github.com/saiset-co/sai-statecache/metrics"
	"github.com/saiset-co/sai-statecache/settings"
	"github.com/saiset-co/sai-statecache/statecache"
	"github.com/saiset-co/sai-statecache/store"
	"github.com/saiset-co/sai-statecache/telemetry"
	"github.com/saiset-co/sai-statecache/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Service is the composition root. It owns every component's lifecycle and
// hands the state manager and projector to callers by reference; there is
// no ambient global lookup.
type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          types.Logger
	metrics         types.MetricsManager
	kv              types.KVStore
	secretStore     types.SecretStore
	stateManager    types.StateManager
	projector       *settings.Projector
	scheduler       *cron.Cron
	instanceID      string
	state           atomic.Value
	shutdownTimeout time.Duration
}

func New(ctx context.Context, configPath string) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	configManager, err := config.NewConfigurationManager(serviceCtx, configPath)
	if err != nil {
		cancel()
		return nil, err
	}

	cfg := configManager.GetConfig()

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		cancel()
		return nil, err
	}

	svc := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		config:          configManager,
		logger:          log,
		instanceID:      uuid.New().String(),
		shutdownTimeout: 10 * time.Second,
	}
	svc.state.Store(StateStopped)

	metricsManager, err := metrics.NewManager(serviceCtx, cfg.Metrics, log)
	if err != nil {
		if !types.IsError(err, types.ErrMetricsIsDisabled) {
			cancel()
			return nil, types.WrapError(err, "failed to create metrics manager")
		}
		metricsManager = nil
	}
	svc.metrics = metricsManager

	kv, err := store.NewKVStore(serviceCtx, cfg.Storage.KV, log)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to create kv store")
	}
	svc.kv = kv

	secretStore, err := store.NewSecretStore(serviceCtx, cfg.Storage.Secrets, log)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to create secret store")
	}
	svc.secretStore = secretStore

	stateManager, err := statecache.NewStateManager(serviceCtx, cfg.Storage, log, metricsManager, kv, secretStore)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to create state manager")
	}
	svc.stateManager = stateManager

	reporter := telemetry.NewReporter(log, metricsManager)
	svc.projector = settings.NewProjector(stateManager, reporter, log)

	if err := svc.setupJobs(cfg.Jobs); err != nil {
		cancel()
		return nil, err
	}

	return svc, nil
}

func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceAlreadyRunning
	}

	defer func() {
		if s.getState() == StateStarting {
			s.setState(StateRunning)
		}
	}()

	for _, component := range []types.LifecycleManager{s.kv, s.secretStore} {
		if err := component.Start(); err != nil {
			s.setState(StateStopped)
			return types.WrapError(err, types.ErrComponentStartFailed.Error())
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Start(); err != nil {
			s.setState(StateStopped)
			return types.WrapError(err, types.ErrComponentStartFailed.Error())
		}
	}

	if err := s.stateManager.Initialize(s.ctx); err != nil {
		s.setState(StateStopped)
		return types.WrapError(err, "failed to initialize state cache")
	}

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	s.logger.Info("Service started",
		zap.String("instance_id", s.instanceID),
		zap.String("name", s.config.GetConfig().Name),
		zap.String("version", s.config.GetConfig().Version))
	return nil
}

func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceNotRunning
	}

	defer func() {
		s.setState(StateStopped)
		s.cancel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if s.scheduler != nil {
			stopCtx := s.scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-gCtx.Done():
				s.logger.Warn("Scheduler stop timeout")
			}
		}
		return nil
	})

	g.Go(func() error {
		return s.stateManager.Dispose()
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Error during shutdown", zap.Error(err))
	}

	for _, component := range []types.LifecycleManager{s.kv, s.secretStore} {
		if err := component.Stop(); err != nil {
			s.logger.Warn("Component stop failed", zap.Error(err))
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Stop(); err != nil {
			s.logger.Warn("Metrics stop failed", zap.Error(err))
		}
	}

	s.logger.Info("Service stopped gracefully")
	return nil
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) StateManager() types.StateManager {
	return s.stateManager
}

func (s *Service) Settings() *settings.Projector {
	return s.projector
}

func (s *Service) Logger() types.Logger {
	return s.logger
}

func (s *Service) Metrics() types.MetricsManager {
	return s.metrics
}

func (s *Service) setupJobs(jobsConfig *types.JobsConfig) error {
	if jobsConfig == nil || !jobsConfig.Enabled || jobsConfig.SecretRefresh == "" {
		return nil
	}

	timezone, err := time.LoadLocation(jobsConfig.Timezone)
	if err != nil {
		timezone = time.UTC
	}

	cronLogger := safeCronLogger{logger: s.logger}
	scheduler := cron.New(
		cron.WithLocation(timezone),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	_, err = scheduler.AddFunc(jobsConfig.SecretRefresh, func() {
		if err := s.stateManager.RefreshSecrets(s.ctx); err != nil {
			s.logger.Warn("Scheduled secret refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return types.Errorf(types.ErrJobScheduleInvalid, "schedule: %s", jobsConfig.SecretRefresh)
	}

	s.scheduler = scheduler
	return nil
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

type safeCronLogger struct {
	logger types.Logger
}

func (l safeCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l safeCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues), zap.Error(err))
}
