package agent

import (
	"context"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/mikesparr/redis-workflow/analytics"
	"github.com/mikesparr/redis-workflow/config"
	"github.com/mikesparr/redis-workflow/engine"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/mikesparr/redis-workflow/persistence"
	"github.com/mikesparr/redis-workflow/persistence/memory"
	"github.com/mikesparr/redis-workflow/persistence/redis"
	"github.com/mikesparr/redis-workflow/persistence/sqlite"
	"github.com/mikesparr/redis-workflow/rest"
	"github.com/mikesparr/redis-workflow/scheduler"
	"github.com/mikesparr/redis-workflow/service"
	"github.com/mikesparr/redis-workflow/store"
	"github.com/mikesparr/redis-workflow/transport"
	memtransport "github.com/mikesparr/redis-workflow/transport/memory"
	redistransport "github.com/mikesparr/redis-workflow/transport/redis"
	"go.uber.org/zap"
)

const busCapacity = 1024

type Agent struct {
	Config          config.Config
	redisClient     rd.UniversalClient
	storage         persistence.Storage
	delayQueue      persistence.DelayQueue
	transport       transport.Transport
	evaluator       expression.Evaluator
	bus             *notify.Bus
	collector       analytics.AuditCollector
	workflowService *service.WorkflowService
	scheduler       *scheduler.Scheduler
	httpServer      *rest.Server
	started         bool
	shutdown        bool
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupRedisClient,
		a.setupStorage,
		a.setupTransport,
		a.setupEvaluator,
		a.setupWorkflowService,
		a.setupAnalytics,
		a.setupScheduler,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			if a.bus != nil {
				a.bus.Close()
			}
			a.release()
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupRedisClient() error {
	if !a.Config.UsesRedis() {
		return nil
	}
	a.redisClient = redis.NewClient(a.Config.RedisConfig)
	return nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		a.storage = redis.NewRedisStorage(a.redisClient, a.Config.RedisConfig.Namespace)
	case config.STORAGE_TYPE_SQLITE:
		storage, err := sqlite.Open(a.Config.SqliteConfig.Path)
		if err != nil {
			return err
		}
		a.storage = storage
	default:
		a.storage = memory.NewMemoryStorage()
	}
	if a.redisClient != nil {
		a.delayQueue = redis.NewRedisDelayQueue(a.redisClient, a.Config.RedisConfig.Namespace)
	} else {
		a.delayQueue = memory.NewMemoryDelayQueue()
	}
	return nil
}

func (a *Agent) setupTransport() error {
	switch a.Config.TransportType {
	case config.TRANSPORT_TYPE_REDIS:
		a.transport = redistransport.NewRedisTransport(a.redisClient)
	default:
		a.transport = memtransport.NewMemoryTransport(busCapacity)
	}
	return nil
}

func (a *Agent) setupEvaluator() error {
	var err error
	a.evaluator, err = expression.NewEvaluator(string(a.Config.EvaluatorType))
	return err
}

func (a *Agent) setupWorkflowService() error {
	a.bus = notify.NewBus(busCapacity)
	st := store.NewWorkflowStore(a.storage, a.evaluator)
	eng := engine.NewDispatchEngine(st, a.transport, a.bus)
	a.workflowService = service.NewWorkflowService(st, eng, a.transport, a.bus)
	return nil
}

func (a *Agent) setupAnalytics() error {
	var err error
	a.collector, err = analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	analytics.Attach(a.bus, a.collector)
	return nil
}

func (a *Agent) setupScheduler() error {
	if !a.Config.SchedulerConfig.Enabled {
		return nil
	}
	a.scheduler = scheduler.NewScheduler(a.delayQueue, a.bus, scheduler.WithPollInterval(a.Config.SchedulerConfig.PollInterval))
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.workflowService)
	return err
}

func (a *Agent) Service() *service.WorkflowService {
	return a.workflowService
}

// Start loads the configured channels, starts listening on them and serves
// the admin api. A channel that can not be started is logged and skipped.
func (a *Agent) Start(ctx context.Context) error {
	if len(a.Config.Channels) > 0 {
		if err := a.workflowService.Reload(ctx, a.Config.Channels); err != nil {
			return err
		}
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	for _, channel := range a.Config.Channels {
		if err := a.workflowService.Start(ctx, channel); err != nil {
			logger.Warn("channel not started", zap.String("channel", channel), zap.Error(err))
		}
	}

	a.shutdownLock.Lock()
	a.started = true
	a.shutdownLock.Unlock()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down agent")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		func() error {
			if !a.started {
				return nil
			}
			return a.httpServer.Stop()
		},
		func() error {
			if a.scheduler != nil {
				a.scheduler.Stop()
			}
			return nil
		},
		func() error {
			a.workflowService.Close()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return a.release()
}

// release closes whatever the setup steps managed to open.
func (a *Agent) release() error {
	var first error
	closers := []func() error{}
	if a.collector != nil {
		closers = append(closers, a.collector.Close)
	}
	if a.transport != nil {
		closers = append(closers, a.transport.Close)
	}
	if a.storage != nil {
		closers = append(closers, a.storage.Close)
	}
	if a.redisClient != nil {
		closers = append(closers, a.redisClient.Close)
	}
	for _, fn := range closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
