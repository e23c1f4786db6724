package agent

import (
	"fmt"
	"io"
	"sync"

	"github.com/mohitkumar/flowcall/analytics"
	"github.com/mohitkumar/flowcall/catalog"
	"github.com/mohitkumar/flowcall/condition"
	"github.com/mohitkumar/flowcall/config"
	"github.com/mohitkumar/flowcall/executor"
	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/history"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/metadata"
	"github.com/mohitkumar/flowcall/persistence"
	"github.com/mohitkumar/flowcall/persistence/memory"
	"github.com/mohitkumar/flowcall/persistence/redis"
	"github.com/mohitkumar/flowcall/rest"
	"github.com/mohitkumar/flowcall/service"
	"github.com/mohitkumar/flowcall/snapshot"
	"github.com/mohitkumar/flowcall/util"
	"github.com/mohitkumar/flowcall/vars"
	"go.uber.org/zap"
)

type Agent struct {
	Config           config.Config
	storage          persistence.Storage
	variables        *vars.Store
	history          *history.History
	metadataService  *metadata.MetadataServiceImpl
	executor         *executor.HTTPExecutor
	snapshots        *snapshot.Manager
	engine           *flow.Engine
	executionService *service.ExecutionService
	catalog          catalog.Source
	httpServer       *rest.Server
	stateRefresher   *util.TickWorker
	shutdown         bool
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupStorage,
		a.setupVariables,
		a.setupHistory,
		a.setupMetadataService,
		a.setupExecutor,
		a.setupSnapshots,
		a.setupEngine,
		a.setupExecutionService,
		a.setupCatalog,
		a.setupStateRefresher,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		a.storage = redis.NewRedisStorage(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
			PoolSize:  a.Config.RedisConfig.PoolSize,
		})
	case config.STORAGE_TYPE_INMEM:
		a.storage = memory.NewMemoryStorage()
	default:
		return fmt.Errorf("storage type %s not supported", a.Config.StorageType)
	}
	logger.Info("storage initialized", zap.String("type", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupVariables() error {
	style, err := vars.ParseMarkerStyle(a.Config.TemplateStyle)
	if err != nil {
		return err
	}
	opts := []vars.Option{vars.WithMarker(style), vars.WithStrictPaths(a.Config.StrictPaths)}
	if a.Config.PathIndicator != "" {
		opts = append(opts, vars.WithPathIndicator(a.Config.PathIndicator))
	}
	a.variables = vars.New(a.storage, opts...)
	return nil
}

func (a *Agent) setupHistory() error {
	a.history = history.New(a.storage, a.Config.HistoryMax)
	return nil
}

func (a *Agent) setupMetadataService() error {
	a.metadataService = metadata.NewMetadataService(metadata.NewMetadataStorage(a.storage))
	return nil
}

func (a *Agent) setupExecutor() error {
	var err error
	a.executor, err = executor.NewHTTPExecutor(executor.Config{
		BaseURL:        a.Config.BaseURL,
		Timeout:        a.Config.RequestTimeout,
		DefaultHeaders: a.Config.DefaultHeaders,
	})
	return err
}

func (a *Agent) setupSnapshots() error {
	opts := []snapshot.Option{snapshot.WithObserver(snapshot.LoggingObserver{})}
	if a.Config.StateSourceURL != "" {
		opts = append(opts, snapshot.WithProvider(snapshot.NewHTTPProvider(a.executor, a.Config.StateSourceURL, nil)))
	}
	a.snapshots = snapshot.New(a.storage, opts...)
	return nil
}

func (a *Agent) setupEngine() error {
	opts := []flow.Option{
		flow.WithObserver(flow.LoggingObserver{}),
		flow.WithConditionEvaluator(condition.NewEvaluator()),
	}
	collector, err := analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	if collector != nil {
		opts = append(opts, flow.WithObserver(collector))
	}
	a.engine = flow.NewEngine(a.variables, a.executor, a.history, opts...)
	return nil
}

func (a *Agent) setupExecutionService() error {
	a.executionService = service.NewExecutionService(a.metadataService, a.engine, a.snapshots, a.variables,
		a.executor, a.history, &a.wg, a.Config.WorkerCapacity)
	return nil
}

func (a *Agent) setupCatalog() error {
	if a.Config.CatalogFile == "" {
		return nil
	}
	a.catalog = catalog.NewFileSource(a.Config.CatalogFile)
	return nil
}

func (a *Agent) setupStateRefresher() error {
	if a.Config.StateRefreshInterval <= 0 {
		return nil
	}
	a.stateRefresher = util.NewTickWorker("state-refresher", a.Config.StateRefreshInterval, a.executionService.RefreshState, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, rest.Services{
		Metadata:  a.metadataService,
		Execution: a.executionService,
		Variables: a.variables,
		History:   a.history,
		State:     a.snapshots,
		Catalog:   a.catalog,
	})
	return err
}

func (a *Agent) Start() error {
	a.executionService.Start()
	if a.stateRefresher != nil {
		a.stateRefresher.Start()
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		a.executionService.Stop,
	}
	if a.stateRefresher != nil {
		shutdown = append(shutdown, a.stateRefresher.Stop)
	}
	if closer, ok := a.storage.(io.Closer); ok {
		shutdown = append(shutdown, closer.Close)
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
