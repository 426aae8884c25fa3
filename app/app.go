package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandomesquita/stenopro/api"
	"github.com/fernandomesquita/stenopro/auth"
	"github.com/fernandomesquita/stenopro/bootstrap"
	"github.com/fernandomesquita/stenopro/correction"
	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/database/migration"
	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/kafka"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/observability"
	"github.com/fernandomesquita/stenopro/processing"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/redis"
	"github.com/fernandomesquita/stenopro/server"
	"github.com/fernandomesquita/stenopro/server/middleware"
	"github.com/fernandomesquita/stenopro/sse"
	"github.com/fernandomesquita/stenopro/storage"
	"github.com/fernandomesquita/stenopro/transcript"
	"github.com/fernandomesquita/stenopro/transcription"
	"github.com/fernandomesquita/stenopro/version"
)

// Models are the tables created by auto-migration on sqlite.
func Models() []interface{} {
	return []interface{}{
		&transcript.Transcription{},
		&glossary.Entry{},
		&prompt.SystemPrompt{},
		&prompt.Template{},
	}
}

// Option customizes Build.
type Option func(*options)

type options struct {
	serveHTTP   bool
	bootstrap   []bootstrap.Option
	transcriber transcription.Provider
	corrector   correction.Provider
	clock       func() time.Time
}

// WithoutHTTP builds a worker: the pipeline runs but no API is served.
func WithoutHTTP() Option {
	return func(o *options) { o.serveHTTP = false }
}

// WithBootstrapOptions passes options through to bootstrap.NewApp.
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(o *options) { o.bootstrap = append(o.bootstrap, opts...) }
}

// WithProviders replaces the configured backends. Credential checks are
// skipped for replaced backends.
func WithProviders(t transcription.Provider, c correction.Provider) Option {
	return func(o *options) {
		o.transcriber = t
		o.corrector = c
	}
}

// WithClock sets the clock used for record timestamps and upload keys.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// Service is the wired application. The stores, orchestrator and server are
// set once the infrastructure has started, inside Run or RunTask.
type Service struct {
	App *bootstrap.App[*Config]

	Records      *transcript.Store
	Glossary     *glossary.Store
	Prompts      *prompt.SystemStore
	Templates    *prompt.TemplateStore
	Blobs        storage.Storage
	Orchestrator *processing.Orchestrator
	Dispatcher   *processing.Dispatcher
	// Server is nil for workers built WithoutHTTP.
	Server *server.Server

	cfg       *Config
	opts      options
	providers *providers
	log       *logger.Logger

	db    *database.Component
	store *storage.Component
	redis *redis.Component
	kafka *kafka.Component
	sse   *sse.Component
}

// Build validates cfg, registers the infrastructure components and defers
// the rest of the wiring until they have started.
func Build(cfg *Config, opts ...Option) (*Service, error) {
	o := options{serveHTTP: true, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}

	a, err := bootstrap.NewApp(cfg, o.bootstrap...)
	if err != nil {
		return nil, err
	}
	s := &Service{App: a, cfg: cfg, opts: o, log: a.Logger.WithComponent("app")}

	if o.transcriber != nil && o.corrector != nil {
		s.providers = &providers{transcriber: o.transcriber, corrector: o.corrector}
	} else {
		p, err := newProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.providers = p
	}

	s.db = database.NewComponent(cfg.Database, a.Logger).
		WithAutoMigrate(Models()...).
		WithMigrations(migration.Up)
	s.store = storage.NewComponent(cfg.Storage, a.Logger)
	s.sse = sse.NewComponent("/api/transcriptions/:id/events")

	if err := s.register(); err != nil {
		return nil, err
	}
	a.OnConfigure(func(ctx context.Context, _ *bootstrap.App[*Config]) error {
		return s.wire(ctx)
	})
	trackClients(a.Summary, cfg)
	return s, nil
}

func (s *Service) register() error {
	reg := s.App.RegisterComponent
	if err := reg(newTelemetry(s.cfg.Observability, s.cfg.ServiceConfig)); err != nil {
		return err
	}
	if err := reg(s.db); err != nil {
		return err
	}
	if err := reg(s.store); err != nil {
		return err
	}
	if s.cfg.Redis.Enabled {
		s.redis = redis.NewComponent(s.cfg.Redis, s.App.Logger)
		if err := reg(s.redis); err != nil {
			return err
		}
	}
	if s.cfg.Kafka.Enabled {
		s.kafka = kafka.NewComponent(s.cfg.Kafka, s.App.Logger)
		if err := reg(s.kafka); err != nil {
			return err
		}
	}
	return reg(s.sse)
}

// wire builds everything that needs a live database, then launches the
// dispatcher and the HTTP server.
func (s *Service) wire(ctx context.Context) error {
	db := s.db.DB()
	s.Records = transcript.NewStore(db)
	s.Glossary = glossary.NewStore(db)
	s.Prompts = prompt.NewSystemStore(db)
	s.Templates = prompt.NewTemplateStore(db)
	s.Blobs = s.store.Storage()

	blobs, ok := s.Blobs.(processing.Blobs)
	if !ok {
		return fmt.Errorf("storage provider %q cannot resolve local paths", s.cfg.Storage.Provider)
	}

	locker := s.locker()

	pub := events.Multi{s.sse.Hub()}
	if s.kafka != nil {
		pub = append(pub, s.kafka.Publisher())
	}

	metrics, err := observability.NewPipelineMetrics(observability.Meter("stenopro/processing"))
	if err != nil {
		return fmt.Errorf("pipeline metrics: %w", err)
	}

	orch, err := processing.New(processing.Deps{
		Records:     s.Records,
		Blobs:       blobs,
		Transcriber: s.providers.transcriber,
		Corrector:   s.providers.corrector,
		Credentials: s.providers.credentials,
		Prompts:     s.Prompts,
		Glossary:    s.Glossary,
		Locker:      locker,
		Events:      pub,
		Metrics:     metrics,
		Clock:       s.opts.clock,
		Logger:      s.App.Logger.WithComponent("processing"),
	})
	if err != nil {
		return err
	}
	s.Orchestrator = orch
	s.log.Info("Pipeline wired", logger.Fields(
		"storage", s.cfg.Storage.Provider,
		"distributed_lock", s.redis != nil,
		"publishers", len(pub),
	))
	s.Dispatcher = processing.NewDispatcher(orch, s.cfg.Pipeline)
	if err := s.App.Components.Launch(ctx, s.Dispatcher); err != nil {
		return err
	}

	if !s.opts.serveHTTP {
		return nil
	}
	return s.serve(ctx)
}

func (s *Service) locker() processing.Locker {
	if s.redis == nil {
		return processing.NewLocalLocker()
	}
	return processing.NewRedisLocker(redis.NewLocker(s.redis.Client(), s.cfg.Redis.LockTTL))
}

func (s *Service) serve(ctx context.Context) error {
	srv := server.New(s.cfg.Server, s.App.Logger)

	authCfg, err := s.authConfig()
	if err != nil {
		return err
	}
	srv.ApplyDefaults(s.cfg.Name, s.App.Components.HealthAll, authCfg)

	httpMetrics, err := observability.NewMetrics(observability.Meter("stenopro/http"))
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	engine := srv.GinEngine()
	engine.Use(middleware.Metrics(httpMetrics))

	hub := s.sse.Hub()
	api.New(api.Deps{
		Records:   s.Records,
		Glossary:  s.Glossary,
		Prompts:   s.Prompts,
		Templates: s.Templates,
		Blobs:     s.Blobs,
		Runner:    s.Dispatcher,
		Hub:       hub,
		Upload:    s.cfg.Upload,
		Clock:     s.opts.clock,
		Logger:    s.App.Logger.WithComponent("api"),
	}).Register(engine)

	srv.OnShutdown(hub.Stop)
	srv.TrackRoutes(s.App.Summary)
	s.Server = srv
	return s.App.Components.Launch(ctx, server.NewComponent(srv))
}

// authConfig returns nil when authentication is disabled.
func (s *Service) authConfig() (*middleware.AuthConfig, error) {
	if !s.cfg.Auth.Enabled {
		return nil, nil
	}
	svc, err := auth.NewService(s.cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &middleware.AuthConfig{
		Verifier:   svc,
		SkipPaths:  s.cfg.Auth.SkipPaths,
		QueryParam: "access_token",
	}, nil
}

// Config returns the validated configuration.
func (s *Service) Config() *Config { return s.cfg }
