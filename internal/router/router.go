package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "social-coordination/docs"

	mem "social-coordination/internal/adapters/storage/memory"
	pg "social-coordination/internal/adapters/storage/postgres"
	"social-coordination/internal/domain/admission"
	"social-coordination/internal/domain/events"
	"social-coordination/internal/domain/friends"
	"social-coordination/internal/domain/groups"
	"social-coordination/internal/domain/registry"
	"social-coordination/internal/domain/requests"
	"social-coordination/internal/domain/timers"
	"social-coordination/internal/middleware"
	"social-coordination/internal/platform/logger"
	"social-coordination/internal/platform/metrics"
	"social-coordination/internal/ports/auth"
	"social-coordination/internal/ports/identity"
	"social-coordination/internal/ports/locations"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Stats es el store opcional de contadores (Redis).
type Stats interface {
	admission.StatsRecorder
	admission.StatsReader
}

type Options struct {
	AuthVerifier auth.AuthVerifier // nil = modo dev (X-Debug-User-ID)

	// Si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger    logger.Logger
	Locations locations.Checker  // nil = sin validar locations
	Directory identity.Directory // nil = memory passthrough (o users en Postgres)
	Stats     Stats              // nil = sin GET /stats
	RateLimit *middleware.LimiterStore

	Policy    admission.DeadlinePolicy
	Scheduler timers.Options
	Now       func() time.Time
}

// App junta el handler HTTP con las piezas de fondo que main tiene que arrancar.
type App struct {
	Handler     http.Handler
	Scheduler   *timers.Scheduler
	Coordinator *admission.Coordinator
}

type repos struct {
	requests requests.Repository
	timers   timers.Repository
	groups   groups.Repository
	events   events.Repository
	friends  friends.Repository
	users    identity.Directory
}

func memoryRepos() repos {
	return repos{
		requests: mem.NewRequestRepo(),
		timers:   mem.NewTimerRepo(),
		groups:   mem.NewGroupRepo(),
		events:   mem.NewEventRepo(),
		friends:  mem.NewFriendRepo(),
		users:    mem.NewUserDirectory(true),
	}
}

func postgresRepos(db *sql.DB) repos {
	return repos{
		requests: pg.NewRequestsRepo(db),
		timers:   pg.NewTimersRepo(db),
		groups:   pg.NewGroupsRepo(db),
		events:   pg.NewEventsRepo(db),
		friends:  pg.NewFriendsRepo(db),
		users:    pg.NewUserDirectory(db),
	}
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	rp := memoryRepos()
	if opts.DB != nil {
		rp = postgresRepos(opts.DB)
	}
	dir := opts.Directory
	if dir == nil {
		dir = rp.users
	}

	// Services por módulo
	ledger := requests.NewService(rp.requests)
	groupsSvc := groups.NewService(rp.groups, opts.Locations)
	eventsSvc := events.NewService(rp.events, groupsSvc, opts.Locations)
	friendsSvc := friends.NewService(rp.friends)

	schedOpts := opts.Scheduler
	if schedOpts.Logger == nil {
		schedOpts.Logger = log
	}
	if schedOpts.Now == nil {
		schedOpts.Now = opts.Now
	}
	scheduler := timers.NewScheduler(rp.timers, schedOpts)

	reg := registry.New(map[registry.Kind]registry.Store{
		registry.KindGroup: groups.NewRegistryStore(rp.groups),
		registry.KindEvent: events.NewRegistryStore(rp.events),
	})

	coordOpts := admission.Options{Policy: opts.Policy, Logger: log, Now: opts.Now}
	var statsReader admission.StatsReader
	if opts.Stats != nil {
		coordOpts.Stats = opts.Stats
		statsReader = opts.Stats
	}
	coord := admission.New(admission.Deps{
		Ledger:    ledger,
		Scheduler: scheduler,
		Registry:  reg,
		Groups:    groupsSvc,
		Events:    eventsSvc,
		Friends:   friendsSvc,
	}, coordOpts)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RateLimitWrites(opts.RateLimit))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo: lecturas en cada módulo, escrituras en el coordinator.
	groups.RegisterRoutes(r, groupsSvc, dir)
	events.RegisterRoutes(r, eventsSvc, dir)
	friends.RegisterRoutes(r, friendsSvc, dir)
	requests.RegisterRoutes(r, ledger, dir)
	admission.RegisterRoutes(r, coord, dir, statsReader)

	return &App{Handler: r, Scheduler: scheduler, Coordinator: coord}
}
