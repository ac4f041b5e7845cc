package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/telequiz/telequiz/internal/api"
	"github.com/telequiz/telequiz/internal/catalog"
	"github.com/telequiz/telequiz/internal/event"
	"github.com/telequiz/telequiz/internal/quiz"
	"github.com/telequiz/telequiz/internal/store"
	filestore "github.com/telequiz/telequiz/internal/store/file"
	"github.com/telequiz/telequiz/internal/store/memory"
	"github.com/telequiz/telequiz/internal/store/postgres"
	"github.com/telequiz/telequiz/internal/store/redisstore"
	"github.com/telequiz/telequiz/internal/store/sheets"
	"github.com/telequiz/telequiz/internal/telemetry"
)

// Result store backends.
const (
	BackendFile     = "file"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Admin struct {
		Token string
	}

	Quiz struct {
		CatalogPath string
	}

	Store struct {
		Backend string

		File struct {
			Path string
		}

		Sheets struct {
			CredentialsFile string
			SpreadsheetID   string
			SheetName       string
		}

		Postgres struct {
			Addr string
			User string
			Pass string
			Name string
		}

		Redis struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}
}

type Server struct {
	c Config

	eb      *event.Bus
	catalog *catalog.Catalog

	infra struct {
		store store.Store

		redis struct {
			store  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		quiz *quiz.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	var err error
	s.catalog, err = catalog.Load(c.Quiz.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("server: load catalog: %w", err)
	}

	if err := s.initStore(); err != nil {
		return nil, fmt.Errorf("server: init store: %w", err)
	}

	if err := s.initPubsub(); err != nil {
		return nil, fmt.Errorf("server: init pubsub: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch s.c.Store.Backend {
	case BackendFile:
		s.infra.store = filestore.NewStore(s.c.Store.File.Path)

	case BackendSheets:
		st, err := sheets.NewStore(ctx, sheets.Config{
			CredentialsFile: s.c.Store.Sheets.CredentialsFile,
			SpreadsheetID:   s.c.Store.Sheets.SpreadsheetID,
			SheetName:       s.c.Store.Sheets.SheetName,
		})
		if err != nil {
			return fmt.Errorf("sheets: %w", err)
		}
		// Header provisioning is best-effort: idempotent to re-run at the
		// next startup.
		if err := st.ProvisionHeader(ctx); err != nil {
			slog.ErrorContext(ctx, "server: provision sheets header failed", "error", err)
		}
		s.infra.store = st

	case BackendPostgres:
		pc := s.c.Store.Postgres
		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		s.infra.postgres = db

		st := postgres.NewStore(db)
		if err := st.Provision(ctx); err != nil {
			slog.ErrorContext(ctx, "server: provision quiz_results table failed", "error", err)
		}
		s.infra.store = st

	case BackendRedis:
		r, err := s.connectRedis(ctx, s.c.Store.Redis.Addrs, s.c.Store.Redis.Pass)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		s.infra.redis.store = r
		s.infra.store = redisstore.NewStore(r, s.c.Store.Redis.Prefix)

	case BackendMemory:
		s.infra.store = memory.NewStore()

	default:
		return fmt.Errorf("unknown backend %q", s.c.Store.Backend)
	}

	return nil
}

func (s *Server) initPubsub() error {
	if len(s.c.Redis.Pubsub.Addrs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := s.connectRedis(ctx, s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return err
	}

	s.infra.redis.pubsub = r
	return nil
}

func (s *Server) connectRedis(ctx context.Context, addrs []string, pass string) (redis.UniversalClient, error) {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Server) initService() {
	s.service.quiz = quiz.NewService(quiz.Config{
		Catalog:  s.catalog,
		Store:    s.infra.store,
		EventBus: s.eb,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.Use(cors.Default()) // Telegram Mini App calls from a webview origin
	e.Use(requestID())

	var pubsub api.Redis
	if s.infra.redis.pubsub != nil {
		pubsub = s.infra.redis.pubsub
	}

	api.New(api.Config{
		Engine:         e,
		EventBus:       s.eb,
		Quiz:           s.service.quiz,
		StorageBackend: s.c.Store.Backend,
		AdminToken:     s.c.Admin.Token,
		Redis:          pubsub,
		PubsubPrefix:   s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}
	for _, r := range []redis.UniversalClient{s.infra.redis.store, s.infra.redis.pubsub} {
		if r != nil {
			if err := r.Close(); err != nil {
				slog.ErrorContext(ctx, "server: close redis failed", "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
