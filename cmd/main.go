package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/reflection"

	"github.com/Willamette-OR/microblog/database"
	grpchealth "github.com/Willamette-OR/microblog/internal/api/grpc/health"
	grpcrouter "github.com/Willamette-OR/microblog/internal/api/grpc/router"
	restctx "github.com/Willamette-OR/microblog/internal/api/rest/context"
	"github.com/Willamette-OR/microblog/internal/api/rest/handler"
	restrouter "github.com/Willamette-OR/microblog/internal/api/rest/router"
	"github.com/Willamette-OR/microblog/internal/config"
	"github.com/Willamette-OR/microblog/internal/indexsync"
	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
	"github.com/Willamette-OR/microblog/internal/repository/postgres"
	"github.com/Willamette-OR/microblog/internal/search/redisindex"
	"github.com/Willamette-OR/microblog/internal/server"
	"github.com/Willamette-OR/microblog/internal/service"
	storage "github.com/Willamette-OR/microblog/internal/storage/minio"
	"github.com/Willamette-OR/microblog/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	app := &cli.Command{
		Name:    "microblog",
		Usage:   "Microblog API server and maintenance tool",
		Version: buildVersion,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the gRPC health server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrate,
			},
			{
				Name:  "reindex",
				Usage: "Rebuild the post search index from the database",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"b"},
						Usage:   "Rows read per batch (defaults to SYNC_REINDEX_BATCH)",
					},
				},
				Action: reindex,
			},
			{
				Name:   "replay-failures",
				Usage:  "Re-apply index updates recorded in the replay failure journal",
				Action: replayFailures,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatalf("microblog: %v", err)
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel), nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logAppVersion()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.AutoMigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	// Writes never wait on the index, so serving starts without it; the
	// health checker reports redis and replay failures are journaled.
	rdb := redisindex.Open(cfg.Search.Addr, cfg.Search.Password, cfg.Search.DB)
	defer rdb.Close()
	index := redisindex.New(rdb, cfg.Search.Prefix, logger)
	if err := index.Ping(ctx); err != nil {
		logger.Warn("search index is unreachable, starting without it", "address", cfg.Search.Addr, "error", err)
	}

	postSource := postgres.NewPostSource(db)
	synchronizer, err := newSynchronizer(ctx, cfg, index, cfg.Sync.Workers, logger, postSource)
	if err != nil {
		return err
	}

	tokens := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	userRepo := postgres.NewUserRepository(db)
	followRepo := postgres.NewFollowRepository(db)
	postRepo := postgres.NewPostRepository(db)
	tx := postgres.NewTransactor(db, synchronizer, logger)

	users := service.NewUsers(userRepo, followRepo, tokens, logger)
	follows := service.NewFollowGraph(followRepo, tx, logger)
	posts := service.NewPosts(tx, service.WhatlangDetector{}, logger)
	feed := service.NewFeed(postRepo, cfg.Feed.PostsPerPage, logger)
	search := service.NewSearch(index, postRepo, cfg.Feed.PostsPerPage, logger)

	httpServer := registerHTTPServer(cfg, logger, tokens, users, follows, posts, feed, search)

	healthServer := health.NewServer()
	checker := grpchealth.NewChecker(healthServer, cfg.GRPC.HealthInterval, logger)
	checker.Add("postgres", db)
	checker.Add("redis", index)
	grpcServer := registerGRPCServer(logger, healthServer, fmt.Sprintf(":%s", cfg.GRPC.Port))

	listeners := map[model.Server]model.SecurityLayer{
		httpServer: server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		grpcServer: server.NewPlainListener(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for s, sl := range listeners {
		g.Go(func() error {
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				return fmt.Errorf("server %s: %w", s.Address(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return checker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received interruption signal, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for s := range listeners {
			if err := s.Stop(shutdownCtx); err != nil {
				logger.Error("error during server shutdown", "error", err, "address", s.Address())
			}
		}
		return nil
	})

	err = g.Wait()

	// Servers are down, so no transaction can queue another replay.
	synchronizer.Close()
	stats := synchronizer.Stats()
	logger.Info("shutdown complete", "replayed", stats.Applied, "replay_failures", stats.Failed)

	return err
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	if err := database.Migrate(ctx, cfg.Database.DSN); err != nil {
		return err
	}
	logger.Info("database is up to date")
	return nil
}

func reindex(ctx context.Context, c *cli.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.AutoMigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	rdb, err := redisindex.NewClient(ctx, cfg.Search.Addr, cfg.Search.Password, cfg.Search.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize search index: %w", err)
	}
	defer rdb.Close()

	postSource := postgres.NewPostSource(db)
	synchronizer, err := newSynchronizer(ctx, cfg, redisindex.New(rdb, cfg.Search.Prefix, logger), 1, logger, postSource)
	if err != nil {
		return err
	}
	defer synchronizer.Close()

	batch := cfg.Sync.ReindexBatch
	if b := c.Int("batch-size"); b > 0 {
		batch = int(b)
	}

	n, err := synchronizer.Reindex(ctx, postSource, batch)
	if err != nil {
		return fmt.Errorf("reindex stopped after %d documents: %w", n, err)
	}
	return nil
}

func replayFailures(ctx context.Context, _ *cli.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return errors.New("replay failure journal is disabled, set MINIO_ENABLED=true")
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, false)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	rdb, err := redisindex.NewClient(ctx, cfg.Search.Addr, cfg.Search.Password, cfg.Search.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize search index: %w", err)
	}
	defer rdb.Close()

	journal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Entries that fail again stay in the journal for the next run.
	postSource := postgres.NewPostSource(db)
	synchronizer := indexsync.New(redisindex.New(rdb, cfg.Search.Prefix, logger), logger, indexsync.Options{
		Workers: 1,
		Sources: []model.IndexableSource{postSource},
	})
	defer synchronizer.Close()

	stats, err := synchronizer.Recover(ctx, journal, postSource)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d journal entries are still unresolved", stats.Failed)
	}
	return nil
}

func newSynchronizer(
	ctx context.Context,
	cfg *config.Config,
	index model.SearchIndex,
	workers int,
	logger *logger.Logger,
	sources ...model.IndexableSource,
) (*indexsync.Synchronizer, error) {
	opts := indexsync.Options{
		Workers:   workers,
		QueueSize: cfg.Sync.QueueSize,
		Sources:   sources,
	}
	if cfg.Storage.Enabled {
		journal, err := openJournal(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts.Journal = journal
	}
	return indexsync.New(index, logger, opts), nil
}

func openJournal(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*indexsync.Journal, error) {
	client, err := storage.Dial(ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize replay failure journal: %w", err)
	}
	return indexsync.NewJournal(client, logger), nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func registerHTTPServer(
	cfg *config.Config,
	logger *logger.Logger,
	tokens model.TokenManager,
	users *service.Users,
	follows *service.FollowGraph,
	posts *service.Posts,
	feed *service.Feed,
	search *service.Search,
) *server.HTTPServer {
	if cfg.LogLevel > -4 {
		gin.SetMode(gin.ReleaseMode)
	}

	ctxMgr := restctx.NewManager()
	r := restrouter.New(restrouter.Handlers{
		Users:    handler.NewUsers(users, follows, ctxMgr, logger),
		Posts:    handler.NewPosts(posts, ctxMgr, logger),
		Timeline: handler.NewTimeline(feed, search, users, ctxMgr, logger),
	}, tokens, users, ctxMgr, cfg.HTTP.AllowOrigins, logger)

	return server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))
}

func registerGRPCServer(logger *logger.Logger, healthServer *health.Server, addr string) *server.GRPCServer {
	r := grpcrouter.New(healthServer, logger)
	s := r.Register()

	reflection.Register(s)

	return server.NewGRPCServer(s, addr)
}
