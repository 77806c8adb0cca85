package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/style-catalog/internal/cfg"
	v1Grpc "github.com/DRSN-tech/style-catalog/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/style-catalog/internal/delivery/v1/http"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/infrastructure/feed"
	"github.com/DRSN-tech/style-catalog/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/style-catalog/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/style-catalog/internal/infrastructure/minio"
	ml_service "github.com/DRSN-tech/style-catalog/internal/infrastructure/ml-service"
	"github.com/DRSN-tech/style-catalog/internal/repository/memory"
	s3Repo "github.com/DRSN-tech/style-catalog/internal/repository/minio"
	mongoRepo "github.com/DRSN-tech/style-catalog/internal/repository/mongo"
	mongoConv "github.com/DRSN-tech/style-catalog/internal/repository/mongo/converter"
	"github.com/DRSN-tech/style-catalog/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/style-catalog/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/style-catalog/internal/repository/qdrant"
	qdrantConv "github.com/DRSN-tech/style-catalog/internal/repository/qdrant/converter"
	"github.com/DRSN-tech/style-catalog/internal/repository/redis"
	redisConv "github.com/DRSN-tech/style-catalog/internal/repository/redis/converter"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/closer"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/DRSN-tech/style-catalog/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	initTimeout     = 15 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App собирает зависимости и управляет жизненным циклом серверов.
// Ресурсы закрываются в обратном порядке через closer.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(ctx); cerr != nil {
			log.Warnf("failed to release resources after init error: %v", cerr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	catalogRepo, err := a.initCatalogStore(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	// Опциональные зависимости передаются как nil-интерфейсы, если выключены.
	var (
		cacheRepo   usecase.CacheRepository
		locker      usecase.LockRepository
		imagesInfra usecase.ImagesInfra
		producer    usecase.EventProducer
		objects     feed.ObjectGetter
	)

	if a.cfg.Redis.Enabled {
		redisClient := clients.NewRedisClient(a.cfg.Redis)
		if err := redisClient.Ping(ctx); err != nil {
			a.logger.Errorf(err, "failed to connect to redis")
			return e.Wrap(whereami.WhereAmI(), err)
		}
		a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })

		cacheRepo = redis.NewCacheRepo(redisClient, redisConv.NewRecommendationConverter(), a.cfg.Redis, a.logger)
		locker = redis.NewLockRepo(redisClient, a.cfg.Redis.LockTTL)
		a.logger.Infof("redis enabled: recommendation cache and ingestion lock")
	}

	if a.cfg.Minio.Enabled {
		minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize minio client")
			return e.Wrap(whereami.WhereAmI(), err)
		}

		imageRepo := s3Repo.NewImageRepo(minioClient, a.cfg.Minio.BucketName)
		objects = imageRepo

		if a.cfg.Minio.ArchiveImages {
			if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
				a.logger.Errorf(err, "failed to initialize MinIO bucket")
				return e.Wrap(whereami.WhereAmI(), err)
			}

			cleanupCtx, stopCleanup := context.WithCancel(context.Background())
			archive := minioInfra.NewMinioInfrastructure(imageRepo, a.cfg.Minio.BucketName, a.cfg.Minio.CleanupTimeout, a.logger, cleanupCtx)
			a.closer.AddNoErr("minio cleanup stop", stopCleanup)
			a.closer.Add("minio cleanup", archive.WaitForCleanup)
			imagesInfra = archive
			a.logger.Infof("source image archive enabled: bucket=%s", a.cfg.Minio.BucketName)
		}
	}

	if a.cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize kafka producer")
			return e.Wrap(whereami.WhereAmI(), err)
		}
		a.closer.Add("kafka", func(context.Context) error { return p.Close() })

		if err := p.EnsureTopic(10 * time.Second); err != nil {
			a.logger.Warnf("failed to ensure kafka topic %s, events may be lost: %v", a.cfg.Kafka.Topic, err)
		}
		producer = p
	}

	conn, err := grpc.NewClient(
		a.cfg.Ml.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()), // явное указание gRPC-клиенту использовать НЕзащищённое соединение (без TLS).
	)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize grpc client")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("ml grpc conn", func(context.Context) error { return conn.Close() })

	ml := ml_service.NewMLService(conn, a.cfg.Ml.MaxConcurrent, a.cfg.Ml.MaxRetries, a.cfg.Ml.Timeout, a.logger)
	loader := fetcher.NewRemoteFetcher(a.cfg.Fetcher)

	feeds := make([]domain.Feed, 0, len(a.cfg.Ingestion.Feeds))
	for _, location := range a.cfg.Ingestion.Feeds {
		feeds = append(feeds, domain.NewFeed(location))
	}

	builder := usecase.NewCatalogBuilder(loader, ml, imagesInfra, a.cfg.Ingestion.Workers, a.logger)
	feedReader := feed.NewCSVReader(objects, a.cfg.Ingestion.FeedReadAttempts, a.logger)

	ingestionUC := usecase.NewIngestionUC(feeds, feedReader, builder, catalogRepo, imagesInfra, producer, locker, a.logger)
	catalogUC := usecase.NewCatalogUC(catalogRepo, usecase.NewSnapshotCache(catalogRepo), loader, ml, cacheRepo, a.logger)

	a.grpcSrv = v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	a.grpcSrv.RegisterServices(catalogUC)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(catalogUC, ingestionUC, a.cfg.Http.IngestTimeout)
	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)

	a.logger.Infof("catalog service initialized: store=%s feeds=%d workers=%d",
		a.cfg.Ingestion.Store, len(feeds), a.cfg.Ingestion.Workers)

	return nil
}

// initCatalogStore подключает хранилище каталога, выбранное CATALOG_STORE.
func (a *App) initCatalogStore(ctx context.Context) (usecase.CatalogRepository, error) {
	switch a.cfg.Ingestion.Store {
	case config.StoreMemory:
		a.logger.Warnf("using in-memory catalog store, the catalog is lost on restart")
		return memory.NewCatalogRepo(), nil

	case config.StorePostgres:
		db, err := initPGDB(a.logger, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closer.AddNoErr("postgres", db.Close)

		return pgdb.NewCatalogRepo(db.Pool, pgdbConv.NewCatalogConverter(), a.logger), nil

	case config.StoreQdrant:
		qdrantClient, err := clients.NewQdrantClient(a.cfg.Qdrant)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize qdrant")
			return nil, err
		}
		a.closer.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

		return qdrantRepo.NewCatalogRepo(qdrantClient.Client, qdrantConv.NewCatalogConverter(), a.cfg.Qdrant, a.logger), nil

	case config.StoreMongo:
		mongoClient, err := clients.NewMongoClient(a.cfg.Mongo)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize mongo client")
			return nil, err
		}
		a.closer.Add("mongo", func(context.Context) error { return mongoClient.Close() })

		if err := mongoClient.Ping(ctx); err != nil {
			a.logger.Errorf(err, "failed to connect to mongo")
			return nil, err
		}

		repo := mongoRepo.NewCatalogRepo(mongoClient.Database, mongoConv.NewCatalogConverter(), a.logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			a.logger.Errorf(err, "failed to create mongo indexes")
			return nil, err
		}

		return repo, nil

	default:
		return nil, fmt.Errorf("%w: CATALOG_STORE=%q", e.ErrIncorrectEnvVariable, a.cfg.Ingestion.Store)
	}
}

// Run запускает HTTP и gRPC серверы и блокируется до сигнала остановки или падения сервера.
func (a *App) Run() error {
	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			a.logger.Errorf(err, "gRPC server failed")
			grpcErrCh <- err
		}
	}()
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()
	a.closer.Add("http server", a.httpSrv.Stop)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
