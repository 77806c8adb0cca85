package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

// Драйверы хранилища каталога
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreQdrant   = "qdrant"
	StoreMemory   = "memory"
)

type Config struct {
	Minio     *MinIOCfg
	Http      *HTTPConfig
	Grpc      *GRPCConfig
	Mongo     *MongoCfg
	Db        *PGDBCfg
	Qdrant    *QdrantCfg
	Redis     *RedisCfg
	Ml        *MLServiceCfg
	Kafka     *KafkaCfg
	Fetcher   *FetcherCfg
	Ingestion *IngestionCfg
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	Enabled           bool
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для архива исходных изображений
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	ArchiveImages     bool          // Сохранять ли исходные изображения в бакет
	CleanupTimeout    time.Duration // Сколько ждать фоновой очистки при остановке
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// IngestTimeout — дедлайн записи ответа для POST /ingest, прогон может идти минутами
	IngestTimeout time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type MongoCfg struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type QdrantCfg struct {
	Port           int
	Host           string
	ApiKey         string
	CollectionName string // имя алиаса каталога в Qdrant, коллекции поколений получают суффикс
	UseTLS         bool
	VectorSize     uint64
}

type RedisCfg struct {
	Enabled     bool
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	CacheTTL    time.Duration
	LockTTL     time.Duration
}

type MLServiceCfg struct {
	Addr          string
	MaxConcurrent int
	MaxRetries    int
	Timeout       time.Duration
}

type FetcherCfg struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

type IngestionCfg struct {
	Store            string
	FeedDir          string
	Feeds            []string
	Workers          int
	FeedReadAttempts int
}

// DefaultUserAgent — заголовок обычного браузера, без него часть магазинов отдаёт 403.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultFeeds — фиды вендоров, которые стабильно отдают изображения.
var DefaultFeeds = []string{
	"edikted_products.csv",
	"cupshe_products.csv",
	"gymshark_products.csv",
	"nakd_products.csv",
	"princess_polly.csv",
	"vuori_products.csv",
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Переменные из файла .env подхватываются, если он есть.
func Load(log logger.Logger) (*Config, error) {
	_ = godotenv.Load()

	ingestion, err := loadIngestionCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	mongo, err := loadMongoCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var db *PGDBCfg
	if ingestion.Store == StorePostgres {
		db, err = loadPGDBCfg(log)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	var qdrant *QdrantCfg
	if ingestion.Store == StoreQdrant {
		qdrant, err = loadQdrantCfg(log)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fetcher, err := loadFetcherCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:     minio,
		Http:      http,
		Grpc:      loadGRPCConfig(),
		Mongo:     mongo,
		Db:        db,
		Qdrant:    qdrant,
		Redis:     redis,
		Ml:        ml,
		Kafka:     kafka,
		Fetcher:   fetcher,
		Ingestion: ingestion,
	}, nil
}

func loadIngestionCfg(log logger.Logger) (*IngestionCfg, error) {
	const (
		defaultStore            = StoreMongo
		defaultFeedDir          = "data"
		defaultWorkers          = 8
		defaultFeedReadAttempts = 3
	)

	store := strings.ToLower(getEnvOrDefault("CATALOG_STORE", defaultStore))
	switch store {
	case StoreMongo, StorePostgres, StoreQdrant, StoreMemory:
	default:
		err := fmt.Errorf("%w: CATALOG_STORE=%q", e.ErrIncorrectEnvVariable, store)
		log.Errorf(err, "invalid CATALOG_STORE")
		return nil, err
	}

	workers, err := parseIntEnv("INGEST_WORKERS", defaultWorkers)
	if err != nil || workers <= 0 {
		err = fmt.Errorf("%w: INGEST_WORKERS", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid INGEST_WORKERS")
		return nil, err
	}

	attempts, err := parseIntEnv("FEED_READ_ATTEMPTS", defaultFeedReadAttempts)
	if err != nil || attempts <= 0 {
		err = fmt.Errorf("%w: FEED_READ_ATTEMPTS", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid FEED_READ_ATTEMPTS")
		return nil, err
	}

	feedDir := getEnvOrDefault("FEED_DIR", defaultFeedDir)

	names := DefaultFeeds
	if raw := getEnv("FEEDS"); raw != "" {
		names = splitList(raw)
	}

	return &IngestionCfg{
		Store:            store,
		FeedDir:          feedDir,
		Feeds:            resolveFeeds(feedDir, names),
		Workers:          workers,
		FeedReadAttempts: attempts,
	}, nil
}

// resolveFeeds превращает имена фидов в полные расположения.
// Абсолютные пути и URI (file://, s3://) остаются как есть.
func resolveFeeds(feedDir string, names []string) []string {
	feeds := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, "://") || filepath.IsAbs(name) {
			feeds = append(feeds, name)
			continue
		}
		feeds = append(feeds, filepath.Join(feedDir, name))
	}

	return feeds
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "catalog.generation.committed"
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return &KafkaCfg{Enabled: false}, nil
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           splitList(brokerStr),
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL         = false
		defaultBucket         = "catalog"
		defaultCleanupTimeout = 30 * time.Second
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	archive, err := strconv.ParseBool(getEnvOrDefault("ARCHIVE_IMAGES", "false"))
	if err != nil {
		log.Errorf(err, "invalid ARCHIVE_IMAGES")
		return nil, err
	}

	cleanupTimeout, err := parseDurationEnv("MINIO_CLEANUP_TIMEOUT", defaultCleanupTimeout)
	if err != nil {
		log.Errorf(err, "invalid MINIO_CLEANUP_TIMEOUT")
		return nil, err
	}

	endpoint := getEnv("MINIO_ENDPOINT")
	if endpoint == "" && archive {
		err := fmt.Errorf("%w: ARCHIVE_IMAGES requires MINIO_ENDPOINT", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid MinIO configuration")
		return nil, err
	}

	return &MinIOCfg{
		Enabled:           endpoint != "",
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		ArchiveImages:     archive,
		CleanupTimeout:    cleanupTimeout,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort          = "8080"
		defaultReadTimeout   = 5 * time.Second
		defaultWriteTimeout  = 30 * time.Second
		defaultIdleTimeout   = 60 * time.Second
		defaultIngestTimeout = 30 * time.Minute
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	ingestTimeout, err := parseDurationEnv("HTTP_INGEST_TIMEOUT", defaultIngestTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_INGEST_TIMEOUT")
		return nil, err
	}

	return &HTTPConfig{
		Port:          port,
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		IdleTimeout:   idleTimeout,
		IngestTimeout: ingestTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadMongoCfg(log logger.Logger) (*MongoCfg, error) {
	const (
		defaultURI            = "mongodb://localhost:27017"
		defaultDatabase       = "style_catalog"
		defaultConnectTimeout = 10 * time.Second
	)

	timeout, err := parseDurationEnv("MONGO_CONNECT_TIMEOUT", defaultConnectTimeout)
	if err != nil {
		log.Errorf(err, "invalid MONGO_CONNECT_TIMEOUT")
		return nil, err
	}

	return &MongoCfg{
		URI:            getEnvOrDefault("MONGO_URI", defaultURI),
		Database:       getEnvOrDefault("MONGO_DATABASE", defaultDatabase),
		ConnectTimeout: timeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantHost     = "localhost"
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "512"
		defaultCollection     = "catalog"
	)

	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	vectorSize, err := strconv.ParseUint(getEnvOrDefault("VECTOR_SIZE", defaultVectorSize), 10, 64)
	if err != nil {
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:           getEnvOrDefault("QDRANT_HOST", defaultQdrantHost),
		Port:           port,
		ApiKey:         getEnv("QDRANT__SERVICE__API_KEY"),
		CollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:         useTLS,
		VectorSize:     vectorSize,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultCacheTTL     = 10 * time.Minute
		defaultLockTTL      = 30 * time.Minute
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return &RedisCfg{Enabled: false}, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	cacheTTL, err := parseDurationEnv("RECOMMENDATION_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		log.Errorf(err, "invalid RECOMMENDATION_CACHE_TTL")
		return nil, err
	}

	lockTTL, err := parseDurationEnv("INGEST_LOCK_TTL", defaultLockTTL)
	if err != nil {
		log.Errorf(err, "invalid INGEST_LOCK_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Enabled:     true,
		Addr:        addr,
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		CacheTTL:    cacheTTL,
		LockTTL:     lockTTL,
	}, nil
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultHost          = "ml-service"
		defaultPort          = "50051"
		defaultMaxConcurrent = 8
		defaultMaxRetries    = 3
		defaultTimeout       = 15 * time.Second
	)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_CONCURRENT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("ML_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_RETRIES")
		return nil, err
	}

	timeout, err := parseDurationEnv("ML_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_TIMEOUT")
		return nil, err
	}

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	return &MLServiceCfg{
		Addr:          host + ":" + port,
		MaxConcurrent: maxConcurrent,
		MaxRetries:    maxRetries,
		Timeout:       timeout,
	}, nil
}

func loadFetcherCfg(log logger.Logger) (*FetcherCfg, error) {
	const (
		defaultTimeout      = 10 * time.Second
		defaultMaxBodyBytes = 15 << 20
	)

	timeout, err := parseDurationEnv("FETCH_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid FETCH_TIMEOUT")
		return nil, err
	}

	maxBody, err := parseIntEnv("FETCH_MAX_BYTES", defaultMaxBodyBytes)
	if err != nil {
		log.Errorf(err, "invalid FETCH_MAX_BYTES")
		return nil, err
	}

	return &FetcherCfg{
		Timeout:      timeout,
		UserAgent:    getEnvOrDefault("FETCH_USER_AGENT", DefaultUserAgent),
		MaxBodyBytes: int64(maxBody),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
