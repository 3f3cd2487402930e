package app

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/redis"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	SequenceDriverAtomic   = "atomic"
	SequenceDriverPostgres = "postgres"
	SequenceDriverRedis    = "redis"

	NotifyDriverLog   = "log"
	NotifyDriverHTTP  = "http"
	NotifyDriverKafka = "kafka"
)

// Config описывает настройки запуска сервиса заказов.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	LockTimeout         time.Duration
	// SeedDemo заполняет memory-хранилище демонстрационным каталогом.
	SeedDemo bool

	// SequenceDriver пустой — выбирается по StorageDriver.
	SequenceDriver   string
	RedisAddr        string
	SnapshotCacheTTL time.Duration

	NotifyDriver      string
	NotifyCallbackURL string
	KafkaBrokers      []string
	KafkaTopic        string
	NotifyWorkers     int
	NotifyQueueSize   int
	NotifyTimeout     time.Duration

	TxMaxAttempts int

	OTelEndpoint string
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		LockTimeout:         5 * time.Second,
		SnapshotCacheTTL:    redis.DefaultSnapshotTTL,
		NotifyDriver:        NotifyDriverLog,
		KafkaTopic:          kafka.TopicOrderCompleted,
		NotifyWorkers:       4,
		NotifyQueueSize:     1024,
		NotifyTimeout:       5 * time.Second,
		TxMaxAttempts:       3,
	}
}

// sequenceDriver возвращает явный драйвер генератора или выводит его из хранилища.
func (c Config) sequenceDriver() string {
	if c.SequenceDriver != "" {
		return c.SequenceDriver
	}
	if c.StorageDriver == StorageDriverPostgres {
		return SequenceDriverPostgres
	}
	return SequenceDriverAtomic
}

// Validate проверяет согласованность драйверов и обязательных параметров.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires dsn")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.StorageDriver)
	}

	switch c.sequenceDriver() {
	case SequenceDriverAtomic:
	case SequenceDriverPostgres:
		if c.StorageDriver != StorageDriverPostgres {
			return fmt.Errorf("postgres sequence requires postgres storage")
		}
	case SequenceDriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis sequence requires redis addr")
		}
	default:
		return fmt.Errorf("unsupported sequence driver: %q", c.SequenceDriver)
	}

	switch c.NotifyDriver {
	case NotifyDriverLog:
	case NotifyDriverHTTP:
		if c.NotifyCallbackURL == "" {
			return fmt.Errorf("http notifier requires callback url")
		}
	case NotifyDriverKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka notifier requires brokers")
		}
	default:
		return fmt.Errorf("unsupported notify driver: %q", c.NotifyDriver)
	}
	return nil
}
