package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/app"
	"github.com/vladislavdragonenkov/ordercore/internal/version"
)

const (
	envGRPCAddr            = "ORDERCORE_GRPC_ADDR"
	envHTTPAddr            = "ORDERCORE_HTTP_ADDR"
	envMetricsAddr         = "ORDERCORE_METRICS_ADDR"
	envStorageDriver       = "ORDERCORE_STORAGE_DRIVER"
	envPostgresDSN         = "ORDERCORE_POSTGRES_DSN"
	envPostgresAutoMigrate = "ORDERCORE_POSTGRES_AUTO_MIGRATE"
	envLockTimeout         = "ORDERCORE_LOCK_TIMEOUT"
	envSeedDemo            = "ORDERCORE_SEED_DEMO"
	envSequenceDriver      = "ORDERCORE_SEQUENCE_DRIVER"
	envRedisAddr           = "ORDERCORE_REDIS_ADDR"
	envSnapshotCacheTTL    = "ORDERCORE_SNAPSHOT_CACHE_TTL"
	envNotifyDriver        = "ORDERCORE_NOTIFY_DRIVER"
	envNotifyCallbackURL   = "ORDERCORE_NOTIFY_CALLBACK_URL"
	envKafkaBrokers        = "ORDERCORE_KAFKA_BROKERS"
	envKafkaTopic          = "ORDERCORE_KAFKA_TOPIC"
	envNotifyWorkers       = "ORDERCORE_NOTIFY_WORKERS"
	envNotifyQueueSize     = "ORDERCORE_NOTIFY_QUEUE_SIZE"
	envNotifyTimeout       = "ORDERCORE_NOTIFY_TIMEOUT"
	envTxMaxAttempts       = "ORDERCORE_TX_MAX_ATTEMPTS"
	envOTelEndpoint        = "ORDERCORE_OTEL_ENDPOINT"
	envLogLevel            = "ORDERCORE_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok {
		if level, err := log.ParseLevel(strings.TrimSpace(raw)); err == nil {
			log.SetLevel(level)
		}
	}
}

// readConfigFromEnv собирает конфигурацию из окружения. Некорректные
// значения не прерывают запуск: остаётся значение по умолчанию и
// возвращается предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	lower := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.ToLower(strings.TrimSpace(v))
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	positiveInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	positiveDuration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}

	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	lower(envStorageDriver, &cfg.StorageDriver)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	positiveDuration(envLockTimeout, &cfg.LockTimeout)
	boolean(envSeedDemo, &cfg.SeedDemo)
	lower(envSequenceDriver, &cfg.SequenceDriver)
	str(envRedisAddr, &cfg.RedisAddr)
	positiveDuration(envSnapshotCacheTTL, &cfg.SnapshotCacheTTL)
	lower(envNotifyDriver, &cfg.NotifyDriver)
	str(envNotifyCallbackURL, &cfg.NotifyCallbackURL)
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	str(envKafkaTopic, &cfg.KafkaTopic)
	positiveInt(envNotifyWorkers, &cfg.NotifyWorkers)
	positiveInt(envNotifyQueueSize, &cfg.NotifyQueueSize)
	positiveDuration(envNotifyTimeout, &cfg.NotifyTimeout)
	positiveInt(envTxMaxAttempts, &cfg.TxMaxAttempts)
	str(envOTelEndpoint, &cfg.OTelEndpoint)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"notify_driver":  cfg.NotifyDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем order-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("order-service остановлен")
}
