package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordercore/internal/service/notify"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/postgres"
)

const (
	defaultDeliveryTimeout = 5 * time.Second
	kafkaClientID          = "ordercore-notify-redeliver"

	transportLog   = "log"
	transportHTTP  = "http"
	transportKafka = "kafka"
)

type config struct {
	dsn         string
	ordersRaw   string
	file        string
	transport   string
	callbackURL string
	brokers     []string
	topic       string
	execute     bool
	timeout     time.Duration
}

type redeliverStats struct {
	processed int
	delivered int
	invalid   int
	missing   int
	failed    int
}

// newRedeliverDependencies открывает хранилище и транспорт. Переменная,
// чтобы тесты могли подменить внешние зависимости.
var newRedeliverDependencies = func(ctx context.Context, cfg config) (domain.OrderReader, notify.Transport, func(), error) {
	store, err := postgres.Open(ctx, cfg.dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
	}

	closers := []func(){func() { _ = store.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var transport notify.Transport
	switch cfg.transport {
	case transportHTTP:
		transport = notify.NewHTTPCallback(cfg.callbackURL, &http.Client{Timeout: cfg.timeout})
	case transportKafka:
		producer, err := kafka.NewProducer(cfg.brokers, kafkaClientID)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
		}
		closers = append(closers, func() { _ = producer.Close() })
		transport = kafka.NewCompletionPublisher(producer, cfg.topic)
	default:
		transport = notify.NewLogTransport(log.WithField("component", "notify-redeliver"))
	}

	return store, transport, closeAll, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	ids, err := collectOrderIDs(cfg, os.Stdin)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg, ids); err != nil {
		fail("redelivery failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&cfg.dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERCORE_POSTGRES_DSN)")
	flag.StringVar(&cfg.ordersRaw, "orders", "", "comma-separated order ids to redeliver")
	flag.StringVar(&cfg.file, "file", "", "file with one order id per line; '-' reads stdin")
	flag.StringVar(&cfg.transport, "transport", transportLog, "delivery transport: log|http|kafka")
	flag.StringVar(&cfg.callbackURL, "callback-url", "", "HTTP callback URL (fallback: ORDERCORE_NOTIFY_CALLBACK_URL)")
	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: ORDERCORE_KAFKA_BROKERS)")
	flag.StringVar(&cfg.topic, "topic", kafka.TopicOrderCompleted, "Kafka topic for completion events")
	flag.BoolVar(&cfg.execute, "execute", false, "deliver notifications; default is dry-run")
	flag.DurationVar(&cfg.timeout, "timeout", defaultDeliveryTimeout, "per-delivery timeout")
	flag.Parse()

	if strings.TrimSpace(cfg.dsn) == "" {
		cfg.dsn = os.Getenv("ORDERCORE_POSTGRES_DSN")
	}
	if strings.TrimSpace(cfg.callbackURL) == "" {
		cfg.callbackURL = os.Getenv("ORDERCORE_NOTIFY_CALLBACK_URL")
	}
	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("ORDERCORE_KAFKA_BROKERS")
	}
	cfg.dsn = strings.TrimSpace(cfg.dsn)
	cfg.callbackURL = strings.TrimSpace(cfg.callbackURL)
	cfg.brokers = splitList(brokersRaw)
	cfg.transport = strings.ToLower(strings.TrimSpace(cfg.transport))

	if cfg.dsn == "" {
		return config{}, errors.New("postgres dsn is required (-dsn or ORDERCORE_POSTGRES_DSN)")
	}
	if strings.TrimSpace(cfg.ordersRaw) == "" && strings.TrimSpace(cfg.file) == "" {
		return config{}, errors.New("order ids are required (-orders or -file)")
	}
	switch cfg.transport {
	case transportLog:
	case transportHTTP:
		if cfg.callbackURL == "" {
			return config{}, errors.New("callback-url is required for http transport")
		}
	case transportKafka:
		if len(cfg.brokers) == 0 {
			return config{}, errors.New("kafka brokers are required for kafka transport")
		}
		if strings.TrimSpace(cfg.topic) == "" {
			return config{}, errors.New("topic is required for kafka transport")
		}
	default:
		return config{}, fmt.Errorf("unsupported transport: %s (use log|http|kafka)", cfg.transport)
	}
	if cfg.timeout <= 0 {
		return config{}, errors.New("timeout must be > 0")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	chunks := strings.Split(raw, ",")
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if item := strings.TrimSpace(chunk); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// collectOrderIDs объединяет идентификаторы из -orders и -file без
// дубликатов, сохраняя порядок первого появления.
func collectOrderIDs(cfg config, stdin io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || strings.HasPrefix(id, "#") {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range splitList(cfg.ordersRaw) {
		add(id)
	}

	if path := strings.TrimSpace(cfg.file); path != "" {
		var src io.Reader = stdin
		if path != "-" {
			// #nosec G304 -- path is an explicit CLI input parameter.
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open order id file: %w", err)
			}
			defer f.Close()
			src = f
		}

		scanner := bufio.NewScanner(src)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read order ids: %w", err)
		}
	}

	if len(ids) == 0 {
		return nil, errors.New("no order ids to redeliver")
	}
	return ids, nil
}

func run(ctx context.Context, cfg config, ids []string) error {
	log.WithFields(log.Fields{
		"orders":    len(ids),
		"transport": cfg.transport,
		"execute":   cfg.execute,
	}).Info("starting completion redelivery")

	reader, transport, closeDeps, err := newRedeliverDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	stats, err := runRedeliver(ctx, cfg, ids, reader, transport)
	if err != nil {
		return err
	}
	if stats.failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", stats.failed, stats.processed)
	}
	return nil
}

// runRedeliver повторно отправляет уведомления только для заказов, которые
// действительно зафиксированы в хранилище.
func runRedeliver(ctx context.Context, cfg config, ids []string, reader domain.OrderReader, transport notify.Transport) (redeliverStats, error) {
	var stats redeliverStats
	if reader == nil {
		return stats, errors.New("order reader is required")
	}
	if cfg.execute && transport == nil {
		return stats, errors.New("transport is required in execute mode")
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.processed++
		entry := log.WithField("order_id", id)

		if !sequence.Valid(id) {
			stats.invalid++
			entry.Warn("skip malformed order id")
			continue
		}

		if _, err := reader.GetByOrderNumber(ctx, id); err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				stats.missing++
				entry.Warn("skip unknown order")
				continue
			}
			return stats, fmt.Errorf("lookup order %s: %w", id, err)
		}

		if !cfg.execute {
			stats.delivered++
			entry.Info("redelivery candidate")
			continue
		}

		deliverCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		err := transport.Deliver(deliverCtx, domain.CompletionEvent{OrderID: id})
		cancel()
		if err != nil {
			stats.failed++
			entry.WithError(err).WithField("transport", transport.Name()).Error("redelivery failed")
			continue
		}
		stats.delivered++
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.processed,
		"delivered": stats.delivered,
		"invalid":   stats.invalid,
		"missing":   stats.missing,
		"failed":    stats.failed,
	}).Info("completion redelivery finished")

	return stats, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
