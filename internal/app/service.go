// Package service assembles the interview service from configuration: store,
// model client, locks, event dispatch and the live interview registry.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/codevoice/internal/adapters/llm"
	"github.com/okian/codevoice/internal/adapters/lock"
	eventqueue "github.com/okian/codevoice/internal/adapters/mq/queue"
	"github.com/okian/codevoice/internal/adapters/mq/sink"
	workerpool "github.com/okian/codevoice/internal/adapters/mq/worker"
	"github.com/okian/codevoice/internal/adapters/repository"
	"github.com/okian/codevoice/internal/config"
	"github.com/okian/codevoice/internal/domain/dedupe"
	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/ledger"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/policy"
	"github.com/okian/codevoice/internal/domain/questions"
	"github.com/okian/codevoice/internal/domain/scoring"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

const (
	lockTTL             = 10 * time.Second
	queueReportInterval = 5 * time.Second
	deliverTimeout      = 5 * time.Second
)

// Service owns every long-lived component of the interview service.
type Service struct {
	mu sync.Mutex

	cfg    *config.Config
	logger logger.Logger

	store     repository.Store
	completer llm.Completer
	sinks     []workerpool.Sink
	closers   []func() error

	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	ledger   *ledger.Ledger
	bank     *questions.Bank
	deduper  dedupe.Deduper
	deps     interview.Deps
	registry *interview.Registry

	started bool
	cancel  context.CancelFunc
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the configured store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCompleter replaces the configured model client.
func WithCompleter(c llm.Completer) Option {
	return func(s *Service) {
		s.completer = c
	}
}

// WithSinks adds event sinks next to the configured ones.
func WithSinks(sinks ...workerpool.Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// New constructs a Service; nothing is connected until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Start connects the store and brokers, seeds the bank and starts dispatch.
// On error everything opened so far is closed again.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting interview service...")
	defer func() {
		if err != nil {
			if s.cancel != nil {
				s.cancel()
			}
			s.closeAll(ctx)
		}
	}()

	if err := s.openStore(ctx); err != nil {
		return err
	}
	if err := s.openCompleter(); err != nil {
		return err
	}
	locker, err := s.openLocker(ctx)
	if err != nil {
		return err
	}
	if err := s.openSinks(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	dispatchLog := s.logger.Named("dispatch")
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.EventQueueSize),
		eventqueue.WithOnDrop(func(e eventqueue.Event) {
			dispatchLog.Warn(runCtx, "event dropped",
				logger.String("type", string(e.Type)),
				logger.String("session_id", e.SessionID))
		}),
	)
	metrics.UpdateQueueCapacity(s.cfg.EventQueueSize)
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.sinks, dispatchLog,
		workerpool.WithDeliverTimeout(deliverTimeout))
	s.pool.Start(runCtx)
	go s.reportQueue(runCtx)

	s.ledger = ledger.New(s.store,
		ledger.WithLocker(locker),
		ledger.WithPublisher(s.queue),
		ledger.WithLogger(s.logger.Named("ledger")),
	)
	s.bank = questions.New(s.store, questions.WithLogger(s.logger.Named("questions")))
	if s.cfg.QuestionsFile != "" {
		if _, err := s.bank.Seed(ctx, s.cfg.QuestionsFile); err != nil {
			return err
		}
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.deps = interview.Deps{
		Ledger:    s.ledger,
		Questions: s.bank,
		Evaluator: scoring.NewLLMEvaluator(s.completer,
			scoring.WithTemperature(s.cfg.EvaluationTemperature),
			scoring.WithLogger(s.logger.Named("scoring"))),
		Policy: policy.New(s.completer,
			policy.WithTemperature(s.cfg.ResponseTemperature),
			policy.WithLogger(s.logger.Named("policy"))),
	}
	s.registry = interview.NewRegistry(s.NewInterview, s.logger.Named("interviews"))

	s.started = true
	s.logger.Info(ctx, "interview service started",
		logger.String("store", s.cfg.StoreDriver),
		logger.Bool("llm_disabled", s.cfg.LLMDisabled),
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_size", s.cfg.EventQueueSize),
		logger.Int("max_questions", s.cfg.MaxQuestions),
	)
	return nil
}

// Stop abandons live interviews, drains queued events and closes connections.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping interview service...")

	var errs []error
	if err := s.registry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	s.closeAll(ctx)

	s.started = false
	s.logger.Info(ctx, "interview service stopped")
	return errors.Join(errs...)
}

// NewInterview returns an Orchestrator wired to the service's components.
// The caller owns it; the Registry uses it for HTTP sessions.
func (s *Service) NewInterview() *interview.Orchestrator {
	return interview.New(s.deps,
		interview.WithMaxQuestions(s.cfg.MaxQuestions),
		interview.WithMaxFollowUps(s.cfg.MaxFollowUps),
		interview.WithDefaults(model.Difficulty(s.cfg.DefaultDifficulty), s.cfg.DefaultTopic),
		interview.WithDeduper(s.deduper),
		interview.WithLogger(s.logger.Named("interview")),
	)
}

// Interviews returns the live interview registry.
func (s *Service) Interviews() *interview.Registry { return s.registry }

// Ledger returns the session ledger.
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

// Bank returns the question bank.
func (s *Service) Bank() *questions.Bank { return s.bank }

// Started reports whether Start completed.
func (s *Service) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		return nil
	}
	switch s.cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := repository.OpenMySQL(s.cfg.DBDSN)
		if err != nil {
			return err
		}
		gs := repository.NewGormStore(db, repository.WithLogger(s.logger.Named("store")))
		s.closers = append(s.closers, gs.Close)
		if err := gs.Migrate(ctx); err != nil {
			return err
		}
		s.store = gs
	default:
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("store")))
	}
	return nil
}

func (s *Service) openCompleter() error {
	if s.completer != nil {
		return nil
	}
	if s.cfg.LLMDisabled {
		s.logger.Warn(context.Background(), "language model disabled; every answer will be scored 0")
		s.completer = llm.Disabled{}
		return nil
	}
	client, err := llm.NewOpenAI(s.cfg.LLMBaseURL, s.cfg.LLMAPIKey,
		llm.WithModel(s.cfg.LLMModel),
		llm.WithMaxTokens(s.cfg.LLMMaxTokens),
		llm.WithTimeout(s.cfg.LLMTimeout()),
		llm.WithLogger(s.logger.Named("llm")),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	s.completer = llm.NewRetrying(client, s.cfg.LLMMaxRetries, s.logger.Named("llm"))
	return nil
}

func (s *Service) openLocker(ctx context.Context) (lock.Locker, error) {
	if s.cfg.RedisAddr == "" {
		return lock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	s.closers = append(s.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", s.cfg.RedisAddr, err)
	}
	s.logger.Info(ctx, "using redis session locks", logger.String("addr", s.cfg.RedisAddr))
	return lock.NewRedis(client, lockTTL), nil
}

func (s *Service) openSinks() error {
	s.sinks = append(s.sinks, sink.NewLog(s.logger.Named("events")))
	if s.cfg.AMQPURL == "" {
		return nil
	}
	pub, err := sink.DialAMQP(s.cfg.AMQPURL, s.cfg.AMQPExchange)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, pub.Close)
	s.sinks = append(s.sinks, pub)
	return nil
}

// closeAll runs closers in reverse order of opening.
func (s *Service) closeAll(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn(ctx, "close failed", logger.Error(err))
		}
	}
	s.closers = nil
}

func (s *Service) reportQueue(ctx context.Context) {
	ticker := time.NewTicker(queueReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(s.queue.Len(ctx))
		}
	}
}
