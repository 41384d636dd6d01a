package sessiond

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/clock"
	"github.com/proctorly/sessiond/internal/db"
	dbRedis "github.com/proctorly/sessiond/internal/db/redis"
	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
	"github.com/proctorly/sessiond/internal/metrics"
	eventrepo "github.com/proctorly/sessiond/internal/repository/event"
	sessionrepo "github.com/proctorly/sessiond/internal/repository/session"
	transcriptrepo "github.com/proctorly/sessiond/internal/repository/transcript"
	chatuc "github.com/proctorly/sessiond/internal/usecase/chat"
	governoruc "github.com/proctorly/sessiond/internal/usecase/governor"
	healthuc "github.com/proctorly/sessiond/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// Built-in fallbacks applied when the corresponding option is omitted.
const (
	defaultTimeLimit      = time.Hour
	defaultTokenBudget    = 50000
	defaultMaxMessageLen  = 10000
	defaultReservationTTL = 5 * time.Minute
	defaultSweepInterval  = 30 * time.Second
)

// Internal interfaces so tests can substitute the use case layer.
type governorUseCase interface {
	Create(ctx context.Context, p governoruc.CreateParams) (session.Snapshot, error)
	Start(ctx context.Context, id string) (session.Snapshot, error)
	Pause(ctx context.Context, id string) (session.Snapshot, error)
	Resume(ctx context.Context, id string) (session.Snapshot, error)
	Complete(ctx context.Context, id string) (session.Snapshot, error)
	ExtendTime(ctx context.Context, id string, extra time.Duration) (session.Snapshot, error)
	ExtendTokens(ctx context.Context, id string, extra int) (session.Snapshot, error)
	Snapshot(ctx context.Context, id string) (session.Snapshot, error)
	List(ctx context.Context, status session.Status) ([]session.Snapshot, error)
	Events(ctx context.Context, id string) ([]domain.Event, error)
}

type chatUseCase interface {
	Send(ctx context.Context, sessionID, message string) (chatuc.Result, error)
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

// Client is the sessiond SDK entry point.
type Client struct {
	store       db.Store
	governor    governorUseCase
	chat        chatUseCase
	healthSvc   healthUseCase
	logger      *zap.Logger
	stopSweeper context.CancelFunc
}

// New creates a sessiond Client and connects to the database. The provided
// context is used for the initial readiness check. A background sweeper is
// started; Close stops it.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		defaultTimeLimit:   defaultTimeLimit,
		defaultTokenBudget: defaultTokenBudget,
		maxMessageLength:   defaultMaxMessageLen,
		reservationTTL:     defaultReservationTTL,
		sweepInterval:      defaultSweepInterval,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("sessiond: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("sessiond: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("sessiond: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.RegisterSessionMetrics()

	sessRepo := sessionrepo.New(store, cfg.retention)
	eventRepo := eventrepo.New(store, cfg.retention)
	transRepo := transcriptrepo.New(store, cfg.retention)

	clk := clock.System{}
	governor := governoruc.New(sessRepo, eventRepo, clk, governoruc.Defaults{
		TimeLimit:   cfg.defaultTimeLimit,
		TokenBudget: cfg.defaultTokenBudget,
	}, cfg.reservationTTL, logger)

	completer, checker := buildCompleter(cfg, logger)
	chatSvc := chatuc.New(governor, completer, transRepo, clk, cfg.systemPrompt, cfg.maxMessageLength, logger)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go governor.RunSweeper(sweepCtx, cfg.sweepInterval)

	return &Client{
		store:       store,
		governor:    governor,
		chat:        chatSvc,
		healthSvc:   healthuc.New(store, checker),
		logger:      logger,
		stopSweeper: stopSweeper,
	}
}

// Close stops the sweeper and releases all resources.
func (c *Client) Close() {
	if c.stopSweeper != nil {
		c.stopSweeper()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
