package sessiond

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	completer Completer

	openaiAPIKey  string
	openaiBaseURL string
	openaiModel   string

	defaultTimeLimit   time.Duration
	defaultTokenBudget int
	systemPrompt       string
	maxMessageLength   int
	reservationTTL     time.Duration
	sweepInterval      time.Duration
	retention          time.Duration

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithOpenAI wires an OpenAI-compatible completion provider. baseURL can be
// empty for the default endpoint.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiAPIKey = apiKey
		c.openaiBaseURL = baseURL
		c.openaiModel = model
	})
}

// WithCompleter sets a custom completion provider. Takes precedence over
// WithOpenAI.
func WithCompleter(comp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = comp
	})
}

// WithDefaults sets the budgets applied when SessionParams leaves them zero.
// Defaults: 1 hour and 50000 tokens.
func WithDefaults(timeLimit time.Duration, tokenBudget int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTimeLimit = timeLimit
		c.defaultTokenBudget = tokenBudget
	})
}

// WithSystemPrompt sets the system prompt prepended to every exchange.
func WithSystemPrompt(prompt string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = prompt
	})
}

// WithReservationTTL sets how long an unsettled token reservation survives
// before the sweeper releases it. Default: 5 minutes.
func WithReservationTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.reservationTTL = ttl
	})
}

// WithSweepInterval sets how often idle sessions are checked for expiry.
// Default: 30 seconds.
func WithSweepInterval(interval time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sweepInterval = interval
	})
}

// WithRetention bounds how long terminal sessions and their trails are kept.
// Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retention = d
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
