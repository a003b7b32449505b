package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/internal/engine"
	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/internal/metrics"
	"github.com/bilalinamdar/cloud-slang/internal/script"
)

// TestEngineEnv holds all the components needed for engine testing
type TestEngineEnv struct {
	Engine    *engine.Engine
	EventHub  *events.Hub
	Metrics   *metrics.Metrics
	Config    *config.Config
	Evaluator *script.Service
	Cleanup   func()
}

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// NewTestEngine creates an engine wired to a fresh event hub, metrics
// registry and Lua evaluator
func NewTestEngine(t *testing.T, opts ...engine.Option) *TestEngineEnv {
	t.Helper()
	return NewTestEngineWithConfig(t, NewTestConfig(), opts...)
}

// NewTestEngineWithConfig is NewTestEngine with a caller-supplied
// configuration
func NewTestEngineWithConfig(
	t *testing.T, cfg *config.Config, opts ...engine.Option,
) *TestEngineEnv {
	t.Helper()

	eval, err := script.NewService(cfg)
	require.NoError(t, err)

	hub := events.NewHub()
	m := metrics.New()
	all := append([]engine.Option{engine.WithMetrics(m)}, opts...)
	eng := engine.New(cfg, eval, hub, all...)

	return &TestEngineEnv{
		Engine:    eng,
		EventHub:  hub,
		Metrics:   m,
		Config:    cfg,
		Evaluator: eval,
		Cleanup: func() {
			_ = eng.Stop()
			hub.Close()
		},
	}
}

// WithTestEnv creates a test engine environment, executes the provided
// function with it, and ensures cleanup happens automatically
func WithTestEnv(
	t *testing.T, fn func(*TestEngineEnv), opts ...engine.Option,
) {
	t.Helper()
	env := NewTestEngine(t, opts...)
	defer env.Cleanup()
	fn(env)
}

// WithEngine creates a test engine, executes the provided function with it,
// and ensures cleanup happens automatically
func WithEngine(
	t *testing.T, fn func(*engine.Engine), opts ...engine.Option,
) {
	t.Helper()
	WithTestEnv(t, func(env *TestEngineEnv) {
		fn(env.Engine)
	}, opts...)
}
