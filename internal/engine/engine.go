package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bilalinamdar/cloud-slang/internal/binding"
	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/internal/script"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

type (
	// Engine compiles executables and runs their plans
	Engine struct {
		ctx      context.Context
		hub      EventHub
		eval     script.Evaluator
		metrics  Metrics
		config   *config.Config
		binder   *binding.Binder
		cancel   context.CancelFunc
		clock    Clock
		handlers map[api.Name]Handler
		catalog  map[api.Name]*api.CompilationArtifact
		wg       sync.WaitGroup
		runs     sync.Map // map[api.RunID]*run
		mu       sync.RWMutex
	}

	// EventHub receives the events of every run
	EventHub interface {
		Publish(*api.Event)
	}

	// Metrics records engine activity
	Metrics interface {
		CompileFinished(err error)
		RunStarted()
		RunFinished(status api.RunStatus, d time.Duration)
		StepExecuted(kind api.StepKind)
		TaskFinished(result api.Name)
	}

	// Clock provides the current time for event timestamps and run timing
	Clock func() time.Time

	noopHub     struct{}
	noopMetrics struct{}
)

var (
	ErrShutdownTimeout  = errors.New("shutdown timeout exceeded")
	ErrEngineStopped    = errors.New("engine stopped")
	ErrNoArtifact       = errors.New("an artifact is required")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrRunNotFound      = errors.New("run not found")
	ErrRunCancelled     = errors.New("run cancelled")
	ErrMaxSteps         = errors.New("maximum step count exceeded")
	ErrMissingPlan      = errors.New("executable has no plan in artifact")
	ErrInvalidStep      = errors.New("invalid step")
	ErrUnknownHandler   = errors.New("action handler not registered")
	ErrActionFailed     = errors.New("action failed")
)

// New creates an engine evaluating expressions with eval and publishing
// run events to hub
func New(
	cfg *config.Config, eval script.Evaluator, hub EventHub, opts ...Option,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		eval:     eval,
		binder:   binding.New(eval, cfg),
		hub:      hub,
		metrics:  noopMetrics{},
		clock:    time.Now,
		handlers: map[api.Name]Handler{},
		catalog:  map[api.Name]*api.CompilationArtifact{},
	}
	if hub == nil {
		e.hub = noopHub{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stop cancels every active run and waits for them to wind down
func (e *Engine) Stop() error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Engine stopped")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// Now returns the current time from the engine's clock
func (e *Engine) Now() time.Time {
	return e.clock()
}

func (e *Engine) publish(id api.RunID, typ api.EventType, data any) {
	e.hub.Publish(&api.Event{
		Type:      typ,
		RunID:     id,
		Timestamp: e.clock(),
		Data:      data,
	})
}

func (noopHub) Publish(*api.Event) {}

func (noopMetrics) CompileFinished(error)                    {}
func (noopMetrics) RunStarted()                              {}
func (noopMetrics) RunFinished(api.RunStatus, time.Duration) {}
func (noopMetrics) StepExecuted(api.StepKind)                {}
func (noopMetrics) TaskFinished(api.Name)                    {}
