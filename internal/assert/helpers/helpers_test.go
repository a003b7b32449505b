package helpers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/internal/assert/helpers"
	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestNewTestConfig(t *testing.T) {
	cfg := helpers.NewTestConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestEchoFlowRuns(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		art := env.MustCompile(t,
			helpers.EchoFlow().Build(), helpers.EchoOperation().Build(),
		)

		w := env.SubscribeToRun()
		defer w.Close()

		ev, err := env.Engine.Trigger(context.Background(), art,
			api.Args{"input1": "hello"}, nil,
		)
		require.NoError(t, err)
		assert.Same(t, ev, w.Next(t))
	})
}

func TestWaiterUntil(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		art := env.MustCompile(t, helpers.EchoOperation().Build())

		w := env.Subscribe(events.FilterTypes(
			api.EventExecutionStarted, api.EventExecutionFinished,
		))
		defer w.Close()

		id, err := env.Engine.Start(art, api.Args{"text": "hi"}, nil)
		require.NoError(t, err)

		evs := w.Until(t, id)
		require.Len(t, evs, 2)
		assert.Equal(t, api.EventExecutionStarted, evs[0].Type)
		assert.Equal(t, api.EventExecutionFinished, evs[1].Type)
	})
}
