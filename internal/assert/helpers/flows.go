package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/builder"
)

// EchoOperation returns its text input as the text output. It fails when
// the text is "fail"
func EchoOperation() *builder.Operation {
	return builder.NewOperation("echo").
		Input("text", "").
		WithScript("return { text = text }").
		Output("text", nil).
		Result(api.ResultFailure, "${text == 'fail'}").
		Result(api.ResultSuccess, nil)
}

// EchoFlow echoes its required input1 through a single task
func EchoFlow() *builder.Flow {
	return builder.NewFlow("echo_flow").
		RequiredInput("input1").
		WithTask(RoutedTask("echo_task", "echo").
			Arg("text", "${input1}").
			Publish("text", nil)).
		Output("text", nil)
}

// RoutedTask navigates the standard results of ref straight to the flow
// results of the same name
func RoutedTask(name, ref api.Name) *builder.Task {
	return builder.NewTask(name, ref).
		Navigate(api.ResultSuccess, api.ResultSuccess).
		Navigate(api.ResultFailure, api.ResultFailure)
}

// MustCompile compiles and registers an executable, failing the test on
// error
func (env *TestEngineEnv) MustCompile(
	t *testing.T, exe api.Executable, deps ...api.Executable,
) *api.CompilationArtifact {
	t.Helper()
	art, err := env.Engine.Compile(exe, deps...)
	require.NoError(t, err)
	return art
}
