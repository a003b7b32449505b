package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/builder"
)

func TestArgument(t *testing.T) {
	arg := builder.NewArgument("password").
		WithExpression("get_sp('db.password')").
		WithFunctions(api.FunctionGetSystemProperty).
		Private().
		Sensitive().
		Required().
		WithPrompt("Enter password").
		Build()

	assert.Equal(t, api.Name("password"), arg.Name)
	assert.Equal(t, "${get_sp('db.password')}", arg.Value)
	assert.True(t, arg.Private)
	assert.True(t, arg.Sensitive)
	assert.True(t, arg.Required)
	assert.Equal(t, "Enter password", arg.Prompt.Message)
	assert.Equal(t,
		[]api.ScriptFunction{api.FunctionGetSystemProperty}, arg.Functions,
	)
}

func TestArgumentCopyOnWrite(t *testing.T) {
	base := builder.NewArgument("x").WithValue(1)
	sensitive := base.Sensitive()

	assert.False(t, base.Build().Sensitive)
	assert.True(t, sensitive.Build().Sensitive)
	assert.Equal(t, 1, sensitive.Build().Value)
}

func TestFlow(t *testing.T) {
	flow := builder.NewFlow("deploy").
		RequiredInput("host").
		Input("port", 22).
		WithTask(
			builder.NewTask("check", "ping").
				PassArg("host").
				Arg("retries", "${3}").
				Publish("latency", nil).
				Navigate(api.ResultSuccess, api.ResultSuccess).
				Navigate(api.ResultFailure, api.ResultFailure),
		).
		Output("latency", nil).
		SensitiveOutput("token", "${latency}").
		Build()

	assert.Equal(t, api.Name("deploy"), flow.Name)
	assert.Len(t, flow.Inputs, 2)
	assert.True(t, flow.Inputs[0].Required)
	assert.Equal(t, 22, flow.Inputs[1].Value)
	assert.Equal(t, api.DefaultResults, flow.DeclaredResults())

	task := flow.Tasks[0]
	assert.Equal(t, api.Name("ping"), task.Ref)
	assert.False(t, task.Pre.Arguments[0].Private)
	assert.True(t, task.Pre.Arguments[1].Private)
	assert.Len(t, task.Post.Navigation, 2)
	assert.Nil(t, task.Post.BreakOn)
	assert.False(t, task.IsLoop())

	assert.False(t, flow.Outputs[0].Sensitive)
	assert.True(t, flow.Outputs[1].Sensitive)
}

func TestFlowCopyOnWrite(t *testing.T) {
	base := builder.NewFlow("f").Input("a", 1)
	one := base.Input("b", 2)
	two := base.Input("c", 3)

	assert.Len(t, base.Build().Inputs, 1)
	assert.Equal(t, api.Name("b"), one.Build().Inputs[1].Name)
	assert.Equal(t, api.Name("c"), two.Build().Inputs[1].Name)

	withResults := base.WithResults("DONE")
	assert.Equal(t, []api.Name{"DONE"}, withResults.Build().Results)
	assert.Nil(t, base.Build().Results)
}

func TestTaskLoop(t *testing.T) {
	base := builder.NewTask("each", "op").
		Navigate(api.ResultSuccess, api.ResultSuccess)
	loop := base.Loop("item", "${items}").BreakOn()

	task := loop.Build()
	assert.True(t, task.IsLoop())
	assert.Equal(t, api.Name("item"), task.Pre.Loop.VarName)
	assert.Equal(t, "${items}", task.Pre.Loop.CollectionExpression)
	assert.Empty(t, task.BreakOn())
	assert.NotNil(t, task.Post.BreakOn)

	assert.False(t, base.Build().IsLoop())

	withFailure := base.Navigate(api.ResultFailure, "each")
	assert.Len(t, withFailure.Build().Post.Navigation, 2)
	assert.Len(t, base.Build().Post.Navigation, 1)
}

func TestOperation(t *testing.T) {
	op := builder.NewOperation("add").
		RequiredInput("a").
		Input("b", 1).
		WithScript("return { sum = a + b }").
		Output("sum", nil).
		Result("BIG", "${sum > 100}").
		Result(api.ResultSuccess, nil).
		Build()

	assert.Equal(t, "return { sum = a + b }", op.Action.Script)
	assert.Empty(t, op.Action.Handler)
	assert.Equal(t, []api.Name{"BIG", api.ResultSuccess}, op.DeclaredResults())

	handled := builder.NewOperation("h").WithHandler("fetch").Build()
	assert.Equal(t, api.Name("fetch"), handled.Action.Handler)
	assert.Empty(t, handled.Action.Script)
}
