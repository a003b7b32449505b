package builder

import (
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Argument builds an api.Argument
type Argument struct {
	prompt    *api.Prompt
	value     any
	name      api.Name
	functions []api.ScriptFunction
	sensitive bool
	private   bool
	required  bool
}

// NewArgument creates an argument builder with the specified name
func NewArgument(name api.Name) *Argument {
	return &Argument{name: name}
}

// WithValue sets the argument's default or literal value, which may be an
// expression of the form ${...}
func (a *Argument) WithValue(value any) *Argument {
	res := *a
	res.value = value
	return &res
}

// WithExpression sets the argument's value to the expression
func (a *Argument) WithExpression(expr string) *Argument {
	return a.WithValue("${" + expr + "}")
}

// Private marks the argument as bound only from its own value, ignoring
// any same-named value supplied by the caller
func (a *Argument) Private() *Argument {
	res := *a
	res.private = true
	return &res
}

func (a *Argument) Required() *Argument {
	res := *a
	res.required = true
	return &res
}

func (a *Argument) Sensitive() *Argument {
	res := *a
	res.sensitive = true
	return &res
}

func (a *Argument) WithPrompt(message string) *Argument {
	res := *a
	res.prompt = &api.Prompt{Message: message}
	return &res
}

// WithFunctions declares the helper functions the argument's expression
// may call
func (a *Argument) WithFunctions(fns ...api.ScriptFunction) *Argument {
	res := *a
	res.functions = append(slices.Clone(a.functions), fns...)
	return &res
}

func (a *Argument) Build() *api.Argument {
	var prompt *api.Prompt
	if a.prompt != nil {
		p := *a.prompt
		prompt = &p
	}
	return &api.Argument{
		Name:      a.name,
		Value:     a.value,
		Sensitive: a.sensitive,
		Private:   a.private,
		Required:  a.required,
		Prompt:    prompt,
		Functions: slices.Clone(a.functions),
	}
}

func buildArguments(args []*Argument) []*api.Argument {
	res := make([]*api.Argument, len(args))
	for i, a := range args {
		res[i] = a.Build()
	}
	return res
}
