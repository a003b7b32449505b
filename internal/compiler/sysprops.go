package compiler

import (
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// System property names are gathered from every get_sp('...') literal in
// the expressions a plan carries

func (b *builder) collectArguments(args []*api.Argument) {
	for _, a := range args {
		b.collectValue(a.Value)
		if a.Prompt != nil {
			b.collectValue(a.Prompt.Message)
		}
	}
}

func (b *builder) collectOutputs(outs []*api.Output) {
	for _, o := range outs {
		b.collectValue(o.Value)
	}
}

func (b *builder) collectValue(raw any) {
	s, ok := raw.(string)
	if !ok {
		return
	}
	expr, ok := api.ExtractExpression(s)
	if !ok {
		expr = s
	}
	for _, name := range api.ReferencedSystemProperties(expr) {
		b.sysProps.Add(name)
	}
}
