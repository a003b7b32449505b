package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"

	"github.com/bilalinamdar/cloud-slang/internal/util"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	pkgutil "github.com/bilalinamdar/cloud-slang/pkg/util"
)

type (
	// AleEnv evaluates Ale expressions and action scripts. Access tracking
	// is lexical: a context variable counts as read when its symbol appears
	// in the expression
	AleEnv struct {
		env   *env.Environment
		cache *util.CompileCache[data.Procedure]
	}
)

const (
	aleLambdaTemplate = "(lambda (%s) %s)"
	aleResultKey      = "result"
)

var (
	ErrAleNotProcedure = errors.New("not a procedure")
	ErrAleCompile      = errors.New("script compile error")
	ErrAleCall         = errors.New("error calling procedure")
)

var aleSymbol = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)

// NewAleEnv creates an Ale environment caching up to cacheSize compiled
// procedures
func NewAleEnv(cacheSize int) *AleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	return &AleEnv{
		env:   e,
		cache: util.NewCompileCache[data.Procedure](cacheSize),
	}
}

// Evaluate calls the expression as the body of a procedure taking every
// symbol-shaped context variable as a parameter
func (e *AleEnv) Evaluate(
	expr string, ctx api.Context, _ api.SystemProperties,
	fns pkgutil.Set[api.ScriptFunction],
) (any, *Accessed, error) {
	if !fns.IsEmpty() {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedInAle,
			strings.Join(sortedFunctions(fns), ", "))
	}

	var names []string
	for _, n := range ctx.Names() {
		if aleSymbol.MatchString(string(n)) {
			names = append(names, string(n))
		}
	}

	proc, err := e.procedure(expr, names)
	if err != nil {
		return nil, nil, err
	}

	args := make(data.Vector, len(names))
	for i, n := range names {
		args[i] = goToAle(ctx[api.Name(n)].Raw())
	}

	res, err := callProcedure(proc, args)
	if err != nil {
		return nil, nil, err
	}

	acc := newAccessed()
	for sym := range aleSymbols(expr) {
		if _, ok := ctx[api.Name(sym)]; ok {
			acc.Names.Add(api.Name(sym))
		}
	}
	return aleToGo(res), acc, nil
}

// Execute runs an action script with each input bound to a parameter of
// the same name. An object result becomes the outputs; any other value is
// returned under "result"
func (e *AleEnv) Execute(script string, inputs api.Args) (api.Args, error) {
	names := make([]string, 0, len(inputs))
	args := make(data.Vector, 0, len(inputs))
	for _, n := range inputs.SortedNames() {
		names = append(names, string(n))
		args = append(args, goToAle(inputs[n]))
	}

	proc, err := e.procedure(script, names)
	if err != nil {
		return nil, err
	}

	res, err := callProcedure(proc, args)
	if err != nil {
		return nil, err
	}

	value := aleToGo(res)
	m, ok := value.(map[string]any)
	if !ok {
		return api.Args{aleResultKey: value}, nil
	}
	out := make(api.Args, len(m))
	for k, v := range m {
		out[api.Name(k)] = v
	}
	return out, nil
}

func (e *AleEnv) procedure(src string, names []string) (data.Procedure, error) {
	return e.cache.Get(hashScript(src, names...),
		func() (data.Procedure, error) {
			return e.compile(src, names)
		},
	)
}

func (e *AleEnv) compile(script string, names []string) (data.Procedure, error) {
	src := fmt.Sprintf(aleLambdaTemplate, strings.Join(names, " "), script)

	return catchPanic(ErrAleCompile,
		func() (data.Procedure, error) {
			ns := e.env.GetAnonymous()
			res, err := eval.String(ns, data.String(src))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAleCompile, err)
			}

			proc, ok := res.(data.Procedure)
			if !ok {
				return nil, fmt.Errorf("%w, got: %T", ErrAleNotProcedure, res)
			}
			return proc, nil
		},
	)
}

func callProcedure(proc data.Procedure, args data.Vector) (ale.Value, error) {
	return catchPanic(ErrAleCall, func() (ale.Value, error) {
		return proc.Call(args...), nil
	})
}

// aleSymbols returns the symbol tokens of an Ale source, skipping string
// literals and comments
func aleSymbols(src string) pkgutil.Set[string] {
	res := pkgutil.Set[string]{}
	var tok strings.Builder
	flush := func() {
		if tok.Len() > 0 {
			res.Add(tok.String())
			tok.Reset()
		}
	}

	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			flush()
			for i++; i < len(runes) && runes[i] != '"'; i++ {
				if runes[i] == '\\' {
					i++
				}
			}
		case r == ';':
			flush()
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case unicode.IsSpace(r) || strings.ContainsRune("()[]{}'`,@", r):
			flush()
		default:
			tok.WriteRune(r)
		}
	}
	flush()
	return res
}

func goToAle(value any) ale.Value {
	switch v := value.(type) {
	case string:
		return data.String(v)
	case bool:
		return data.Bool(v)
	case int:
		return data.Integer(v)
	case int64:
		return data.Integer(v)
	case float64:
		return data.Float(v)
	case []any:
		vec := make(data.Vector, len(v))
		for i, item := range v {
			vec[i] = goToAle(item)
		}
		return vec
	case map[string]any:
		obj := data.NewObject()
		for k, val := range v {
			pair := data.NewCons(data.Keyword(k), goToAle(val))
			obj = obj.Put(pair).(*data.Object)
		}
		return obj
	case nil:
		return data.Null
	default:
		return data.String(fmt.Sprintf("%v", v))
	}
}

func aleToGo(value ale.Value) any {
	switch v := value.(type) {
	case data.String:
		return string(v)
	case data.Bool:
		return bool(v)
	case data.Keyword:
		return string(v)
	case data.Integer:
		return int(v)
	case data.Float:
		return float64(v)
	case data.Vector:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = aleToGo(item)
		}
		return res
	case *data.List:
		var res []any
		for l := v; !l.IsEmpty(); {
			head, tail, ok := l.Split()
			if !ok {
				break
			}
			res = append(res, aleToGo(head))
			l = tail.(*data.List)
		}
		return res
	case *data.Object:
		res := map[string]any{}
		for _, pair := range v.Pairs() {
			key := fmt.Sprintf("%v", aleToGo(pair.Car()))
			res[key] = aleToGo(pair.Cdr())
		}
		return res
	default:
		if value == data.Null {
			return nil
		}
		return fmt.Sprintf("%v", v)
	}
}
