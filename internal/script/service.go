package script

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/util"
)

type (
	// Evaluator is the expression evaluation service used by bindings and
	// by the engine for operation actions. Implementations must be safe for
	// concurrent use by independent runs
	Evaluator interface {
		// Evaluate computes an expression against a context. The returned
		// value is sensitive if any variable the expression read was
		Evaluate(req *Request) (*api.Value, error)

		// Execute runs an action script with the given inputs and returns
		// the values it produced
		Execute(script string, inputs api.Context) (api.Args, error)
	}

	// Request describes one expression evaluation
	Request struct {
		Context    api.Context
		Props      api.SystemProperties
		Expression string
		Functions  []api.ScriptFunction
	}

	// Backend is a scripting language able to evaluate expressions with
	// access tracking
	Backend interface {
		Evaluate(
			expr string, ctx api.Context, props api.SystemProperties,
			fns util.Set[api.ScriptFunction],
		) (any, *Accessed, error)

		Execute(script string, inputs api.Args) (api.Args, error)
	}

	// Accessed records what an evaluation read
	Accessed struct {
		Names util.Set[api.Name]
		Props util.Set[string]
	}

	// EvaluationError reports a failed expression, carrying a bounded
	// rendering of the expression text
	EvaluationError struct {
		Err        error
		Expression string
		usageHint  bool
	}

	// Service is the Evaluator backed by the configured language
	Service struct {
		backend   Backend
		maxExpLen int
	}
)

const (
	truncationSuffix = "..."
	getSPUsageHint   = ". Make sure to use correct syntax for the " +
		"function: get_sp('fully.qualified.name', optional_default_value)."
)

var (
	ErrEvaluation       = errors.New("expression evaluation failed")
	ErrUnknownFunction  = errors.New("unknown script function")
	ErrUnsupportedInAle = errors.New("script functions unsupported by ale")
	ErrUnknownBackend   = errors.New("unknown expression backend")
	ErrScriptPanicked   = errors.New("script panicked")
)

var knownFunctions = util.SetOf(
	api.FunctionGetSystemProperty, api.FunctionCheckEmpty,
)

// NewService creates the evaluation service for the backend named in cfg
func NewService(cfg *config.Config) (*Service, error) {
	var backend Backend
	switch cfg.ExpressionBackend {
	case config.BackendLua:
		backend = NewLuaEnv(cfg.ScriptCacheSize)
	case config.BackendAle:
		backend = NewAleEnv(cfg.ScriptCacheSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend,
			cfg.ExpressionBackend)
	}
	return NewServiceWithBackend(backend, cfg.MaxExpressionLength), nil
}

// NewServiceWithBackend wraps an explicit backend
func NewServiceWithBackend(b Backend, maxExpressionLength int) *Service {
	return &Service{
		backend:   b,
		maxExpLen: maxExpressionLength,
	}
}

// Evaluate implements Evaluator
func (s *Service) Evaluate(req *Request) (*api.Value, error) {
	fns := util.SetOf(req.Functions...)
	for fn := range fns {
		if !knownFunctions.Contains(fn) {
			return nil, s.evaluationError(req.Expression,
				fmt.Errorf("%w: %s", ErrUnknownFunction, fn))
		}
	}

	raw, acc, err := s.backend.Evaluate(
		req.Expression, req.Context, req.Props, fns,
	)
	if err != nil {
		ee := s.evaluationError(req.Expression, err)
		ee.usageHint = missingGetSP(req.Expression, fns, err)
		return nil, ee
	}
	return api.MakeValue(raw, acc.sensitive(req.Context, req.Props)), nil
}

// Execute implements Evaluator
func (s *Service) Execute(script string, inputs api.Context) (api.Args, error) {
	res, err := s.backend.Execute(script, inputs.Raw())
	if err != nil {
		return nil, s.evaluationError(script, err)
	}
	return res, nil
}

func (s *Service) evaluationError(expr string, err error) *EvaluationError {
	return &EvaluationError{
		Expression: Truncate(expr, s.maxExpLen),
		Err:        err,
	}
}

func (e *EvaluationError) Error() string {
	msg := e.Err.Error()
	if e.usageHint {
		msg += getSPUsageHint
	}
	return fmt.Sprintf("Error in evaluating expression: '%s',\n\t%s",
		e.Expression, msg)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluation, e.Err}
}

// missingGetSP reports whether an evaluation failed because get_sp was
// called without being available
func missingGetSP(
	expr string, fns util.Set[api.ScriptFunction], err error,
) bool {
	fn := string(api.FunctionGetSystemProperty)
	msg := err.Error()
	undefined := strings.Contains(msg, "not defined") ||
		strings.Contains(msg, "nil value")
	if !undefined {
		return false
	}
	if strings.Contains(msg, fn) {
		return true
	}
	return !fns.Contains(api.FunctionGetSystemProperty) &&
		strings.Contains(expr, fn+"(")
}

// Truncate bounds s to limit bytes, marking the cut with an ellipsis
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + truncationSuffix
}

func newAccessed() *Accessed {
	return &Accessed{
		Names: util.Set[api.Name]{},
		Props: util.Set[string]{},
	}
}

// SortedNames returns the context variables read, in lexical order
func (a *Accessed) SortedNames() []api.Name {
	return util.Sorted(a.Names)
}

func (a *Accessed) sensitive(
	ctx api.Context, props api.SystemProperties,
) bool {
	if a == nil {
		return false
	}
	for n := range a.Names {
		if ctx[n].IsSensitive() {
			return true
		}
	}
	for p := range a.Props {
		if props[p].IsSensitive() {
			return true
		}
	}
	return false
}

func hashScript(src string, names ...string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(src))
	for _, n := range names {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(n))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedFunctions(fns util.Set[api.ScriptFunction]) []string {
	res := make([]string, 0, len(fns))
	for fn := range fns {
		res = append(res, string(fn))
	}
	slices.Sort(res)
	return res
}

func catchPanic[T any](baseErr error, fn func() (T, error)) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if ok {
			err = fmt.Errorf("%w: %w", baseErr, e)
			return
		}
		err = fmt.Errorf("%w: %v", baseErr, r)
	}()
	return fn()
}
