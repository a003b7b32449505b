package engine

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/bilalinamdar/cloud-slang/internal/compiler"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

// Compile compiles exe against its dependencies and registers the artifact
// under the executable's name, replacing any earlier registration
func (e *Engine) Compile(
	exe api.Executable, deps ...api.Executable,
) (*api.CompilationArtifact, error) {
	art, err := compiler.Compile(exe, deps)
	e.metrics.CompileFinished(err)
	if err != nil {
		slog.Warn("Compilation failed",
			log.Error(err))
		return nil, err
	}

	e.Register(art)
	slog.Info("Artifact compiled",
		log.Executable(art.ExecutionPlan().Executable),
		slog.Int("dependencies", len(art.DependencyNames())))
	return art, nil
}

// Register makes an artifact available by its entry executable's name
func (e *Engine) Register(art *api.CompilationArtifact) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog[art.ExecutionPlan().Executable] = art
}

// Artifact returns a registered artifact
func (e *Engine) Artifact(name api.Name) (*api.CompilationArtifact, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	art, ok := e.catalog[name]
	return art, ok
}

// Artifacts returns the names of the registered artifacts in order
func (e *Engine) Artifacts() []api.Name {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.catalog))
}
