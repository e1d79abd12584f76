package pipeline

import (
	"fmt"
	"slices"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/l4association"
	"github.com/banshee-data/hzz.report/internal/reco/registry"
)

// Context is what a stage sees while it runs for one event: its registry
// view, the event scalars and a sink for association diagnostics.
type Context struct {
	view    *registry.View
	rho     float64
	matches []l4association.Match
}

// Candidates reads a declared candidate role.
func (c *Context) Candidates(role registry.Role) (*reco.Collection, error) {
	return c.view.Candidates(role)
}

// Vertices reads a declared vertex role.
func (c *Context) Vertices(role registry.Role) (*reco.VertexCollection, error) {
	return c.view.Vertices(role)
}

// Set replaces a declared output role.
func (c *Context) Set(role registry.Role, h registry.Handle) error {
	return c.view.Set(role, h)
}

// SetAll replaces several declared output roles atomically.
func (c *Context) SetAll(handles map[registry.Role]registry.Handle) error {
	return c.view.SetAll(handles)
}

// Rho returns the event energy density.
func (c *Context) Rho() float64 { return c.rho }

// AddMatches records association claims for the event result.
func (c *Context) AddMatches(m ...l4association.Match) {
	c.matches = append(c.matches, m...)
}

// Config holds the stage sequence of a pipeline.
type Config struct {
	Stages []Stage
}

// ConfigFromTuning returns the default stage sequence built from cfg.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	stages, err := DefaultStages(cfg)
	if err != nil {
		return Config{}, err
	}
	return Config{Stages: stages}, nil
}

// StageStat is one cutflow row: the size of a written role before and
// after a stage.
type StageStat struct {
	Stage string
	Role  registry.Role
	In    int
	Out   int
}

// Result is the outcome of processing one event.
type Result struct {
	EventID  string
	Registry *registry.Registry
	Cutflow  []StageStat
	Matches  []l4association.Match
}

// Candidates returns the final collection of role.
func (r *Result) Candidates(role registry.Role) (*reco.Collection, error) {
	return r.Registry.Candidates(role)
}

// Pipeline runs a fixed stage sequence over events. It is immutable after
// New and safe for concurrent use by multiple goroutines.
type Pipeline struct {
	stages []Stage
}

// New validates every stage and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages: %w", reco.ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(cfg.Stages))
	for i, s := range cfg.Stages {
		if s == nil {
			return nil, fmt.Errorf("stage %d is nil: %w", i, reco.ErrInvalidConfiguration)
		}
		name := s.Name()
		if name == "" || seen[name] {
			return nil, fmt.Errorf("stage %d: name %q empty or duplicated: %w", i, name, reco.ErrInvalidConfiguration)
		}
		seen[name] = true
		if v, ok := s.(validator); ok {
			if err := v.Validate(); err != nil {
				return nil, &reco.StageError{Stage: name, Err: err}
			}
		}
	}
	return &Pipeline{stages: slices.Clone(cfg.Stages)}, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process runs every stage in order on a fresh registry seeded from ev.
// The first failing stage aborts the event with a *reco.StageError.
func (p *Pipeline) Process(ev *Event) (*Result, error) {
	if ev == nil {
		return nil, fmt.Errorf("event: %w", reco.ErrMissingInput)
	}
	reg := registry.New()
	if err := ev.seed(reg); err != nil {
		return nil, err
	}

	res := &Result{EventID: ev.ID(), Registry: reg}
	for _, s := range p.stages {
		before := handleLens(reg, s.Writes())
		ctx := &Context{view: reg.View(s.Reads(), s.Writes()), rho: ev.Rho}
		if err := s.Run(ctx); err != nil {
			opsf("event %s: stage %s failed: %v", res.EventID, s.Name(), err)
			return nil, &reco.StageError{Stage: s.Name(), Err: err}
		}
		after := handleLens(reg, s.Writes())
		for i, role := range s.Writes() {
			res.Cutflow = append(res.Cutflow, StageStat{Stage: s.Name(), Role: role, In: before[i], Out: after[i]})
			tracef("event %s: %s %s %d -> %d", res.EventID, s.Name(), role, before[i], after[i])
		}
		res.Matches = append(res.Matches, ctx.matches...)
	}

	diagf("event %s: %d stages, %d fsr matches", res.EventID, len(p.stages), len(res.Matches))
	return res, nil
}

// handleLens returns the current size of each role, 0 when unset.
func handleLens(reg *registry.Registry, roles []registry.Role) []int {
	lens := make([]int, len(roles))
	for i, role := range roles {
		if h, err := reg.Get(role); err == nil {
			lens[i] = h.Len()
		}
	}
	return lens
}
