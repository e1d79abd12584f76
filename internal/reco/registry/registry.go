// Package registry tracks, for one event, which collection is current for
// each logical role.
//
// A Registry is created per event and handed to stages explicitly; there
// is no package-level instance. Stages see the registry only through a
// View restricted to the roles they declare.
package registry

import (
	"fmt"
	"slices"

	"github.com/banshee-data/hzz.report/internal/reco"
)

// Role is the logical name of a collection slot.
type Role string

const (
	Vertices     Role = "vertices"
	Electrons    Role = "electrons"
	Muons        Role = "muons"
	Jets         Role = "jets"
	FSR          Role = "fsr"
	PFCandidates Role = "pfCandidates"
)

// Handle is a produced collection: *reco.Collection or *reco.VertexCollection.
type Handle interface {
	Producer() string
	Len() int
}

type entry struct {
	handle  Handle
	version int
}

// Registry maps each role to its current handle. It is not safe for
// concurrent use; events are processed by one goroutine at a time.
type Registry struct {
	entries map[Role]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[Role]entry)}
}

// Get returns the current handle for role.
func (r *Registry) Get(role Role) (Handle, error) {
	e, ok := r.entries[role]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", role, reco.ErrUnknownRole)
	}
	return e.handle, nil
}

// Set makes h the current handle for role.
func (r *Registry) Set(role Role, h Handle) error {
	return r.SetAll(map[Role]Handle{role: h})
}

// SetAll replaces several roles at once. Either every role is updated or,
// if any handle is nil, none is.
func (r *Registry) SetAll(handles map[Role]Handle) error {
	for role, h := range handles {
		if isNil(h) {
			return fmt.Errorf("role %q: nil handle: %w", role, reco.ErrMissingInput)
		}
	}
	for role, h := range handles {
		e := r.entries[role]
		r.entries[role] = entry{handle: h, version: e.version + 1}
	}
	return nil
}

// Candidates returns the current candidate collection for role.
func (r *Registry) Candidates(role Role) (*reco.Collection, error) {
	h, err := r.Get(role)
	if err != nil {
		return nil, err
	}
	c, ok := h.(*reco.Collection)
	if !ok {
		return nil, fmt.Errorf("role %q holds %T, not a candidate collection: %w", role, h, reco.ErrMissingInput)
	}
	return c, nil
}

// Vertices returns the current vertex collection for role.
func (r *Registry) Vertices(role Role) (*reco.VertexCollection, error) {
	h, err := r.Get(role)
	if err != nil {
		return nil, err
	}
	v, ok := h.(*reco.VertexCollection)
	if !ok {
		return nil, fmt.Errorf("role %q holds %T, not a vertex collection: %w", role, h, reco.ErrMissingInput)
	}
	return v, nil
}

// Producer returns the producer label of the current handle for role, or
// "" if the role is unset.
func (r *Registry) Producer(role Role) string {
	if e, ok := r.entries[role]; ok {
		return e.handle.Producer()
	}
	return ""
}

// Version counts how many times role has been set (0 if never).
func (r *Registry) Version(role Role) int {
	return r.entries[role].version
}

// Roles returns the registered roles in sorted order.
func (r *Registry) Roles() []Role {
	roles := make([]Role, 0, len(r.entries))
	for role := range r.entries {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// View restricts access to the declared read and write roles.
func (r *Registry) View(reads, writes []Role) *View {
	return &View{reg: r, reads: slices.Clone(reads), writes: slices.Clone(writes)}
}

// View is a stage's window onto the registry.
type View struct {
	reg    *Registry
	reads  []Role
	writes []Role
}

func (v *View) checkRead(role Role) error {
	if !slices.Contains(v.reads, role) {
		return fmt.Errorf("role %q not declared as input: %w", role, reco.ErrUnknownRole)
	}
	return nil
}

// Candidates reads a declared candidate role.
func (v *View) Candidates(role Role) (*reco.Collection, error) {
	if err := v.checkRead(role); err != nil {
		return nil, err
	}
	return v.reg.Candidates(role)
}

// Vertices reads a declared vertex role.
func (v *View) Vertices(role Role) (*reco.VertexCollection, error) {
	if err := v.checkRead(role); err != nil {
		return nil, err
	}
	return v.reg.Vertices(role)
}

// Set replaces a declared output role.
func (v *View) Set(role Role, h Handle) error {
	return v.SetAll(map[Role]Handle{role: h})
}

// SetAll replaces several declared output roles atomically.
func (v *View) SetAll(handles map[Role]Handle) error {
	for role := range handles {
		if !slices.Contains(v.writes, role) {
			return fmt.Errorf("role %q not declared as output: %w", role, reco.ErrUnknownRole)
		}
	}
	return v.reg.SetAll(handles)
}

func isNil(h Handle) bool {
	switch c := h.(type) {
	case nil:
		return true
	case *reco.Collection:
		return c == nil
	case *reco.VertexCollection:
		return c == nil
	}
	return false
}
