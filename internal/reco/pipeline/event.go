package pipeline

import (
	"fmt"
	"slices"

	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/registry"
)

// InputProducer labels the collections seeded from an Event.
const InputProducer = "input"

// Event is the input contract of one collision event. Candidate keys must
// already be assigned; nil slices seed empty collections.
type Event struct {
	Run    uint32
	Lumi   uint32
	Number uint64

	Rho float64 // event energy density used by the electron pileup correction

	Vertices     []reco.Vertex
	Electrons    []*reco.Candidate
	Muons        []*reco.Candidate
	Jets         []*reco.Candidate
	PFCandidates []*reco.Candidate
}

// ID formats the run:lumi:event triple.
func (e *Event) ID() string {
	return fmt.Sprintf("%d:%d:%d", e.Run, e.Lumi, e.Number)
}

// seed registers the event collections as the initial role handles. A nil
// candidate in any input slice rejects the event.
func (e *Event) seed(r *registry.Registry) error {
	for _, in := range []struct {
		role  registry.Role
		items []*reco.Candidate
	}{
		{registry.Electrons, e.Electrons},
		{registry.Muons, e.Muons},
		{registry.Jets, e.Jets},
		{registry.PFCandidates, e.PFCandidates},
	} {
		if i := slices.Index(in.items, nil); i >= 0 {
			return fmt.Errorf("event %s: %s[%d] is nil: %w", e.ID(), in.role, i, reco.ErrMissingInput)
		}
	}
	return r.SetAll(map[registry.Role]registry.Handle{
		registry.Vertices:     reco.NewVertexCollection(InputProducer, e.Vertices),
		registry.Electrons:    reco.NewCollection(InputProducer, e.Electrons),
		registry.Muons:        reco.NewCollection(InputProducer, e.Muons),
		registry.Jets:         reco.NewCollection(InputProducer, e.Jets),
		registry.PFCandidates: reco.NewCollection(InputProducer, e.PFCandidates),
	})
}
