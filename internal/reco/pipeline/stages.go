package pipeline

import (
	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/l1vertices"
	"github.com/banshee-data/hzz.report/internal/reco/l2fsr"
	"github.com/banshee-data/hzz.report/internal/reco/l3leptonid"
	"github.com/banshee-data/hzz.report/internal/reco/l4association"
	"github.com/banshee-data/hzz.report/internal/reco/l5isolation"
	"github.com/banshee-data/hzz.report/internal/reco/l6cleaning"
	"github.com/banshee-data/hzz.report/internal/reco/registry"
)

// Stage names, in default execution order.
const (
	StageVertexCleaning = "vertexCleaning"
	StageFSRPhotons     = "fsrPhotons"
	StagePhotonSelect   = "dretPhotonSelection"
	StageElectronID     = "electronIDEmbedding"
	StageMuonID         = "muonIDEmbedding"
	StageFSRAssociation = "leptonDRETFSREmbedding"
	StageIsolation      = "leptonIsoEmbedding"
	StageJetCleaning    = "jetFSRCleaning"
)

// Stage is one step of the refinement sequence. A stage reads the current
// collections of its declared roles and replaces the roles it writes.
// Implementations must be stateless across events.
type Stage interface {
	Name() string
	Reads() []registry.Role
	Writes() []registry.Role
	Run(ctx *Context) error
}

// validator is implemented by stages whose configuration can be checked
// up front.
type validator interface {
	Validate() error
}

// DefaultStages builds the eight reference stages from cfg.
func DefaultStages(cfg *config.TuningConfig) ([]Stage, error) {
	assoc, err := l4association.ConfigFromTuning(cfg)
	if err != nil {
		return nil, err
	}
	return []Stage{
		&VertexCleaning{Config: l1vertices.ConfigFromTuning(cfg)},
		&FSRPhotons{},
		&PhotonSelection{Config: l2fsr.ConfigFromTuning(cfg)},
		&ElectronID{Config: l3leptonid.ElectronConfigFromTuning(cfg)},
		&MuonID{Config: l3leptonid.MuonConfigFromTuning(cfg)},
		&FSRAssociation{Config: assoc},
		&Isolation{Config: l5isolation.ConfigFromTuning(cfg)},
		&JetCleaning{Config: l6cleaning.ConfigFromTuning(cfg)},
	}, nil
}

func roles(r ...registry.Role) []registry.Role { return r }

// VertexCleaning keeps good primary vertices.
type VertexCleaning struct{ Config l1vertices.Config }

func (s *VertexCleaning) Name() string            { return StageVertexCleaning }
func (s *VertexCleaning) Reads() []registry.Role  { return roles(registry.Vertices) }
func (s *VertexCleaning) Writes() []registry.Role { return roles(registry.Vertices) }
func (s *VertexCleaning) Validate() error         { return s.Config.Validate() }

func (s *VertexCleaning) Run(ctx *Context) error {
	in, err := ctx.Vertices(registry.Vertices)
	if err != nil {
		return err
	}
	out, err := l1vertices.Filter(s.Config, in, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.Vertices, out)
}

// FSRPhotons builds the FSR photon role from PF photons.
type FSRPhotons struct{}

func (s *FSRPhotons) Name() string            { return StageFSRPhotons }
func (s *FSRPhotons) Reads() []registry.Role  { return roles(registry.PFCandidates) }
func (s *FSRPhotons) Writes() []registry.Role { return roles(registry.FSR) }

func (s *FSRPhotons) Run(ctx *Context) error {
	pf, err := ctx.Candidates(registry.PFCandidates)
	if err != nil {
		return err
	}
	out, err := l2fsr.Build(pf, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.FSR, out)
}

// PhotonSelection applies the FSR photon kinematic and isolation cuts.
type PhotonSelection struct{ Config l2fsr.Config }

func (s *PhotonSelection) Name() string            { return StagePhotonSelect }
func (s *PhotonSelection) Reads() []registry.Role  { return roles(registry.FSR) }
func (s *PhotonSelection) Writes() []registry.Role { return roles(registry.FSR) }
func (s *PhotonSelection) Validate() error         { return s.Config.Validate() }

func (s *PhotonSelection) Run(ctx *Context) error {
	in, err := ctx.Candidates(registry.FSR)
	if err != nil {
		return err
	}
	out, err := l2fsr.Select(s.Config, in, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.FSR, out)
}

// ElectronID embeds the electron loose and tight decisions.
type ElectronID struct{ Config l3leptonid.ElectronConfig }

func (s *ElectronID) Name() string { return StageElectronID }
func (s *ElectronID) Reads() []registry.Role {
	return roles(registry.Electrons, registry.Vertices)
}
func (s *ElectronID) Writes() []registry.Role { return roles(registry.Electrons) }
func (s *ElectronID) Validate() error         { return s.Config.Validate() }

func (s *ElectronID) Run(ctx *Context) error {
	electrons, err := ctx.Candidates(registry.Electrons)
	if err != nil {
		return err
	}
	vertices, err := ctx.Vertices(registry.Vertices)
	if err != nil {
		return err
	}
	out, err := l3leptonid.EmbedElectrons(s.Config, electrons, vertices, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.Electrons, out)
}

// MuonID embeds the muon loose and tight decisions.
type MuonID struct{ Config l3leptonid.MuonConfig }

func (s *MuonID) Name() string            { return StageMuonID }
func (s *MuonID) Reads() []registry.Role  { return roles(registry.Muons, registry.Vertices) }
func (s *MuonID) Writes() []registry.Role { return roles(registry.Muons) }
func (s *MuonID) Validate() error         { return s.Config.Validate() }

func (s *MuonID) Run(ctx *Context) error {
	muons, err := ctx.Candidates(registry.Muons)
	if err != nil {
		return err
	}
	vertices, err := ctx.Vertices(registry.Vertices)
	if err != nil {
		return err
	}
	out, err := l3leptonid.EmbedMuons(s.Config, muons, vertices, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.Muons, out)
}

// FSRAssociation attaches at most one FSR photon to each lepton.
type FSRAssociation struct{ Config l4association.Config }

func (s *FSRAssociation) Name() string { return StageFSRAssociation }
func (s *FSRAssociation) Reads() []registry.Role {
	return roles(registry.Electrons, registry.Muons, registry.FSR)
}
func (s *FSRAssociation) Writes() []registry.Role {
	return roles(registry.Electrons, registry.Muons)
}
func (s *FSRAssociation) Validate() error { return s.Config.Validate() }

func (s *FSRAssociation) Run(ctx *Context) error {
	electrons, muons, err := leptons(ctx)
	if err != nil {
		return err
	}
	photons, err := ctx.Candidates(registry.FSR)
	if err != nil {
		return err
	}
	res, err := l4association.Associate(s.Config, electrons, muons, photons, s.Name())
	if err != nil {
		return err
	}
	ctx.AddMatches(res.Matches...)
	return ctx.SetAll(map[registry.Role]registry.Handle{
		registry.Electrons: res.Electrons,
		registry.Muons:     res.Muons,
	})
}

// Isolation embeds the FSR-corrected isolation decisions.
type Isolation struct{ Config l5isolation.Config }

func (s *Isolation) Name() string { return StageIsolation }
func (s *Isolation) Reads() []registry.Role {
	return roles(registry.Electrons, registry.Muons)
}
func (s *Isolation) Writes() []registry.Role {
	return roles(registry.Electrons, registry.Muons)
}
func (s *Isolation) Validate() error { return s.Config.Validate() }

func (s *Isolation) Run(ctx *Context) error {
	electrons, muons, err := leptons(ctx)
	if err != nil {
		return err
	}
	outE, outMu, err := l5isolation.Embed(s.Config, ctx.Rho(), electrons, muons, s.Name())
	if err != nil {
		return err
	}
	return ctx.SetAll(map[registry.Role]registry.Handle{
		registry.Electrons: outE,
		registry.Muons:     outMu,
	})
}

// JetCleaning removes jets overlapping selected leptons and their photons.
type JetCleaning struct{ Config l6cleaning.Config }

func (s *JetCleaning) Name() string { return StageJetCleaning }
func (s *JetCleaning) Reads() []registry.Role {
	return roles(registry.Jets, registry.Electrons, registry.Muons)
}
func (s *JetCleaning) Writes() []registry.Role { return roles(registry.Jets) }
func (s *JetCleaning) Validate() error         { return s.Config.Validate() }

func (s *JetCleaning) Run(ctx *Context) error {
	jets, err := ctx.Candidates(registry.Jets)
	if err != nil {
		return err
	}
	electrons, muons, err := leptons(ctx)
	if err != nil {
		return err
	}
	out, err := l6cleaning.Clean(s.Config, jets, electrons, muons, s.Name())
	if err != nil {
		return err
	}
	return ctx.Set(registry.Jets, out)
}

func leptons(ctx *Context) (electrons, muons *reco.Collection, err error) {
	electrons, err = ctx.Candidates(registry.Electrons)
	if err != nil {
		return nil, nil, err
	}
	muons, err = ctx.Candidates(registry.Muons)
	if err != nil {
		return nil, nil, err
	}
	return electrons, muons, nil
}
