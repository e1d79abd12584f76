package pipeline_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/pipeline"
	"github.com/banshee-data/hzz.report/internal/reco/registry"
	"github.com/banshee-data/hzz.report/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chLabel = "fsrPhotonPFIsoChHadPUNoPU03pt02"
	nhLabel = "fsrPhotonPFIsoNHadPhoton03"
)

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	cfg, err := pipeline.ConfigFromTuning(config.DefaultTuningConfig())
	require.NoError(t, err)
	p, err := pipeline.New(cfg)
	require.NoError(t, err)
	return p
}

// sampleEvent has one electron, one muon with a nearby FSR photon, and
// three jets: one on the electron, one on the photon, one isolated.
func sampleEvent() *pipeline.Event {
	e := testutil.Electron(0, 25, 0.5, 0, "MVAIDNonTrig", 1)
	e.SetUserFloat("EffectiveArea", 0.1)
	mu := testutil.Muon(0, 30, -1, 2)

	return &pipeline.Event{
		Run: 1, Lumi: 2, Number: 3,
		Rho:       5,
		Vertices:  []reco.Vertex{{NDOF: 1, Z: 0}, testutil.GoodVertex(0.1)},
		Electrons: []*reco.Candidate{e},
		Muons:     []*reco.Candidate{mu},
		Jets: []*reco.Candidate{
			testutil.Jet(0, 40, 0.5, 0.05),
			testutil.Jet(1, 40, -1.1, 2.1),
			testutil.Jet(2, 40, 2, -2),
		},
		PFCandidates: []*reco.Candidate{
			testutil.PFPhoton(0, 5, -1.1, 2, 0, 0, chLabel, nhLabel),
			testutil.PFPhoton(1, 1, 1, 1, 0, 0, chLabel, nhLabel),
			{Key: reco.Key{Kind: reco.KindPF, Index: 2}, Pt: 10, PdgID: 211},
		},
	}
}

func TestDefaultStageOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		"vertexCleaning", "fsrPhotons", "dretPhotonSelection",
		"electronIDEmbedding", "muonIDEmbedding", "leptonDRETFSREmbedding",
		"leptonIsoEmbedding", "jetFSRCleaning",
	}
	assert.Equal(t, want, newPipeline(t).Stages())
}

func TestProcessEndToEnd(t *testing.T) {
	t.Parallel()

	res, err := newPipeline(t).Process(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "1:2:3", res.EventID)

	vertices, err := res.Registry.Vertices(registry.Vertices)
	require.NoError(t, err)
	assert.Equal(t, 1, vertices.Len())

	fsr, err := res.Candidates(registry.FSR)
	require.NoError(t, err)
	assert.Equal(t, []reco.Key{{Kind: reco.KindPhoton, Index: 0}}, fsr.Keys())

	electrons, err := res.Candidates(registry.Electrons)
	require.NoError(t, err)
	muons, err := res.Candidates(registry.Muons)
	require.NoError(t, err)

	e, mu := electrons.At(0), muons.At(0)
	for _, l := range []*reco.Candidate{e, mu} {
		for _, label := range []string{"HZZ4lIDPass", "HZZ4lIDPassTight", "HZZ4lIsoPass"} {
			v, ok := l.UserFloat(label)
			assert.True(t, ok && v > 0.5, "%s should pass %s", l.Key, label)
		}
	}
	assert.Nil(t, e.UserCand("dretFSRCand"))
	require.NotNil(t, mu.UserCand("dretFSRCand"))
	assert.Equal(t, reco.Key{Kind: reco.KindPhoton, Index: 0}, mu.UserCand("dretFSRCand").Key)
	assert.Equal(t, pipeline.StageIsolation, muons.Producer())

	require.Len(t, res.Matches, 1)
	assert.Equal(t, mu.Key, res.Matches[0].Lepton)

	jets, err := res.Candidates(registry.Jets)
	require.NoError(t, err)
	assert.Equal(t, []reco.Key{{Kind: reco.KindJet, Index: 2}}, jets.Keys())
	assert.Equal(t, pipeline.StageJetCleaning, jets.Producer())

	// The event's own candidates are never annotated.
	_, ok := sampleEvent().Electrons[0].UserFloat("HZZ4lIDPass")
	assert.False(t, ok)
}

func TestCutflow(t *testing.T) {
	t.Parallel()

	res, err := newPipeline(t).Process(sampleEvent())
	require.NoError(t, err)

	want := []pipeline.StageStat{
		{Stage: "vertexCleaning", Role: registry.Vertices, In: 2, Out: 1},
		{Stage: "fsrPhotons", Role: registry.FSR, In: 0, Out: 2},
		{Stage: "dretPhotonSelection", Role: registry.FSR, In: 2, Out: 1},
		{Stage: "electronIDEmbedding", Role: registry.Electrons, In: 1, Out: 1},
		{Stage: "muonIDEmbedding", Role: registry.Muons, In: 1, Out: 1},
		{Stage: "leptonDRETFSREmbedding", Role: registry.Electrons, In: 1, Out: 1},
		{Stage: "leptonDRETFSREmbedding", Role: registry.Muons, In: 1, Out: 1},
		{Stage: "leptonIsoEmbedding", Role: registry.Electrons, In: 1, Out: 1},
		{Stage: "leptonIsoEmbedding", Role: registry.Muons, In: 1, Out: 1},
		{Stage: "jetFSRCleaning", Role: registry.Jets, In: 3, Out: 1},
	}
	if diff := cmp.Diff(want, res.Cutflow); diff != "" {
		t.Errorf("cutflow mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyEventSucceeds(t *testing.T) {
	t.Parallel()

	res, err := newPipeline(t).Process(&pipeline.Event{})
	require.NoError(t, err)
	jets, err := res.Candidates(registry.Jets)
	require.NoError(t, err)
	assert.Equal(t, 0, jets.Len())
	assert.Empty(t, res.Matches)
}

func TestNilCandidateRejectsEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*pipeline.Event)
	}{
		{"electron", func(ev *pipeline.Event) { ev.Electrons = append(ev.Electrons, nil) }},
		{"muon", func(ev *pipeline.Event) { ev.Muons = []*reco.Candidate{nil} }},
		{"jet", func(ev *pipeline.Event) { ev.Jets[1] = nil }},
	}
	p := newPipeline(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := sampleEvent()
			tt.mutate(ev)

			res, err := p.Process(ev)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, reco.ErrMissingInput), "got %v", err)
			var stageErr *reco.StageError
			assert.False(t, errors.As(err, &stageErr))
		})
	}
}

func TestStageFailureAbortsEvent(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	ev.Vertices = nil // leptons have no good vertex

	_, err := newPipeline(t).Process(ev)
	require.Error(t, err)

	var stageErr *reco.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageElectronID, stageErr.Stage)
	assert.True(t, errors.Is(err, reco.ErrMissingInput))
}

func TestMissingEffectiveAreaFailsIsolation(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	ev.Electrons = []*reco.Candidate{testutil.Electron(0, 25, 0.5, 0, "MVAIDNonTrig", 1)}

	_, err := newPipeline(t).Process(ev)
	var stageErr *reco.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageIsolation, stageErr.Stage)
}

// undeclared reads a role it never declared.
type undeclared struct{}

func (undeclared) Name() string            { return "undeclared" }
func (undeclared) Reads() []registry.Role  { return nil }
func (undeclared) Writes() []registry.Role { return nil }
func (undeclared) Run(ctx *pipeline.Context) error {
	_, err := ctx.Candidates(registry.Jets)
	return err
}

func TestUndeclaredRoleIsRejected(t *testing.T) {
	t.Parallel()

	p, err := pipeline.New(pipeline.Config{Stages: []pipeline.Stage{undeclared{}}})
	require.NoError(t, err)
	_, err = p.Process(sampleEvent())
	assert.True(t, errors.Is(err, reco.ErrUnknownRole))
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(pipeline.Config{})
	assert.True(t, errors.Is(err, reco.ErrInvalidConfiguration))

	_, err = pipeline.New(pipeline.Config{Stages: []pipeline.Stage{undeclared{}, undeclared{}}})
	assert.True(t, errors.Is(err, reco.ErrInvalidConfiguration), "duplicate names")

	cfg, err := pipeline.ConfigFromTuning(config.DefaultTuningConfig())
	require.NoError(t, err)
	for _, s := range cfg.Stages {
		if a, ok := s.(*pipeline.FSRAssociation); ok {
			a.Config.MaxDR = -1
		}
	}
	_, err = pipeline.New(cfg)
	var stageErr *reco.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageFSRAssociation, stageErr.Stage)
	assert.True(t, errors.Is(err, reco.ErrInvalidConfiguration))

	bad := config.DefaultTuningConfig()
	scorer := "chi2"
	bad.FSRScorer = &scorer
	_, err = pipeline.ConfigFromTuning(bad)
	assert.True(t, errors.Is(err, reco.ErrInvalidConfiguration))
}

func TestProcessIsDeterministicAndConcurrent(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	ref, err := p.Process(sampleEvent())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*pipeline.Result, 16)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Process(sampleEvent())
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NoError(t, errs[i])
		if diff := cmp.Diff(ref.Cutflow, res.Cutflow); diff != "" {
			t.Errorf("run %d cutflow differs:\n%s", i, diff)
		}
		if diff := cmp.Diff(ref.Matches, res.Matches); diff != "" {
			t.Errorf("run %d matches differ:\n%s", i, diff)
		}
	}
}

func TestLogStreams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	pipeline.SetLogWriters(&ops, &diag, &trace)
	t.Cleanup(func() { pipeline.SetLogWriters(nil, nil, nil) })

	p := newPipeline(t)
	_, err := p.Process(sampleEvent())
	require.NoError(t, err)
	ev := sampleEvent()
	ev.Vertices = nil
	_, err = p.Process(ev)
	require.Error(t, err)

	assert.Contains(t, ops.String(), pipeline.OpsPrefix+"event 1:2:3: stage electronIDEmbedding failed")
	assert.Contains(t, diag.String(), pipeline.DiagPrefix+"event 1:2:3")
	assert.Contains(t, trace.String(), pipeline.TracePrefix+"event 1:2:3: jetFSRCleaning jets 3 -> 1")
	assert.NotContains(t, diag.String(), pipeline.OpsPrefix)
}
