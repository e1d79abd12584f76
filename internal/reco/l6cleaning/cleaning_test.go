package l6cleaning

import (
	"errors"
	"testing"

	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var selected = map[string]float64{"HZZ4lIDPassTight": 1, "HZZ4lIsoPass": 1}

func coll(items ...*reco.Candidate) *reco.Collection {
	return reco.NewCollection("test", items)
}

func keys(c *reco.Collection) []reco.Key {
	return c.Keys()
}

func TestJetDRBoundary(t *testing.T) {
	t.Parallel()

	mu := testutil.Annotate(testutil.Muon(0, 20, 0, 0), selected)
	atEdge := testutil.Jet(0, 30, 0.4, 0)
	outside := testutil.Jet(1, 30, 0.41, 0)

	out, err := Clean(DefaultConfig(), coll(atEdge, outside), coll(), coll(mu), "jetFSRCleaning")
	require.NoError(t, err)
	assert.Equal(t, []reco.Key{outside.Key}, keys(out))
	assert.Equal(t, "jetFSRCleaning", out.Producer())
}

func TestFSRPhotonVetoesJet(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	e := testutil.Annotate(testutil.Electron(0, 20, 0, 0, "MVAIDNonTrig", 1), selected)
	e.SetUserCand(cfg.FSRLabel, testutil.Photon(0, 5, 0, 2))
	nearPhoton := testutil.Jet(0, 30, 0.1, 2)
	farAway := testutil.Jet(1, 30, 2, -2)

	out, err := Clean(cfg, coll(nearPhoton, farAway), coll(e), coll(), "clean")
	require.NoError(t, err)
	assert.Equal(t, []reco.Key{farAway.Key}, keys(out))
}

func TestUnselectedLeptonsDoNotVeto(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tests := []struct {
		name   string
		floats map[string]float64
	}{
		{"no annotations", nil},
		{"loose only", map[string]float64{"HZZ4lIDPass": 1, "HZZ4lIsoPass": 1}},
		{"tight but not isolated", map[string]float64{"HZZ4lIDPassTight": 1, "HZZ4lIsoPass": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mu := testutil.Annotate(testutil.Muon(0, 20, 0, 0), tt.floats)
			mu.SetUserCand(cfg.FSRLabel, testutil.Photon(0, 5, 1, 0))
			jets := coll(testutil.Jet(0, 30, 0, 0), testutil.Jet(1, 30, 1, 0))

			out, err := Clean(cfg, jets, coll(), coll(mu), "clean")
			require.NoError(t, err)
			assert.Equal(t, 2, out.Len())
		})
	}
}

func TestCleanLeptonsDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CleanLeptons = false
	mu := testutil.Annotate(testutil.Muon(0, 20, 0, 0), selected)
	mu.SetUserCand(cfg.FSRLabel, testutil.Photon(0, 5, 1, 0))
	onLepton := testutil.Jet(0, 30, 0, 0)
	onPhoton := testutil.Jet(1, 30, 1, 0)

	out, err := Clean(cfg, coll(onLepton, onPhoton), coll(), coll(mu), "clean")
	require.NoError(t, err)
	assert.Equal(t, []reco.Key{onLepton.Key}, keys(out))
}

func TestOutputIsOrderedSubset(t *testing.T) {
	t.Parallel()

	mu := testutil.Annotate(testutil.Muon(0, 20, 0, 0), selected)
	var jets []*reco.Candidate
	for i := 0; i < 12; i++ {
		jets = append(jets, testutil.Jet(i, 30, -1.5+0.25*float64(i), 0.1*float64(i%3)))
	}
	in := coll(jets...)

	out, err := Clean(DefaultConfig(), in, coll(), coll(mu), "clean")
	require.NoError(t, err)
	require.Less(t, out.Len(), in.Len())

	pos := map[reco.Key]int{}
	for i, k := range in.Keys() {
		pos[k] = i
	}
	last := -1
	for _, k := range out.Keys() {
		i, ok := pos[k]
		require.True(t, ok, "jet %s not in input", k)
		assert.Greater(t, i, last, "order not preserved")
		last = i
	}
}

func TestMissingInputs(t *testing.T) {
	t.Parallel()

	_, err := Clean(DefaultConfig(), nil, coll(), coll(), "clean")
	assert.True(t, errors.Is(err, reco.ErrMissingInput))

	cfg := DefaultConfig()
	cfg.MinDR = -1
	assert.True(t, errors.Is(cfg.Validate(), reco.ErrInvalidConfiguration))
}
