package l4association

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idLabel = "HZZ4lIDPass"

func passing(c *reco.Candidate) *reco.Candidate {
	return testutil.Annotate(c, map[string]float64{idLabel: 1})
}

func coll(items ...*reco.Candidate) *reco.Collection {
	return reco.NewCollection("test", items)
}

func fsrOf(t *testing.T, c *reco.Candidate) *reco.Candidate {
	t.Helper()
	return c.UserCand(DefaultConfig().Label)
}

func TestCloserLeptonWinsContestedPhoton(t *testing.T) {
	t.Parallel()

	// A and B are 0.05 apart; P is 0.1 from A and 0.05 from B.
	a := passing(testutil.Muon(0, 20, 0.1, 0))
	b := passing(testutil.Muon(1, 20, 0.1, 0.05))
	p := testutil.Photon(0, 5, 0.1, 0.1)

	res, err := Associate(DefaultConfig(), coll(), coll(a, b), coll(p), "leptonDRETFSREmbedding")
	require.NoError(t, err)

	assert.Nil(t, fsrOf(t, res.Muons.At(0)), "A gets no association")
	require.NotNil(t, fsrOf(t, res.Muons.At(1)))
	assert.Equal(t, p.Key, fsrOf(t, res.Muons.At(1)).Key)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, b.Key, res.Matches[0].Lepton)
	assert.InDelta(t, 0.05, res.Matches[0].DR, 1e-12)
}

func TestMaxDRBoundary(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	lep := passing(testutil.Muon(0, 20, 0, 0))

	atEdge := testutil.Photon(0, 5, 0.5, 0)
	res, err := Associate(cfg, coll(), coll(lep), coll(atEdge), "fsr")
	require.NoError(t, err)
	assert.Empty(t, res.Matches, "dR == maxDR is excluded")

	onTop := testutil.Photon(1, 5, 0, 0)
	res, err = Associate(cfg, coll(), coll(lep), coll(onTop), "fsr")
	require.NoError(t, err)
	require.Len(t, res.Matches, 1, "dR == 0 is eligible")
	assert.True(t, math.IsInf(res.Matches[0].Score, 1))
}

func TestLeptonPicksHarderPhotonAtSameDistance(t *testing.T) {
	t.Parallel()

	lep := passing(testutil.Muon(0, 20, 0, 0))
	soft := testutil.Photon(0, 3, 0.2, 0)
	hard := testutil.Photon(1, 6, -0.2, 0)

	res, err := Associate(DefaultConfig(), coll(), coll(lep), coll(soft, hard), "fsr")
	require.NoError(t, err)
	assert.Equal(t, hard.Key, fsrOf(t, res.Muons.At(0)).Key)
}

func TestEqualScoresBreakToEarliestPhoton(t *testing.T) {
	t.Parallel()

	lep := passing(testutil.Muon(0, 20, 0, 0))
	first := testutil.Photon(4, 5, 0.2, 0)
	second := testutil.Photon(2, 5, -0.2, 0)

	res, err := Associate(DefaultConfig(), coll(), coll(lep), coll(first, second), "fsr")
	require.NoError(t, err)
	assert.Equal(t, first.Key, fsrOf(t, res.Muons.At(0)).Key, "tie goes to the earlier photon in the collection")
}

func TestEqualScoresBreakToEarliestLepton(t *testing.T) {
	t.Parallel()

	e := passing(testutil.Electron(0, 20, 0.2, 0, "bdt", 1))
	m := passing(testutil.Muon(0, 20, -0.2, 0))
	p := testutil.Photon(0, 5, 0, 0)

	res, err := Associate(DefaultConfig(), coll(e), coll(m), coll(p), "fsr")
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, e.Key, res.Matches[0].Lepton, "electrons come before muons")
	assert.Nil(t, fsrOf(t, res.Muons.At(0)))
}

func TestPhotonClaimedByElectronUnavailableToMuon(t *testing.T) {
	t.Parallel()

	e := passing(testutil.Electron(0, 20, 0, 0, "bdt", 1))
	m := passing(testutil.Muon(0, 20, 0.3, 0))
	p := testutil.Photon(0, 5, 0.05, 0)

	res, err := Associate(DefaultConfig(), coll(e), coll(m), coll(p), "fsr")
	require.NoError(t, err)
	assert.Equal(t, p.Key, fsrOf(t, res.Electrons.At(0)).Key)
	assert.Nil(t, fsrOf(t, res.Muons.At(0)))
}

func TestGreedyNotGlobalOptimum(t *testing.T) {
	t.Parallel()

	// L0 is closest to P0 and P1; L1 only reaches P0. Greedy gives P0 to L0
	// (best pair overall) and leaves L1 empty even though a perfect matching
	// exists.
	l0 := passing(testutil.Muon(0, 20, 0, 0))
	l1 := passing(testutil.Muon(1, 20, 0.45, 0))
	p0 := testutil.Photon(0, 5, 0.05, 0)
	p1 := testutil.Photon(1, 5, -0.3, 0)

	res, err := Associate(DefaultConfig(), coll(), coll(l0, l1), coll(p0, p1), "fsr")
	require.NoError(t, err)
	assert.Equal(t, p0.Key, fsrOf(t, res.Muons.At(0)).Key)
	assert.Nil(t, fsrOf(t, res.Muons.At(1)))
}

func TestIneligibleLeptonsAndPhotons(t *testing.T) {
	t.Parallel()

	failing := testutil.Annotate(testutil.Muon(0, 20, 0, 0), map[string]float64{idLabel: 0})
	unannotated := testutil.Muon(1, 20, 0, 0)
	p := testutil.Photon(0, 5, 0.1, 0)

	res, err := Associate(DefaultConfig(), coll(), coll(failing, unannotated), coll(p), "fsr")
	require.NoError(t, err)
	assert.Empty(t, res.Matches)

	cfg := DefaultConfig()
	cfg.PhotonSelection = reco.AnnotationCut{Name: "photonID", Min: 0.5}.Predicate()
	res, err = Associate(cfg, coll(), coll(passing(testutil.Muon(0, 20, 0, 0))), coll(p), "fsr")
	require.NoError(t, err)
	assert.Empty(t, res.Matches, "photon fails its selection")
}

func TestNoPhotonsIsNotAnError(t *testing.T) {
	t.Parallel()

	lep := passing(testutil.Muon(0, 20, 0, 0))
	res, err := Associate(DefaultConfig(), coll(), coll(lep), coll(), "fsr")
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, 1, res.Muons.Len())
	assert.Equal(t, "fsr", res.Muons.Producer())
}

func TestMissingInputs(t *testing.T) {
	t.Parallel()

	_, err := Associate(DefaultConfig(), nil, coll(), coll(), "fsr")
	assert.True(t, errors.Is(err, reco.ErrMissingInput))
	_, err = Associate(DefaultConfig(), coll(), coll(), nil, "fsr")
	assert.True(t, errors.Is(err, reco.ErrMissingInput))
}

func TestStaleCrossReferenceIsCleared(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	lep := passing(testutil.Muon(0, 20, 0, 0))
	lep.SetUserCand(cfg.Label, testutil.Photon(9, 5, 0, 0))

	res, err := Associate(cfg, coll(), coll(lep), coll(), "fsr")
	require.NoError(t, err)
	assert.Nil(t, fsrOf(t, res.Muons.At(0)))
	assert.NotNil(t, lep.UserCand(cfg.Label), "input lepton untouched")
}

func TestOneToOneAndDeterministic(t *testing.T) {
	t.Parallel()

	var muons, photons []*reco.Candidate
	for i := 0; i < 6; i++ {
		muons = append(muons, passing(testutil.Muon(i, 20, 0.1*float64(i), 0.05*float64(i%3))))
	}
	for i := 0; i < 9; i++ {
		photons = append(photons, testutil.Photon(i, 2+float64(i%4), 0.07*float64(i), 0.03*float64(i%5)))
	}

	run := func() Result {
		res, err := Associate(DefaultConfig(), coll(), coll(muons...), coll(photons...), "fsr")
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()

	if diff := cmp.Diff(first.Matches, second.Matches); diff != "" {
		t.Fatalf("association not deterministic (-first +second):\n%s", diff)
	}

	seenLeptons := map[reco.Key]bool{}
	seenPhotons := map[reco.Key]bool{}
	for _, m := range first.Matches {
		assert.False(t, seenLeptons[m.Lepton], "lepton %s matched twice", m.Lepton)
		assert.False(t, seenPhotons[m.Photon], "photon %s claimed twice", m.Photon)
		seenLeptons[m.Lepton] = true
		seenPhotons[m.Photon] = true
		assert.Less(t, m.DR, DefaultConfig().MaxDR)
	}
	assert.NotEmpty(t, first.Matches)
}

func TestScorers(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 250.0, ETOverDR(0.1, 5, 2), 1e-9)
	assert.InDelta(t, -0.004, DROverET(0.1, 5, 2), 1e-15)
	assert.Equal(t, -0.1, Nearest(0.1, 5, 2))

	// Both energy-weighted scorers rank pairs the same way.
	assert.Greater(t, ETOverDR(0.05, 5, 2), ETOverDR(0.1, 5, 2))
	assert.Greater(t, DROverET(0.05, 5, 2), DROverET(0.1, 5, 2))

	_, err := ScorerByName("chi2")
	assert.True(t, errors.Is(err, reco.ErrInvalidConfiguration))
	assert.Equal(t, []string{ScorerDROverET, ScorerETOverDR, ScorerNearest}, ScorerNames())
}

func TestConfigAcceptsEveryScorer(t *testing.T) {
	assert.ElementsMatch(t, ScorerNames(), config.FSRScorerNames)
}

func TestNearestScorerIgnoresEnergy(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Scorer = Nearest
	lep := passing(testutil.Muon(0, 20, 0, 0))
	closeSoft := testutil.Photon(0, 2.5, 0.1, 0)
	farHard := testutil.Photon(1, 30, 0.2, 0)

	res, err := Associate(cfg, coll(), coll(lep), coll(closeSoft, farHard), "fsr")
	require.NoError(t, err)
	assert.Equal(t, closeSoft.Key, res.Muons.At(0).UserCand(cfg.Label).Key)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max dR", func(c *Config) { c.MaxDR = -0.5 }},
		{"NaN max dR", func(c *Config) { c.MaxDR = math.NaN() }},
		{"negative et power", func(c *Config) { c.ETPower = -1 }},
		{"blank label", func(c *Config) { c.Label = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), reco.ErrInvalidConfiguration))
		})
	}
}
