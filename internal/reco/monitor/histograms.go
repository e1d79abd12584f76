package monitor

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hzz.report/internal/reco/replay"
)

// DefaultBins is the histogram bin count used by WriteFSRPlots.
const DefaultBins = 25

// Output file names written by WriteFSRPlots.
const (
	FSRDeltaRFile   = "fsr_delta_r.png"
	FSRPhotonPtFile = "fsr_photon_pt.png"
)

// WriteHistogram saves a histogram of values as a PNG at path.
func WriteHistogram(path, title, xLabel string, values []float64, bins int) error {
	if len(values) == 0 {
		return fmt.Errorf("histogram %q: no values", title)
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Matches"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("histogram %q: %w", title, err)
	}
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteFSRPlots writes the FSR dR and photon pT histograms of a replay
// into dir and returns the files written. A run without matches writes
// nothing.
func WriteFSRPlots(dir string, sum *replay.Summary) ([]string, error) {
	if len(sum.FSRDeltaR) == 0 {
		return nil, nil
	}
	plots := []struct {
		file, title, xLabel string
		values              []float64
	}{
		{FSRDeltaRFile, "FSR photon - lepton dR", "dR", sum.FSRDeltaR},
		{FSRPhotonPtFile, "FSR photon pT", "pT (GeV)", sum.FSRPhotonPt},
	}

	var written []string
	for _, pl := range plots {
		path := filepath.Join(dir, pl.file)
		if err := WriteHistogram(path, pl.title, pl.xLabel, pl.values, DefaultBins); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
