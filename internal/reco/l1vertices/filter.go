package l1vertices

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// Config holds the vertex quality thresholds.
type Config struct {
	MinNDOF float64 // ndof must be strictly greater
	MaxAbsZ float64 // |z| must not exceed
	MaxRho  float64 // transverse position must not exceed
}

// DefaultConfig returns the reference vertex cuts.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MinNDOF: cfg.GetVertexMinNDOF(),
		MaxAbsZ: cfg.GetVertexMaxAbsZ(),
		MaxRho:  cfg.GetVertexMaxRho(),
	}
}

// Validate rejects negative thresholds.
func (c Config) Validate() error {
	if c.MinNDOF < 0 || c.MaxAbsZ < 0 || c.MaxRho < 0 {
		return fmt.Errorf("vertex cuts must be non-negative (ndof %g, |z| %g, rho %g): %w",
			c.MinNDOF, c.MaxAbsZ, c.MaxRho, reco.ErrInvalidConfiguration)
	}
	return nil
}

// Good reports whether v passes `!isFake && ndof > MinNDOF && |z| <= MaxAbsZ
// && rho <= MaxRho`.
func (c Config) Good(v reco.Vertex) bool {
	return !v.IsFake &&
		v.NDOF > c.MinNDOF &&
		math.Abs(v.Z) <= c.MaxAbsZ &&
		v.Rho() <= c.MaxRho
}

// Filter returns the good vertices of in, preserving order.
func Filter(cfg Config, in *reco.VertexCollection, producer string) (*reco.VertexCollection, error) {
	if in == nil {
		return nil, fmt.Errorf("vertex collection: %w", reco.ErrMissingInput)
	}
	out := make([]reco.Vertex, 0, in.Len())
	for i := 0; i < in.Len(); i++ {
		if v := in.At(i); cfg.Good(v) {
			out = append(out, v)
		}
	}
	return reco.NewVertexCollection(producer, out), nil
}
