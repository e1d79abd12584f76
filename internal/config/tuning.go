package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/banshee-data/hzz.report/internal/reco"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in defaults, matching the reference HZZ configuration.
const (
	defaultIDLabel    = "HZZ4lIDPass"
	defaultIsoLabel   = "HZZ4lIsoPass"
	defaultMVALabel   = "MVAIDNonTrig"
	defaultFSRLabel   = "dretFSRCand"
	defaultEALabel    = "EffectiveArea"
	defaultFSRScorer  = "et_over_dr"
	defaultChIsoLabel = "fsrPhotonPFIsoChHadPUNoPU03pt02"
	defaultNhIsoLabel = "fsrPhotonPFIsoNHadPhoton03"

	defaultVertexMinNDOF  = 4.0
	defaultVertexMaxAbsZ  = 24.0
	defaultVertexMaxRho   = 2.0
	defaultFSRPtMin       = 2.0
	defaultFSREtaMax      = 2.4
	defaultFSRRelIsoMax   = 1.8
	defaultECutLowPtLow   = -0.265
	defaultECutLowPtMed   = -0.556
	defaultECutLowPtHigh  = -0.551
	defaultECutHighPtLow  = -0.072
	defaultECutHighPtMed  = -0.286
	defaultECutHighPtHigh = -0.267
	defaultEMissingHits   = 999
	defaultEPtMin         = 7.0
	defaultEEtaMax        = 2.5
	defaultEIDPtSplit     = 10.0
	defaultMuPtMin        = 5.0
	defaultMuEtaMax       = 2.4
	defaultMuHighPt       = 200.0
	defaultDxyMax         = 0.5
	defaultDzMax          = 1.0
	defaultSIPMax         = 4.0
	defaultFSRETPower     = 2.0
	defaultFSRMaxDR       = 0.5
	defaultIsoConeDR      = 0.3
	defaultIsoCut         = 0.35
	defaultJetCleanMinDR  = 0.4
)

// TuningConfig represents the root configuration for every refinement
// stage. Fields are pointers so a partial JSON file only overrides what it
// names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Annotation labels
	IDLabel       *string `json:"id_label,omitempty"`
	IsoLabel      *string `json:"iso_label,omitempty"`
	IsoValueLabel *string `json:"iso_value_label,omitempty"` // default: iso_label with Pass -> Val
	MVALabel      *string `json:"mva_label,omitempty"`
	FSRLabel      *string `json:"fsr_label,omitempty"`
	EALabel       *string `json:"ea_label,omitempty"`

	// Vertex cleaning
	VertexMinNDOF *float64 `json:"vertex_min_ndof,omitempty"`
	VertexMaxAbsZ *float64 `json:"vertex_max_abs_z,omitempty"`
	VertexMaxRho  *float64 `json:"vertex_max_rho,omitempty"`

	// FSR photon building
	FSRPtMin           *float64 `json:"fsr_pt_min,omitempty"`
	FSREtaMax          *float64 `json:"fsr_eta_max,omitempty"`
	FSRRelIsoMax       *float64 `json:"fsr_rel_iso_max,omitempty"`
	FSRChargedIsoLabel *string  `json:"fsr_charged_iso_label,omitempty"`
	FSRNeutralIsoLabel *string  `json:"fsr_neutral_iso_label,omitempty"`

	// Electron ID
	EIDCutLowPtLowEta   *float64 `json:"e_id_cut_low_pt_low_eta,omitempty"`
	EIDCutLowPtMedEta   *float64 `json:"e_id_cut_low_pt_med_eta,omitempty"`
	EIDCutLowPtHighEta  *float64 `json:"e_id_cut_low_pt_high_eta,omitempty"`
	EIDCutHighPtLowEta  *float64 `json:"e_id_cut_high_pt_low_eta,omitempty"`
	EIDCutHighPtMedEta  *float64 `json:"e_id_cut_high_pt_med_eta,omitempty"`
	EIDCutHighPtHighEta *float64 `json:"e_id_cut_high_pt_high_eta,omitempty"`
	EMissingHitsMax     *int     `json:"e_missing_hits_max,omitempty"`
	EPtMin              *float64 `json:"e_pt_min,omitempty"`
	EEtaMax             *float64 `json:"e_eta_max,omitempty"`
	EIDPtSplit          *float64 `json:"e_id_pt_split,omitempty"`

	// Muon ID
	MuPtMin           *float64 `json:"mu_pt_min,omitempty"`
	MuEtaMax          *float64 `json:"mu_eta_max,omitempty"`
	MuHighPtThreshold *float64 `json:"mu_high_pt_threshold,omitempty"`

	// Shared lepton vertex requirements
	LeptonDxyMax *float64 `json:"lepton_dxy_max,omitempty"`
	LeptonDzMax  *float64 `json:"lepton_dz_max,omitempty"`
	LeptonSIPMax *float64 `json:"lepton_sip_max,omitempty"`

	// FSR association
	FSRETPower           *float64              `json:"fsr_et_power,omitempty"`
	FSRMaxDR             *float64              `json:"fsr_max_dr,omitempty"`
	FSRScorer            *string               `json:"fsr_scorer,omitempty"`
	FSRPhotonSelection   *[]reco.AnnotationCut `json:"fsr_photon_selection,omitempty"`
	FSRElectronSelection *[]reco.AnnotationCut `json:"fsr_electron_selection,omitempty"`
	FSRMuonSelection     *[]reco.AnnotationCut `json:"fsr_muon_selection,omitempty"`

	// Isolation
	IsoConeDRE  *float64 `json:"iso_cone_dr_e,omitempty"`
	IsoConeDRMu *float64 `json:"iso_cone_dr_mu,omitempty"`
	IsoCutE     *float64 `json:"iso_cut_e,omitempty"`
	IsoCutMu    *float64 `json:"iso_cut_mu,omitempty"`

	// Jet cleaning
	JetCleanMinDR   *float64 `json:"jet_clean_min_dr,omitempty"`
	JetCleanLeptons *bool    `json:"jet_clean_leptons,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// built-in reference value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		IDLabel:       ptrString(defaultIDLabel),
		IsoLabel:      ptrString(defaultIsoLabel),
		IsoValueLabel: ptrString(strings.Replace(defaultIsoLabel, "Pass", "Val", 1)),
		MVALabel:      ptrString(defaultMVALabel),
		FSRLabel:      ptrString(defaultFSRLabel),
		EALabel:       ptrString(defaultEALabel),

		VertexMinNDOF: ptrFloat64(defaultVertexMinNDOF),
		VertexMaxAbsZ: ptrFloat64(defaultVertexMaxAbsZ),
		VertexMaxRho:  ptrFloat64(defaultVertexMaxRho),

		FSRPtMin:           ptrFloat64(defaultFSRPtMin),
		FSREtaMax:          ptrFloat64(defaultFSREtaMax),
		FSRRelIsoMax:       ptrFloat64(defaultFSRRelIsoMax),
		FSRChargedIsoLabel: ptrString(defaultChIsoLabel),
		FSRNeutralIsoLabel: ptrString(defaultNhIsoLabel),

		EIDCutLowPtLowEta:   ptrFloat64(defaultECutLowPtLow),
		EIDCutLowPtMedEta:   ptrFloat64(defaultECutLowPtMed),
		EIDCutLowPtHighEta:  ptrFloat64(defaultECutLowPtHigh),
		EIDCutHighPtLowEta:  ptrFloat64(defaultECutHighPtLow),
		EIDCutHighPtMedEta:  ptrFloat64(defaultECutHighPtMed),
		EIDCutHighPtHighEta: ptrFloat64(defaultECutHighPtHigh),
		EMissingHitsMax:     ptrInt(defaultEMissingHits),
		EPtMin:              ptrFloat64(defaultEPtMin),
		EEtaMax:             ptrFloat64(defaultEEtaMax),
		EIDPtSplit:          ptrFloat64(defaultEIDPtSplit),

		MuPtMin:           ptrFloat64(defaultMuPtMin),
		MuEtaMax:          ptrFloat64(defaultMuEtaMax),
		MuHighPtThreshold: ptrFloat64(defaultMuHighPt),

		LeptonDxyMax: ptrFloat64(defaultDxyMax),
		LeptonDzMax:  ptrFloat64(defaultDzMax),
		LeptonSIPMax: ptrFloat64(defaultSIPMax),

		FSRETPower:           ptrFloat64(defaultFSRETPower),
		FSRMaxDR:             ptrFloat64(defaultFSRMaxDR),
		FSRScorer:            ptrString(defaultFSRScorer),
		FSRPhotonSelection:   &[]reco.AnnotationCut{},
		FSRElectronSelection: &[]reco.AnnotationCut{{Name: defaultIDLabel, Min: 0.5}},
		FSRMuonSelection:     &[]reco.AnnotationCut{{Name: defaultIDLabel, Min: 0.5}},

		IsoConeDRE:  ptrFloat64(defaultIsoConeDR),
		IsoConeDRMu: ptrFloat64(defaultIsoConeDR),
		IsoCutE:     ptrFloat64(defaultIsoCut),
		IsoCutMu:    ptrFloat64(defaultIsoCut),

		JetCleanMinDR:   ptrFloat64(defaultJetCleanMinDR),
		JetCleanLeptons: ptrBool(true),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FSRScorerNames lists the accepted fsr_scorer values.
var FSRScorerNames = []string{"et_over_dr", "dr_over_et", "nearest"}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/reco/<layer>/
		"../../../../" + DefaultConfigPath, // from internal/reco/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are physically sensible.
// Every failure wraps reco.ErrInvalidConfiguration.
func (c *TuningConfig) Validate() error {
	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"vertex_min_ndof", c.VertexMinNDOF},
		{"vertex_max_abs_z", c.VertexMaxAbsZ},
		{"vertex_max_rho", c.VertexMaxRho},
		{"fsr_pt_min", c.FSRPtMin},
		{"fsr_eta_max", c.FSREtaMax},
		{"fsr_rel_iso_max", c.FSRRelIsoMax},
		{"e_pt_min", c.EPtMin},
		{"e_eta_max", c.EEtaMax},
		{"e_id_pt_split", c.EIDPtSplit},
		{"mu_pt_min", c.MuPtMin},
		{"mu_eta_max", c.MuEtaMax},
		{"mu_high_pt_threshold", c.MuHighPtThreshold},
		{"lepton_dxy_max", c.LeptonDxyMax},
		{"lepton_dz_max", c.LeptonDzMax},
		{"lepton_sip_max", c.LeptonSIPMax},
		{"fsr_et_power", c.FSRETPower},
		{"fsr_max_dr", c.FSRMaxDR},
		{"iso_cone_dr_e", c.IsoConeDRE},
		{"iso_cone_dr_mu", c.IsoConeDRMu},
		{"iso_cut_e", c.IsoCutE},
		{"iso_cut_mu", c.IsoCutMu},
		{"jet_clean_min_dr", c.JetCleanMinDR},
	}
	for _, f := range nonNegative {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f: %w", f.name, *f.v, reco.ErrInvalidConfiguration)
		}
	}

	positive := []struct {
		name string
		v    *float64
	}{
		{"iso_cone_dr_e", c.IsoConeDRE},
		{"iso_cone_dr_mu", c.IsoConeDRMu},
	}
	for _, f := range positive {
		if f.v != nil && *f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f: %w", f.name, *f.v, reco.ErrInvalidConfiguration)
		}
	}

	if c.FSRScorer != nil && !slices.Contains(FSRScorerNames, *c.FSRScorer) {
		return fmt.Errorf("fsr_scorer %q is not one of %v: %w", *c.FSRScorer, FSRScorerNames, reco.ErrInvalidConfiguration)
	}

	if c.EMissingHitsMax != nil && *c.EMissingHitsMax < 0 {
		return fmt.Errorf("e_missing_hits_max must be non-negative, got %d: %w", *c.EMissingHitsMax, reco.ErrInvalidConfiguration)
	}

	labels := []struct {
		name string
		v    *string
	}{
		{"id_label", c.IDLabel},
		{"iso_label", c.IsoLabel},
		{"iso_value_label", c.IsoValueLabel},
		{"mva_label", c.MVALabel},
		{"fsr_label", c.FSRLabel},
		{"ea_label", c.EALabel},
		{"fsr_charged_iso_label", c.FSRChargedIsoLabel},
		{"fsr_neutral_iso_label", c.FSRNeutralIsoLabel},
		{"fsr_scorer", c.FSRScorer},
	}
	for _, l := range labels {
		if l.v != nil && strings.TrimSpace(*l.v) == "" {
			return fmt.Errorf("%s must not be empty: %w", l.name, reco.ErrInvalidConfiguration)
		}
	}

	if c.GetIsoLabel() == c.GetIsoValueLabel() {
		return fmt.Errorf("iso_value_label must differ from iso_label %q: %w", c.GetIsoLabel(), reco.ErrInvalidConfiguration)
	}

	return nil
}

// GetIDLabel returns the id_label value or the default.
func (c *TuningConfig) GetIDLabel() string { return valueOr(c.IDLabel, defaultIDLabel) }

// GetTightIDLabel returns the annotation name of the tight lepton ID.
func (c *TuningConfig) GetTightIDLabel() string { return c.GetIDLabel() + "Tight" }

// GetIsoLabel returns the iso_label value or the default.
func (c *TuningConfig) GetIsoLabel() string { return valueOr(c.IsoLabel, defaultIsoLabel) }

// GetIsoValueLabel returns iso_value_label, defaulting to iso_label with
// "Pass" replaced by "Val".
func (c *TuningConfig) GetIsoValueLabel() string {
	if c.IsoValueLabel != nil {
		return *c.IsoValueLabel
	}
	return strings.Replace(c.GetIsoLabel(), "Pass", "Val", 1)
}

func (c *TuningConfig) GetMVALabel() string { return valueOr(c.MVALabel, defaultMVALabel) }
func (c *TuningConfig) GetFSRLabel() string { return valueOr(c.FSRLabel, defaultFSRLabel) }
func (c *TuningConfig) GetEALabel() string  { return valueOr(c.EALabel, defaultEALabel) }

func (c *TuningConfig) GetVertexMinNDOF() float64 {
	return valueOr(c.VertexMinNDOF, defaultVertexMinNDOF)
}

func (c *TuningConfig) GetVertexMaxAbsZ() float64 {
	return valueOr(c.VertexMaxAbsZ, defaultVertexMaxAbsZ)
}

func (c *TuningConfig) GetVertexMaxRho() float64 {
	return valueOr(c.VertexMaxRho, defaultVertexMaxRho)
}

func (c *TuningConfig) GetFSRPtMin() float64     { return valueOr(c.FSRPtMin, defaultFSRPtMin) }
func (c *TuningConfig) GetFSREtaMax() float64    { return valueOr(c.FSREtaMax, defaultFSREtaMax) }
func (c *TuningConfig) GetFSRRelIsoMax() float64 { return valueOr(c.FSRRelIsoMax, defaultFSRRelIsoMax) }

func (c *TuningConfig) GetFSRChargedIsoLabel() string {
	return valueOr(c.FSRChargedIsoLabel, defaultChIsoLabel)
}

func (c *TuningConfig) GetFSRNeutralIsoLabel() string {
	return valueOr(c.FSRNeutralIsoLabel, defaultNhIsoLabel)
}

// GetEIDCuts returns the six electron discriminant cuts ordered
// [low pT][low, medium, high |eta|] then [high pT][...].
func (c *TuningConfig) GetEIDCuts() [2][3]float64 {
	return [2][3]float64{
		{
			valueOr(c.EIDCutLowPtLowEta, defaultECutLowPtLow),
			valueOr(c.EIDCutLowPtMedEta, defaultECutLowPtMed),
			valueOr(c.EIDCutLowPtHighEta, defaultECutLowPtHigh),
		},
		{
			valueOr(c.EIDCutHighPtLowEta, defaultECutHighPtLow),
			valueOr(c.EIDCutHighPtMedEta, defaultECutHighPtMed),
			valueOr(c.EIDCutHighPtHighEta, defaultECutHighPtHigh),
		},
	}
}

func (c *TuningConfig) GetEMissingHitsMax() int { return valueOr(c.EMissingHitsMax, defaultEMissingHits) }
func (c *TuningConfig) GetEPtMin() float64      { return valueOr(c.EPtMin, defaultEPtMin) }
func (c *TuningConfig) GetEEtaMax() float64     { return valueOr(c.EEtaMax, defaultEEtaMax) }
func (c *TuningConfig) GetEIDPtSplit() float64  { return valueOr(c.EIDPtSplit, defaultEIDPtSplit) }

func (c *TuningConfig) GetMuPtMin() float64  { return valueOr(c.MuPtMin, defaultMuPtMin) }
func (c *TuningConfig) GetMuEtaMax() float64 { return valueOr(c.MuEtaMax, defaultMuEtaMax) }

func (c *TuningConfig) GetMuHighPtThreshold() float64 {
	return valueOr(c.MuHighPtThreshold, defaultMuHighPt)
}

func (c *TuningConfig) GetLeptonDxyMax() float64 { return valueOr(c.LeptonDxyMax, defaultDxyMax) }
func (c *TuningConfig) GetLeptonDzMax() float64  { return valueOr(c.LeptonDzMax, defaultDzMax) }
func (c *TuningConfig) GetLeptonSIPMax() float64 { return valueOr(c.LeptonSIPMax, defaultSIPMax) }

func (c *TuningConfig) GetFSRETPower() float64 { return valueOr(c.FSRETPower, defaultFSRETPower) }
func (c *TuningConfig) GetFSRMaxDR() float64   { return valueOr(c.FSRMaxDR, defaultFSRMaxDR) }
func (c *TuningConfig) GetFSRScorer() string   { return valueOr(c.FSRScorer, defaultFSRScorer) }

// GetFSRPhotonSelection returns the photon eligibility cuts; empty means
// every photon is eligible.
func (c *TuningConfig) GetFSRPhotonSelection() []reco.AnnotationCut {
	return valueOr(c.FSRPhotonSelection, nil)
}

// GetFSRElectronSelection returns the electron eligibility cuts, by
// default `userFloat(id_label) > 0.5`.
func (c *TuningConfig) GetFSRElectronSelection() []reco.AnnotationCut {
	return valueOr(c.FSRElectronSelection, []reco.AnnotationCut{{Name: c.GetIDLabel(), Min: 0.5}})
}

// GetFSRMuonSelection returns the muon eligibility cuts, by default
// `userFloat(id_label) > 0.5`.
func (c *TuningConfig) GetFSRMuonSelection() []reco.AnnotationCut {
	return valueOr(c.FSRMuonSelection, []reco.AnnotationCut{{Name: c.GetIDLabel(), Min: 0.5}})
}

func (c *TuningConfig) GetIsoConeDRE() float64  { return valueOr(c.IsoConeDRE, defaultIsoConeDR) }
func (c *TuningConfig) GetIsoConeDRMu() float64 { return valueOr(c.IsoConeDRMu, defaultIsoConeDR) }
func (c *TuningConfig) GetIsoCutE() float64     { return valueOr(c.IsoCutE, defaultIsoCut) }
func (c *TuningConfig) GetIsoCutMu() float64    { return valueOr(c.IsoCutMu, defaultIsoCut) }

func (c *TuningConfig) GetJetCleanMinDR() float64 {
	return valueOr(c.JetCleanMinDR, defaultJetCleanMinDR)
}

func (c *TuningConfig) GetJetCleanLeptons() bool { return valueOr(c.JetCleanLeptons, true) }
