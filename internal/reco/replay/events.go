package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/pipeline"
)

// maxLineBytes bounds one JSON event line.
const maxLineBytes = 16 << 20

// EventRecord is the on-disk form of one event.
type EventRecord struct {
	Run          uint32            `json:"run"`
	Lumi         uint32            `json:"lumi"`
	Event        uint64            `json:"event"`
	Rho          float64           `json:"rho"`
	Vertices     []reco.Vertex     `json:"vertices"`
	Electrons    []CandidateRecord `json:"electrons"`
	Muons        []CandidateRecord `json:"muons"`
	Jets         []CandidateRecord `json:"jets"`
	PFCandidates []CandidateRecord `json:"pf_candidates"`
}

// CandidateRecord is the on-disk form of one candidate. Its key is taken
// from the collection it appears in and its position there.
type CandidateRecord struct {
	Pt          float64            `json:"pt"`
	Eta         float64            `json:"eta"`
	Phi         float64            `json:"phi"`
	Mass        float64            `json:"mass,omitempty"`
	Charge      int                `json:"charge,omitempty"`
	PdgID       int                `json:"pdg_id,omitempty"`
	Vx          float64            `json:"vx,omitempty"`
	Vy          float64            `json:"vy,omitempty"`
	Vz          float64            `json:"vz,omitempty"`
	IP3D        float64            `json:"ip3d,omitempty"`
	IP3DErr     float64            `json:"ip3d_err,omitempty"`
	MissingHits int                `json:"missing_hits,omitempty"`
	Iso         reco.IsoSums       `json:"iso"`
	Muon        *reco.MuonFlags    `json:"muon,omitempty"`
	UserFloats  map[string]float64 `json:"user_floats,omitempty"`
}

func (r CandidateRecord) candidate(key reco.Key) *reco.Candidate {
	c := &reco.Candidate{
		Key:         key,
		Pt:          r.Pt,
		Eta:         r.Eta,
		Phi:         r.Phi,
		Mass:        r.Mass,
		Charge:      r.Charge,
		PdgID:       r.PdgID,
		Vx:          r.Vx,
		Vy:          r.Vy,
		Vz:          r.Vz,
		IP3D:        r.IP3D,
		IP3DErr:     r.IP3DErr,
		MissingHits: r.MissingHits,
		Iso:         r.Iso,
	}
	if r.Muon != nil {
		c.Muon = *r.Muon
	}
	for name, v := range r.UserFloats {
		c.SetUserFloat(name, v)
	}
	return c
}

func candidates(kind reco.Kind, recs []CandidateRecord) []*reco.Candidate {
	out := make([]*reco.Candidate, len(recs))
	for i, r := range recs {
		out[i] = r.candidate(reco.Key{Kind: kind, Index: i})
	}
	return out
}

// PipelineEvent converts the record into the pipeline input contract.
func (r EventRecord) PipelineEvent() *pipeline.Event {
	return &pipeline.Event{
		Run:          r.Run,
		Lumi:         r.Lumi,
		Number:       r.Event,
		Rho:          r.Rho,
		Vertices:     r.Vertices,
		Electrons:    candidates(reco.KindElectron, r.Electrons),
		Muons:        candidates(reco.KindMuon, r.Muons),
		Jets:         candidates(reco.KindJet, r.Jets),
		PFCandidates: candidates(reco.KindPF, r.PFCandidates),
	}
}

// ReadEvents decodes JSON-lines events from r. Blank lines and lines
// starting with '#' are skipped.
func ReadEvents(r io.Reader) ([]*pipeline.Event, error) {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 64*1024), maxLineBytes)

	var events []*pipeline.Event
	line := 0
	for scan.Scan() {
		line++
		text := strings.TrimSpace(scan.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, rec.PipelineEvent())
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// WriteEvents encodes records as JSON lines.
func WriteEvents(w io.Writer, recs []EventRecord) error {
	enc := json.NewEncoder(w)
	for i, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}
