package replay

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/hzz.report/internal/reco"
	"github.com/banshee-data/hzz.report/internal/reco/pipeline"
	"github.com/banshee-data/hzz.report/internal/reco/registry"
)

// Outcome is the result of one event; exactly one of Result and Err is set.
type Outcome struct {
	Index   int
	EventID string
	Result  *pipeline.Result
	Err     error
}

// Options tunes a replay run.
type Options struct {
	Workers int // <= 0 means GOMAXPROCS
}

// Run processes events with at most Options.Workers goroutines. Outcomes
// are returned in input order. A failed event is recorded in its Outcome
// and does not stop the run; only context cancellation does.
func Run(ctx context.Context, p *pipeline.Pipeline, events []*pipeline.Event, opts Options) ([]Outcome, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ev := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := Outcome{Index: i}
			if ev != nil {
				out.EventID = ev.ID()
			}
			out.Result, out.Err = p.Process(ev)
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// CutflowRow sums one StageStat row over all successful events.
type CutflowRow struct {
	Stage string
	Role  registry.Role
	In    int
	Out   int
}

// Failure describes one event the pipeline rejected.
type Failure struct {
	EventID string
	Stage   string // empty when the failure is not attributed to a stage
	Error   string
}

// Summary aggregates a replay run.
type Summary struct {
	Events    int
	Processed int
	Failures  []Failure
	Cutflow   []CutflowRow

	// One entry per FSR match.
	FSRDeltaR   []float64
	FSRPhotonPt []float64

	// Matches per successfully processed event.
	MatchesMean   float64
	MatchesStdDev float64
}

// Summarize folds outcomes into a Summary. Cutflow rows keep the order in
// which stages first appear.
func Summarize(outcomes []Outcome) *Summary {
	s := &Summary{Events: len(outcomes)}
	rowIndex := make(map[[2]string]int)
	var perEvent []float64

	for _, o := range outcomes {
		if o.Err != nil {
			f := Failure{EventID: o.EventID, Error: o.Err.Error()}
			var stageErr *reco.StageError
			if errors.As(o.Err, &stageErr) {
				f.Stage = stageErr.Stage
			}
			s.Failures = append(s.Failures, f)
			continue
		}
		s.Processed++
		for _, st := range o.Result.Cutflow {
			key := [2]string{st.Stage, string(st.Role)}
			i, ok := rowIndex[key]
			if !ok {
				i = len(s.Cutflow)
				rowIndex[key] = i
				s.Cutflow = append(s.Cutflow, CutflowRow{Stage: st.Stage, Role: st.Role})
			}
			s.Cutflow[i].In += st.In
			s.Cutflow[i].Out += st.Out
		}
		for _, m := range o.Result.Matches {
			s.FSRDeltaR = append(s.FSRDeltaR, m.DR)
			s.FSRPhotonPt = append(s.FSRPhotonPt, m.PhotonPt)
		}
		perEvent = append(perEvent, float64(len(o.Result.Matches)))
	}

	s.MatchesMean, s.MatchesStdDev = meanStdDev(perEvent)
	return s
}
