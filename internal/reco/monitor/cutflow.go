package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/hzz.report/internal/httputil"
	"github.com/banshee-data/hzz.report/internal/reco/replay"
	"github.com/banshee-data/hzz.report/internal/reco/storage/sqlite"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderCutflow writes an HTML page with the cutflow as a grouped bar
// chart: collection size before and after every stage.
func RenderCutflow(w io.Writer, title string, rows []replay.CutflowRow) error {
	x := make([]string, len(rows))
	in := make([]opts.BarData, len(rows))
	out := make([]opts.BarData, len(rows))
	for i, r := range rows {
		x[i] = fmt.Sprintf("%s/%s", r.Stage, r.Role)
		in[i] = opts.BarData{Value: r.In}
		out[i] = opts.BarData{Value: r.Out}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Cutflow", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("in", in).
		AddSeries("out", out,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)
	return page.Render(w)
}

// RunSource is the part of the run store the HTTP handlers need.
type RunSource interface {
	GetRun(runID string) (*sqlite.Run, error)
	ListRuns(limit int) ([]*sqlite.Run, error)
	ListCutflow(runID string) ([]replay.CutflowRow, error)
}

// NewMux routes /runs (JSON run list) and /cutflow (chart of one run).
func NewMux(src RunSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/runs", RunsHandler(src))
	mux.Handle("/cutflow", CutflowHandler(src))
	return mux
}

// RunsHandler lists recorded runs, newest first. The optional limit query
// parameter caps the number returned.
func RunsHandler(src RunSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
				return
			}
			limit = n
		}
		runs, err := src.ListRuns(limit)
		if err != nil {
			log.Printf("[monitor] list runs: %v", err)
			httputil.InternalServerError(w, "failed to list runs")
			return
		}
		if runs == nil {
			runs = []*sqlite.Run{}
		}
		httputil.WriteJSON(w, http.StatusOK, runs)
	})
}

// CutflowHandler serves the cutflow chart of the run named by the run_id
// query parameter.
func CutflowHandler(src RunSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runID := r.URL.Query().Get("run_id")
		if runID == "" {
			httputil.BadRequest(w, "missing run_id")
			return
		}
		run, err := src.GetRun(runID)
		if errors.Is(err, sqlite.ErrRunNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		if err != nil {
			log.Printf("[monitor] get run %s: %v", runID, err)
			httputil.InternalServerError(w, "failed to load run")
			return
		}
		rows, err := src.ListCutflow(runID)
		if err != nil {
			log.Printf("[monitor] cutflow %s: %v", runID, err)
			httputil.InternalServerError(w, "failed to load cutflow")
			return
		}

		var buf bytes.Buffer
		if err := RenderCutflow(&buf, fmt.Sprintf("%s (%d events)", run.Source, run.Events), rows); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
