// Command hzzrefine replays recorded events through the HZZ refinement
// pipeline and reports the cutflow and FSR association diagnostics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/db"
	"github.com/banshee-data/hzz.report/internal/reco/monitor"
	"github.com/banshee-data/hzz.report/internal/reco/pipeline"
	"github.com/banshee-data/hzz.report/internal/reco/replay"
	"github.com/banshee-data/hzz.report/internal/reco/storage/sqlite"
	"github.com/banshee-data/hzz.report/internal/version"
)

// Config holds the command line options.
type Config struct {
	ConfigFile  string
	EventsFile  string
	Workers     int
	DBPath      string
	PlotsDir    string
	CutflowHTML string
	Listen      string
	Verbose     bool
	Trace       bool
	Version     bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("hzzrefine", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Tuning config JSON (default: "+config.DefaultConfigPath+")")
	fs.StringVar(&cfg.EventsFile, "events", "", "JSON-lines event file, '-' for stdin (required)")
	fs.IntVar(&cfg.Workers, "workers", 0, "Concurrent events (0 = GOMAXPROCS)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database for the run record (optional)")
	fs.StringVar(&cfg.PlotsDir, "plots", "", "Directory for FSR histograms (optional)")
	fs.StringVar(&cfg.CutflowHTML, "cutflow-html", "", "Write the cutflow chart to this HTML file (optional)")
	fs.StringVar(&cfg.Listen, "listen", "", "Serve recorded cutflows on this address after the run, requires -db")
	fs.BoolVar(&cfg.Verbose, "v", false, "Log per-event summaries")
	fs.BoolVar(&cfg.Trace, "trace", false, "Log per-stage cutflow for every event")
	fs.BoolVar(&cfg.Version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.Version {
		return cfg, nil
	}
	if cfg.EventsFile == "" {
		return cfg, fmt.Errorf("-events is required")
	}
	if cfg.Listen != "" && cfg.DBPath == "" {
		return cfg, fmt.Errorf("-listen requires -db")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cfg.Version {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("[hzzrefine] %v", err)
	}
}

// loadTuning reads path, or the defaults file when path is empty and the
// file exists, or falls back to the built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.DefaultTuningConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadTuningConfig(path)
}

func openEvents(path string, stdin io.Reader) ([]*pipeline.Event, error) {
	if path == "-" {
		return replay.ReadEvents(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return replay.ReadEvents(f)
}

func run(ctx context.Context, cfg Config, stdin io.Reader, stdout io.Writer) error {
	var diag, trace io.Writer
	if cfg.Verbose || cfg.Trace {
		diag = os.Stderr
	}
	if cfg.Trace {
		trace = os.Stderr
	}
	pipeline.SetLogWriters(os.Stderr, diag, trace)

	tuning, err := loadTuning(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pcfg, err := pipeline.ConfigFromTuning(tuning)
	if err != nil {
		return fmt.Errorf("build stages: %w", err)
	}
	p, err := pipeline.New(pcfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	events, err := openEvents(cfg.EventsFile, stdin)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	log.Printf("[hzzrefine] replaying %d events through %d stages", len(events), len(p.Stages()))

	outcomes, err := replay.Run(ctx, p, events, replay.Options{Workers: cfg.Workers})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	sum := replay.Summarize(outcomes)
	printSummary(stdout, sum)

	if cfg.PlotsDir != "" {
		if err := os.MkdirAll(cfg.PlotsDir, 0755); err != nil {
			return fmt.Errorf("create plots dir: %w", err)
		}
		files, err := monitor.WriteFSRPlots(cfg.PlotsDir, sum)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		for _, f := range files {
			log.Printf("[hzzrefine] wrote %s", f)
		}
	}

	if cfg.CutflowHTML != "" {
		if err := writeCutflowHTML(cfg.CutflowHTML, filepath.Base(cfg.EventsFile), sum); err != nil {
			return err
		}
	}

	if cfg.DBPath == "" {
		return nil
	}
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	params, err := json.Marshal(tuning)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	store := sqlite.NewRunStore(database.DB)
	rec, err := store.RecordRun(cfg.EventsFile, params, sum)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id: %s\n", rec.RunID)

	if cfg.Listen != "" {
		mux, err := newServeMux(database, store)
		if err != nil {
			return err
		}
		return serve(ctx, cfg.Listen, mux)
	}
	return nil
}

func writeCutflowHTML(path, title string, sum *replay.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := monitor.RenderCutflow(f, title, sum.Cutflow); err != nil {
		f.Close()
		return fmt.Errorf("render cutflow: %w", err)
	}
	return f.Close()
}

// newServeMux routes the monitor handlers and the database admin pages.
func newServeMux(database *db.DB, store *sqlite.RunStore) (*http.ServeMux, error) {
	mux := monitor.NewMux(store)
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, fmt.Errorf("admin routes: %w", err)
	}
	return mux, nil
}

func serve(ctx context.Context, addr string, mux *http.ServeMux) error {
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Printf("[hzzrefine] serving run records on http://%s/runs (sql console at %s)", addr, db.TailSQLPrefix)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func printSummary(w io.Writer, sum *replay.Summary) {
	fmt.Fprintf(w, "events: %d processed: %d failed: %d\n", sum.Events, sum.Processed, len(sum.Failures))
	fmt.Fprintf(w, "fsr matches: %d (per event mean %.3f, stddev %.3f)\n",
		len(sum.FSRDeltaR), sum.MatchesMean, sum.MatchesStdDev)
	fmt.Fprintln(w, "cutflow:")
	for _, row := range sum.Cutflow {
		fmt.Fprintf(w, "  %-24s %-12s %8d -> %8d\n", row.Stage, row.Role, row.In, row.Out)
	}
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "failed %s [%s]: %s\n", f.EventID, f.Stage, f.Error)
	}
}
