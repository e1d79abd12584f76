package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hzz.report/internal/reco/registry"
	"github.com/banshee-data/hzz.report/internal/reco/replay"
	"github.com/banshee-data/hzz.report/internal/reco/storage/sqlite"
)

var pngMagic = []byte("\x89PNG")

func sampleCutflow() []replay.CutflowRow {
	return []replay.CutflowRow{
		{Stage: "vertexCleaning", Role: registry.Vertices, In: 10, Out: 8},
		{Stage: "jetFSRCleaning", Role: registry.Jets, In: 12, Out: 7},
	}
}

func TestWriteFSRPlots(t *testing.T) {
	dir := t.TempDir()
	sum := &replay.Summary{
		FSRDeltaR:   []float64{0.05, 0.1, 0.12, 0.3, 0.45},
		FSRPhotonPt: []float64{2.5, 4, 7, 11, 30},
	}

	files, err := WriteFSRPlots(dir, sum)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, FSRDeltaRFile), filepath.Join(dir, FSRPhotonPtFile)}, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", f)
	}
}

func TestWriteFSRPlotsWithoutMatches(t *testing.T) {
	dir := t.TempDir()
	files, err := WriteFSRPlots(dir, &replay.Summary{})
	require.NoError(t, err)
	assert.Empty(t, files)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteHistogramRejectsEmpty(t *testing.T) {
	err := WriteHistogram(filepath.Join(t.TempDir(), "x.png"), "empty", "x", nil, 10)
	assert.Error(t, err)
}

func TestRenderCutflow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCutflow(&buf, "sample.jsonl", sampleCutflow()))

	html := buf.String()
	assert.Contains(t, html, "Cutflow")
	assert.Contains(t, html, "sample.jsonl")
	assert.Contains(t, html, "vertexCleaning")
	assert.Contains(t, html, "jetFSRCleaning")
}

type fakeRuns struct {
	runs    map[string]*sqlite.Run
	cutflow []replay.CutflowRow
	err     error
}

func (f *fakeRuns) GetRun(runID string) (*sqlite.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, sqlite.ErrRunNotFound)
	}
	return r, nil
}

func (f *fakeRuns) ListCutflow(string) ([]replay.CutflowRow, error) {
	return f.cutflow, nil
}

func (f *fakeRuns) ListRuns(limit int) ([]*sqlite.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*sqlite.Run
	for _, r := range f.runs {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func TestCutflowHandler(t *testing.T) {
	src := &fakeRuns{
		runs:    map[string]*sqlite.Run{"abc": {RunID: "abc", Source: "events.jsonl", Events: 4}},
		cutflow: sampleCutflow(),
	}

	tests := []struct {
		name     string
		src      *fakeRuns
		query    string
		wantCode int
	}{
		{"missing run id", src, "", http.StatusBadRequest},
		{"unknown run", src, "?run_id=nope", http.StatusNotFound},
		{"store failure", &fakeRuns{err: errors.New("disk I/O error")}, "?run_id=abc", http.StatusInternalServerError},
		{"ok", src, "?run_id=abc", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CutflowHandler(tt.src).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cutflow"+tt.query, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "events.jsonl (4 events)")
			}
		})
	}
}

func TestRunsHandler(t *testing.T) {
	src := &fakeRuns{runs: map[string]*sqlite.Run{"abc": {RunID: "abc", Source: "events.jsonl", Events: 4}}}
	mux := NewMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"abc"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewMux(&fakeRuns{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
