package db

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// TailSQLPrefix is where the read-only SQL console is mounted.
const TailSQLPrefix = "/debug/tailsql/"

// AttachAdminRoutes mounts the debug index on mux with a SQL console over
// the run tables and a backup download. tsweb restricts /debug/ to
// loopback and tailnet callers.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: TailSQLPrefix,
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Reco runs (reco_runs, reco_run_cutflow, reco_run_failures)",
	})
	debug.Handle("tailsql/", "SQL over recorded replay runs", tsql.NewMux())

	debug.Handle("backup", "Download a consistent copy of the run database", http.HandlerFunc(db.serveBackup))
	return nil
}

// serveBackup snapshots the database with VACUUM INTO and streams the copy.
func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "hzzrefine-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[db] remove backup dir %s: %v", dir, err)
		}
	}()

	name := "reco-runs-backup.db"
	path := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}
