// Command migrate applies the SQL files under migrations/ in name
// order, then tries to convert oee_data into a TimescaleDB hypertable.
// The hypertable step is best-effort: plain Postgres, or a table that
// already is a hypertable, only logs a warning.
package main

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"oee-backend/internal/config"
	"oee-backend/internal/dbadmin"
)

func main() {
	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	manager := dbadmin.NewManager(cfg.Database.URL, cfg.Database.ConfigFile, nil)
	dsn := manager.DSN()
	if dsn == "" {
		log.Fatal("no database configured: set DATABASE_URL or PG_DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatalf("no .sql files under %s", dir)
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("read %s: %v", file, err)
		}
		log.Printf("applying %s", file)
		for i, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				log.Fatalf("%s statement %d: %v", file, i+1, err)
			}
		}
	}

	if _, err := db.Exec("SELECT create_hypertable('oee_data', 'time', chunk_time_interval => INTERVAL '1 day')"); err != nil {
		log.Printf("hypertable not created (continuing): %v", err)
	} else {
		log.Print("oee_data converted to hypertable")
	}

	log.Print("migration complete")
}
