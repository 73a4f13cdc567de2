package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/chrissnell/mineralspec/pkg/config"
	"github.com/chrissnell/mineralspec/pkg/migrate"
	_ "modernc.org/sqlite"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "Path to the SQLite configuration database (required)")
		command = flag.String("command", "status", "One of: up, down, version, status")
		target  = flag.Int("target", -1, "Schema version to roll back to with -command down")
	)
	flag.Usage = usage
	flag.Parse()

	if *dbPath == "" {
		usage()
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *dbPath, err)
	}
	defer db.Close()

	m := migrate.NewMigrator(db, config.Migrations())

	switch *command {
	case "up":
		applied, err := m.Up()
		printMigrations(os.Stdout, "Applied", applied)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	case "down":
		if *target < 0 {
			log.Fatal("-target is required for -command down")
		}
		reverted, err := m.Down(*target)
		printMigrations(os.Stdout, "Reverted", reverted)
		if err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
	case "version":
		version, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		fmt.Println(version)
	case "status":
		if err := writeStatus(os.Stdout, m); err != nil {
			log.Fatalf("Failed to read status: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *command)
		usage()
		os.Exit(2)
	}
}

func printMigrations(w io.Writer, verb string, migrations []migrate.Migration) {
	if len(migrations) == 0 {
		fmt.Fprintf(w, "%s nothing\n", verb)
		return
	}
	for _, mig := range migrations {
		fmt.Fprintf(w, "%s %03d %s\n", verb, mig.Version, mig.Name)
	}
}

// writeStatus reports the schema history and the configuration tables.
// A required table that is absent is listed as missing.
func writeStatus(w io.Writer, m *migrate.Migrator) error {
	history, err := m.History()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	tables, err := m.Tables()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Schema history:")
	if len(history) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, a := range history {
		fmt.Fprintf(w, "  %03d %-24s %s\n", a.Version, a.Name, a.AppliedAt.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "Pending: %d\n", len(pending))
	for _, mig := range pending {
		fmt.Fprintf(w, "  %03d %s\n", mig.Version, mig.Name)
	}

	rows := make(map[string]int, len(tables))
	for _, t := range tables {
		rows[t.Name] = t.Rows
	}
	fmt.Fprintln(w, "Config tables:")
	for _, name := range config.Tables {
		if n, ok := rows[name]; ok {
			fmt.Fprintf(w, "  %-10s %d rows\n", name, n)
		} else {
			fmt.Fprintf(w, "  %-10s missing\n", name)
		}
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -db <config.db> [-command up|down|version|status] [-target N]\n", os.Args[0])
	flag.PrintDefaults()
}
