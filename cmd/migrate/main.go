// Package main provides the migration CLI for the ingestion core's
// PostgreSQL schema, driving internal/migration.Manager against the
// migrations/ directory bundled with the binary.
//
// Usage:
//
//	go run cmd/migrate/main.go up               # apply all pending migrations
//	go run cmd/migrate/main.go down              # roll back one migration
//	go run cmd/migrate/main.go status            # print current version and dirty flag
//	go run cmd/migrate/main.go force -version 3  # clear a dirty flag at a known-good version
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/config"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/migration"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	version := fs.Int("version", 0, "target version for the force command")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	mgr, err := migration.New(cfg.Database.URL, cfg.Database.MigrationsPath, cfg.Database.MigrationsTable)
	if err != nil {
		log.Fatalf("opening migration manager: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Printf("warning: closing migration manager: %v", err)
		}
	}()

	switch command {
	case "up":
		if err := mgr.Up(); err != nil {
			log.Fatalf("applying migrations: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := mgr.Down(); err != nil {
			log.Fatalf("rolling back migration: %v", err)
		}
		fmt.Println("rolled back one migration")
	case "status":
		v, dirty, err := mgr.Status()
		if err != nil {
			log.Fatalf("reading migration status: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
	case "force":
		if *version <= 0 {
			log.Fatal("force requires -version")
		}
		if err := mgr.Force(*version); err != nil {
			log.Fatalf("forcing version: %v", err)
		}
		fmt.Printf("forced version=%d\n", *version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status|force> [-version N]")
}
