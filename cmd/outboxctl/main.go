// Package main inspects and prunes the audit outbox in PostgreSQL.
//
//	outboxctl pending
//	outboxctl prune -older-than 168h
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"zeropass/internal/platform/database"
	outboxpostgres "zeropass/pkg/platform/audit/outbox/store/postgres"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: outboxctl [-database-url URL] pending|prune [-older-than DURATION]")
	os.Exit(2)
}

func main() {
	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (defaults to DATABASE_URL)")
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}
	if *dbURL == "" {
		fmt.Fprintln(os.Stderr, "A database URL is required: pass -database-url or set DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := database.DefaultConfig()
	cfg.URL = *dbURL
	pool, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = pool.Close() }()
	store := outboxpostgres.New(pool.DB())

	switch cmd := flag.Arg(0); cmd {
	case "pending":
		n, err := store.CountPending(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting pending entries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d pending\n", n)
	case "prune":
		fs := flag.NewFlagSet("prune", flag.ExitOnError)
		olderThan := fs.Duration("older-than", 7*24*time.Hour, "Delete entries processed longer ago than this")
		_ = fs.Parse(flag.Args()[1:])
		if *olderThan <= 0 {
			fmt.Fprintln(os.Stderr, "-older-than must be positive")
			os.Exit(1)
		}
		n, err := store.DeleteProcessedBefore(ctx, time.Now().Add(-*olderThan))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning entries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d pruned\n", n)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
	}
}
