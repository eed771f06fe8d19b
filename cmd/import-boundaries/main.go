package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/mindbloom/mindbloom-backend/internal/stressmap"
)

const insertBoundary = `INSERT INTO postal_boundaries
	(pincode, office_name, division, region, circle, wkb_geometry)
	VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_GeomFromWKB($6), 4326))`

// CLI flags
var (
	geojsonPath = flag.String("geojson", "", "Path to the postal boundary GeoJSON FeatureCollection (required)")
	dsn         = flag.String("db", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	truncate    = flag.Bool("truncate", false, "Empty postal_boundaries before loading")
	dryRun      = flag.Bool("dry-run", false, "Parse only; no DB writes")
	batchSize   = flag.Int("batch", 500, "Rows per pgx batch")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key. 0 = disabled")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *geojsonPath == "" {
		fatalf("--geojson is required")
	}
	if *batchSize <= 0 {
		fatalf("--batch must be positive")
	}

	rows, skipped, err := LoadFeatures(*geojsonPath)
	if err != nil {
		fatalf("GeoJSON error: %v", err)
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "skip: %s\n", s)
	}
	fmt.Printf("Loaded %d boundaries from %s (%d skipped)\n", len(rows), *geojsonPath, len(skipped))

	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if *dsn == "" {
		fatalf("--db not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		fatalf("postgis: %v", err)
	}
	for _, stmt := range stressmap.BoundaryDDL {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			fatalf("ddl: %v", err)
		}
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background()) // no-op if already committed
	}()

	if *advisoryKey != 0 {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	if *truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE postal_boundaries RESTART IDENTITY`); err != nil {
			fatalf("truncate: %v", err)
		}
		fmt.Println("Truncated postal_boundaries")
	}

	inserted, err := insertAll(ctx, tx, rows, *batchSize)
	if err != nil {
		fatalf("insert: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Import complete: %d boundaries ✅\n", inserted)
}

func insertAll(ctx context.Context, tx pgx.Tx, rows []BoundaryRow, size int) (int, error) {
	inserted := 0
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))

		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue(insertBoundary, r.Pincode, r.OfficeName, r.Division, r.Region, r.Circle, r.WKB)
		}

		br := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return inserted, fmt.Errorf("pincode %s: %w", rows[i].Pincode, err)
			}
			inserted++
		}
		if err := br.Close(); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
