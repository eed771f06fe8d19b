package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/config"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/logger"
	"github.com/mindbloom/mindbloom-backend/internal/stressmap"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
)

var pincode = flag.String("pincode", "", "Recompute a single pincode (default: every pincode with submissions)")

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}
	logger.Setup(cfg.LogFile, cfg.LogLevel)

	if *pincode != "" && !utils.IsPincode(*pincode) {
		fatalf("--pincode must be exactly 6 digits")
	}

	if err := db.Connect(cfg.DatabaseURL); err != nil {
		fatalf("connect: %v", err)
	}

	svc := assessment.NewService(assessment.NewGormRepository(db.DB), stressmap.NewStore(db.DB))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *pincode != "" {
		agg, err := svc.Recompute(ctx, *pincode)
		if err != nil {
			fatalf("recompute %s: %v", *pincode, err)
		}
		level, _ := agg.StressLevel()
		fmt.Printf("%s: %d assessments, average %.2f, %s\n",
			agg.Pincode, agg.TotalAssessments, assessment.Round2(agg.AverageScore), level)
		return
	}

	n, err := svc.RecomputeAll(ctx)
	if err != nil {
		fatalf("recompute all: %v", err)
	}
	fmt.Printf("Recomputed %d regions ✅\n", n)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
