package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/mindbloom/mindbloom-backend/internal/config"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/doctors"
	"github.com/mindbloom/mindbloom-backend/internal/hospitals"
	"github.com/mindbloom/mindbloom-backend/internal/seeds"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load(".env.local")
	file := flag.String("file", seeds.DefaultDirectoryFile, "Directory seed YAML (doctors and hospitals)")
	admin := flag.String("admin", "", "Promote this registered email to admin")
	skipDirectory := flag.Bool("skip-directory", false, "Only run --admin")
	flag.Parse()

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}
	if err := db.Connect(cfg.DatabaseURL); err != nil {
		logrus.Fatal(err)
	}

	if !*skipDirectory {
		doctors.Init()
		hospitals.Init()
		if err := seeds.SeedAll(*file); err != nil {
			logrus.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	if *admin != "" {
		if err := seeds.PromoteAdmin(*admin); err != nil {
			logrus.Fatalf("❌ %v", err)
		}
	}
}
