package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/pkg/config"
	"github.com/mholloway/cricket-fantasy/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Enable UUID extension for PostgreSQL
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.PlayerIdentity{},
		&models.PerformanceRecord{},
		&models.Match{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_perf_player_created ON performance_records(player_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_matches_club_status ON matches(club, status)",
		"CREATE INDEX IF NOT EXISTS idx_players_legacy ON players(club) WHERE is_legacy",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	tables := []string{
		"performance_records",
		"matches",
		"players",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// seedData loads a legacy roster and the season's opening fixtures. Legacy
// identities come from the old spreadsheet era: names only, no external ids,
// flagged so the first real performance activates them.
func seedData(db *database.DB) error {
	legacyNames := []string{
		"James Carter",
		"Tom Riley",
		"Adam Dunn",
		"Sam Whitfield",
		"Harry Eastwood",
		"Ollie Pearce",
		"Ben Hollis",
		"Matt Granger",
		"Chris Oldfield",
		"Dan Maskell",
		"Luke Farrow",
	}

	roster := make([]models.PlayerIdentity, 0, len(legacyNames))
	for _, name := range legacyNames {
		roster = append(roster, *models.NewLegacyPlayerIdentity(name, "Northfield CC", ""))
	}

	if err := db.Create(&roster).Error; err != nil {
		return fmt.Errorf("failed to seed legacy roster: %w", err)
	}
	logrus.Infof("Seeded %d legacy players for Northfield CC", len(roster))

	opening := time.Date(time.Now().Year(), time.May, 2, 13, 0, 0, 0, time.UTC)
	fixtures := []models.Match{
		{Ref: "nfc-2026-001", Club: "Northfield CC", Opponent: "Ashwell Park", Competition: "Division Two", Date: opening, Status: models.MatchPending},
		{Ref: "nfc-2026-002", Club: "Northfield CC", Opponent: "Holton", Competition: "Division Two", Date: opening.AddDate(0, 0, 7), Status: models.MatchPending},
		{Ref: "nfc-2026-003", Club: "Northfield CC", Opponent: "Braydon Sports", Competition: "League Cup", Date: opening.AddDate(0, 0, 12), Status: models.MatchPending},
	}

	if err := db.Create(&fixtures).Error; err != nil {
		logrus.Warnf("Failed to seed fixtures (may already exist): %v", err)
	} else {
		logrus.Infof("Seeded %d opening fixtures", len(fixtures))
	}

	if err := writeSampleRules("rules.yaml"); err != nil {
		return err
	}

	return nil
}

const sampleRules = `version: "2026.1"

run_bands:
  - up_to: 20
    rate: 1.0
  - up_to: 50
    rate: 1.3
  - up_to: 0
    rate: 1.6
reference_strike_rate: 100

wicket_bands:
  - up_to: 4
    rate: 22
  - up_to: 0
    rate: 32
reference_economy: 5.0
max_economy_factor: 3.0
maiden_points: 4

catch_points: 8
run_out_points: 10
stumping_points: 10
keeper_double_rate: true

half_century_bonus: 10
century_bonus: 25
duck_penalty: 10
allow_negative_total: false
floor_points: 0
`

// writeSampleRules drops a starter rule set next to the binary so RULES_PATH
// has something to point at. An existing file is never overwritten.
func writeSampleRules(path string) error {
	if _, err := os.Stat(path); err == nil {
		logrus.Infof("Rules file %s already exists, leaving it alone", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		return fmt.Errorf("failed to write sample rules: %w", err)
	}
	logrus.Infof("Wrote sample scoring rules to %s", path)
	return nil
}
