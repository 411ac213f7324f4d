// Command migrate creates the database schema and optionally imports a CSV of
// previously recorded history rows: username,material[,co2_saved_kg].
// A missing CO2 value is estimated from the catalog.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/repository/sqlite"
	"ecoscanner/internal/service/impact"
)

func main() {
	dbPath := flag.String("db", "data/eco_scanner.db", "Database path")
	csvPath := flag.String("history", "", "CSV file with history rows to import")
	catalogPath := flag.String("catalog", "", "Catalog YAML used to estimate missing CO2 values")
	weight := flag.Float64("weight", 25, "Per-item weight in grams used for estimates")
	flag.Parse()

	fmt.Printf("Migrating database %s\n", *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *csvPath == "" {
		fmt.Println("✅ Schema is up to date")
		return
	}

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open history file: %v", err)
	}
	defer f.Close()

	history := sqlite.NewHistoryRepository(db)
	ctx := context.Background()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	imported, skipped, line := 0, 0, 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Printf("⚠️  Skipping line %d: %v", line, err)
			skipped++
			continue
		}
		if line == 1 && strings.EqualFold(row[0], "username") {
			continue
		}

		username, material, co2, err := parseRow(row, cat, *weight)
		if err != nil {
			log.Printf("⚠️  Skipping line %d: %v", line, err)
			skipped++
			continue
		}

		if _, err := history.Append(ctx, username, material, co2); err != nil {
			log.Fatalf("Failed to insert line %d: %v", line, err)
		}
		imported++
	}

	fmt.Printf("✅ Imported %d history rows\n", imported)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d rows (invalid format or errors)\n", skipped)
	}

	// Show stats
	leaders, err := history.Leaderboard(ctx)
	if err == nil {
		fmt.Printf("\n📊 Leaderboard:\n")
		for i, entry := range leaders {
			fmt.Printf("   %d. %s: %.4f kg CO2\n", i+1, entry.Username, entry.TotalCO2SavedKg)
		}
	}
}

func parseRow(row []string, cat *catalog.Catalog, weightGrams float64) (string, catalog.Category, float64, error) {
	if len(row) < 2 {
		return "", "", 0, fmt.Errorf("expected at least 2 fields, got %d", len(row))
	}
	username := strings.TrimSpace(row[0])
	if username == "" {
		return "", "", 0, fmt.Errorf("empty username")
	}
	material := catalog.Category(strings.ToLower(strings.TrimSpace(row[1])))
	if !material.Valid() {
		return "", "", 0, fmt.Errorf("unknown material %q", row[1])
	}

	if len(row) < 3 || strings.TrimSpace(row[2]) == "" {
		return username, material, impact.Estimate(cat, material, weightGrams), nil
	}
	co2, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil || co2 < 0 {
		return "", "", 0, fmt.Errorf("invalid co2 value %q", row[2])
	}
	return username, material, co2, nil
}
