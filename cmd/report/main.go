// Command report prints monthly donation totals for a year.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"nanas/pkg/report"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	year := flag.Int("year", time.Now().UTC().Year(), "calendar year (UTC)")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	totals, err := report.MonthlyTotals(context.Background(), db, *year)
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	report.Print(os.Stdout, *year, totals)
}
