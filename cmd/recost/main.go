package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"larder/internal/config"
	"larder/internal/db"
	"larder/internal/db/mock"
	applog "larder/internal/log"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "recost failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		database, err = mock.New(ctx)
	} else {
		database, err = db.Initialize(cfg.Database)
		if err == nil {
			err = db.AutoMigrate(database)
		}
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	report, err := newRecoster(database, cfg.Conversion.CacheSize).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("recosted %d preparations and %d menu items: %d changed, %d stale lines\n",
		report.Preparations, report.MenuItems, report.Changed, report.StaleLines)
	return nil
}
