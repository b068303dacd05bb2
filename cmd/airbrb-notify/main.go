package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nhle/airbrb-notify/internal/app"
	"github.com/nhle/airbrb-notify/internal/credential"
	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/notify"
	"github.com/nhle/airbrb-notify/internal/source/airbrb"
	"github.com/nhle/airbrb-notify/internal/store"
	appsync "github.com/nhle/airbrb-notify/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "airbrb-notify:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	dumpConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	// AIRBRB_* overrides may come from a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if *dumpConfig {
		return writeConfig(*configPath)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logFile, err := initLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx := context.Background()

	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer kv.Close()

	factory := airbrb.NewFactory(
		cfg.Backend.BaseURL,
		airbrb.WithHTTPClient(&http.Client{Timeout: cfg.Poll.FetchTimeout()}),
		airbrb.WithMaxRetries(cfg.Backend.MaxRetries),
	)

	engine := notify.NewEngine(factory, kv, notify.Config{
		Retention:         cfg.Poll.Retention,
		FetchTimeout:      cfg.Poll.FetchTimeout(),
		DetailConcurrency: cfg.Poll.DetailConcurrency,
	})
	poller := appsync.New(engine, cfg.Poll.Interval())
	defer poller.Stop()

	slog.Info("starting",
		"backend", cfg.Backend.BaseURL,
		"store", cfg.Store.Driver,
		"interval", cfg.Poll.Interval().String())

	p := tea.NewProgram(app.New(poller, credential.NewVault()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// writeConfig saves the effective configuration, file values merged with
// defaults and AIRBRB_* overrides, back to path.
func writeConfig(path string) error {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}
