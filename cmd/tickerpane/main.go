package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tickerpane/internal/config"
	"tickerpane/internal/control"
	"tickerpane/internal/db"
	"tickerpane/internal/instance"
	"tickerpane/internal/notifications"
	"tickerpane/internal/pricecache"
	"tickerpane/internal/provider"
	"tickerpane/internal/render"
	"tickerpane/internal/repository"
	"tickerpane/internal/scheduler"
	"tickerpane/internal/ui"
	"tickerpane/internal/watchlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("[MAIN] Fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.LoadEnv()

	store, err := config.NewStore(env.ConfigPath)
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}

	lockPath := env.LockPath
	if lockPath == "" {
		lockPath = instance.DefaultPath(store.Path())
	}
	lock, err := instance.Acquire(lockPath)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		// Hand focus to the running instance and get out of its way.
		if ferr := control.SignalFocus(env.ControlPort); ferr != nil {
			fmt.Printf("[MAIN] Focus signal failed: %v\n", ferr)
		}
		fmt.Println("[MAIN] Already running, exiting")
		return nil
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	mgr := watchlist.NewManager(store)
	cache := pricecache.New()
	yahoo := provider.NewYahooClient()

	schedCfg := scheduler.Config{}
	var archive *repository.QuoteArchive

	// Quote archive is optional; a bad DSN should not keep the popup
	// from starting.
	if env.ArchiveDSN != "" {
		pool, err := db.Connect(env.ArchiveDSN)
		if err != nil {
			fmt.Printf("[MAIN] Archive disabled: %v\n", err)
		} else {
			defer pool.Close()
			a := repository.NewQuoteArchive(pool)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := a.EnsureSchema(ctx)
			cancel()
			if err != nil {
				fmt.Printf("[MAIN] Archive disabled: %v\n", err)
			} else {
				archive = a
				schedCfg.Recorder = a
			}
		}
	}

	if env.AlertMovePercent > 0 {
		sender := notifications.NewSender(env.WebhookURL, env.AlertName)
		alerter := notifications.NewMoveAlerter(sender, env.AlertMovePercent)
		schedCfg.OnQuotes = alerter.CheckQuotes
		fmt.Printf("[MAIN] Move alerts armed at %.2f%%\n", env.AlertMovePercent)
	}

	sched := scheduler.New(yahoo, cache, mgr, schedCfg)
	sched.Start()

	program := tea.NewProgram(ui.NewModel(mgr, cache, sched), tea.WithAltScreen())

	theme := mgr.Config().Theme
	var history control.HistorySource
	if archive != nil {
		history = archive
	}
	ctrl := control.NewServer(env.ControlPort, sched,
		func() []render.Row {
			return render.BuildRows(cache.Snapshot(), mgr.Symbols(), theme)
		},
		func() {
			program.Send(ui.FocusMsg{})
		},
		history)
	go func() {
		if err := ctrl.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("[CONTROL] Server stopped: %v\n", err)
		}
	}()

	_, runErr := program.Run()

	sched.Stop()
	mgr.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Shutdown(ctx); err != nil {
		fmt.Printf("[CONTROL] Shutdown: %v\n", err)
	}

	return runErr
}
