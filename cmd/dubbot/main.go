package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/clock"
	"github.com/EgorLis/dubbot/internal/config"
	"github.com/EgorLis/dubbot/internal/dubclient"
	"github.com/EgorLis/dubbot/internal/hotkey"
	"github.com/EgorLis/dubbot/internal/plugin"
	_ "github.com/EgorLis/dubbot/internal/plugin/builtin"
	"github.com/EgorLis/dubbot/internal/recorder"
	"github.com/EgorLis/dubbot/internal/room"
	"github.com/EgorLis/dubbot/internal/statusapi"
	"github.com/EgorLis/dubbot/internal/translate"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		replayPath string
		verbose    bool
	)
	flags := pflag.NewFlagSet("dubbot", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "config file (.json, .jsonc, .yaml); default $"+config.EnvPath+" or "+config.DefaultPath)
	flags.StringVar(&replayPath, "replay", "", "replay a recorded event file offline and print the resulting room snapshot")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	path := config.Path(configPath)
	cfg, created, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr, verbose)
	if created {
		log.Printf("config %s not found, defaults written", path)
	}

	if replayPath != "" {
		return replay(replayPath, cfg, logger, os.Stdout)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := dubclient.New(cfg.Client(), logger.With("component", "dubclient"))
	b := bot.New(client, cfg.BotOptions(logger))

	if cfg.RecordFile != "" {
		rec, err := recorder.Create(cfg.RecordFile, logger.With("component", "recorder"))
		if err != nil {
			return err
		}
		defer rec.Close()
		b.Tap(rec.Record)
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	if _, err := plugin.Load(b, plugin.Manifest{Commands: cfg.Commands, Listeners: cfg.Listeners}); err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		srv := statusapi.New(b, logger.With("component", "statusapi"))
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				logger.Error("status api stopped", "err", err)
			}
		}()
	}

	if cfg.Hotkeys {
		hk, err := hotkey.New(hotkey.ForBot(b, logger.With("component", "hotkey")), logger)
		if err == nil {
			err = hk.Start()
		}
		if err != nil {
			logger.Warn("hotkeys disabled", "err", err)
		} else {
			defer hk.Close()
		}
	}

	log.Println("running… press Ctrl+C to stop")
	return b.Run(ctx)
}

// replay прогоняет записанные события через переводчик и трекер без
// сети. Часы переводчика идут по времени получения из записи.
func replay(path string, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	clk := clock.Fake(clock.Real().Now())
	tr := translate.New(clk, logger.With("component", "translate"))
	tracker := room.New(cfg.MaxChatHistory, cfg.MaxPlayHistory, clk, logger.With("component", "room"))

	var total, dropped int
	err := recorder.Replay(path, func(e recorder.Entry) error {
		total++
		if !e.ReceivedAt.IsZero() {
			clk.Set(e.ReceivedAt)
		}
		ev := tr.Translate(e.Type, e.Data)
		if ev == nil {
			dropped++
			return nil
		}
		tracker.Apply(ev)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("replay done", "events", total, "dropped", dropped)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(tracker.Snapshot())
}
