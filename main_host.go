//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tock/app"
	"tock/hal"
	"tock/internal/config"
)

func main() {
	var (
		configPath string
		frontend   string
		hz         int
		ticks      uint64
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML board configuration.")
	flag.StringVar(&frontend, "frontend", "", "Frontend: headless, window or terminal (overrides config).")
	flag.IntVar(&hz, "hz", 0, "Frame rate (overrides config).")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N frames in headless mode (0 = until the demo exits).")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if frontend != "" {
		cfg.Frontend = frontend
	}
	if hz != 0 {
		cfg.Hz = hz
	}
	if ticks != 0 {
		cfg.Ticks = ticks
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	newApp := func(h hal.HAL) func() error { return app.New(h, cfg) }
	host := hal.HostConfig{
		TickHz:  cfg.Kernel.AlarmFrequency,
		Buttons: cfg.Kernel.Buttons,
		Stdin:   cfg.EchoStdin && cfg.Frontend == config.FrontendHeadless,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cfg.Frontend {
	case config.FrontendWindow:
		err = hal.RunWindow(newApp, hal.WindowConfig{Host: host})
	case config.FrontendTerminal:
		err = hal.RunTerminal(ctx, newApp, hal.TerminalConfig{Hz: cfg.Hz, Host: host})
	default:
		err = hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{Hz: cfg.Hz, Ticks: cfg.Ticks, Host: host})
	}
	if errors.Is(err, app.ErrExited) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
