package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
	"lautenbacher.net/piezoleds/logging"
	pl "lautenbacher.net/piezoleds/platform"
	u "lautenbacher.net/piezoleds/util"
)

// The terminal can't redraw faster than this anyway.
const tuiFrameDelay = 20 * time.Millisecond

type App struct {
	conf       *c.Config
	platform   pl.Platform
	engine     *glow.Engine
	ossignal   chan os.Signal
	cancel     context.CancelFunc
	shutdownWg sync.WaitGroup
}

func NewApp(conf *c.Config, ossignal chan os.Signal) *App {
	return &App{
		conf:     conf,
		ossignal: ossignal,
	}
}

func (a *App) newPlatform() (pl.Platform, error) {
	if !a.conf.RealHW {
		return pl.NewTUIPlatform(a.conf, a.ossignal), nil
	}
	switch strings.ToLower(a.conf.Hardware.Platform) {
	case "rpi":
		return pl.NewRaspberryPiPlatform(a.conf), nil
	case "bridge":
		return pl.NewBridgePlatform(a.conf), nil
	default:
		return nil, fmt.Errorf("unknown hardware platform: %s", a.conf.Hardware.Platform)
	}
}

// initialise starts the platform, draws the startup randomness once and
// starts the render loop.
func (a *App) initialise() error {
	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	select {
	case <-a.platform.Ready():
	case sig := <-a.ossignal:
		return fmt.Errorf("platform did not become ready: %v", sig)
	}

	seed := glow.NewSeedParams(glow.NewRandomizer(a.platform.ReadNoise()))

	glowConf := a.conf.Glow
	if !a.conf.RealHW && glowConf.FrameDelay == 0 {
		glowConf.FrameDelay = tuiFrameDelay
	}
	a.engine = glow.NewEngine(glowConf, a.platform, a.platform, seed, u.RealClock{})
	a.platform.WatchStatus(a.engine.Status())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()
		if err := a.engine.Run(ctx); err != nil {
			slog.Error("Glow engine failed", "error", err)
		}
	}()
	return nil
}

func (a *App) shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	a.shutdownWg.Wait()
	if !a.conf.RealHW {
		// the log pane goes away with the TUI
		logging.BufferOutput()
	}
	a.platform.Stop()
}

// run blocks until a signal arrives.
func (a *App) run() error {
	if err := a.initialise(); err != nil {
		a.platform.Stop()
		return err
	}
	sig := <-a.ossignal
	slog.Info("Shutting down", "signal", sig)
	a.shutdown()
	return nil
}

func main() {
	cfile := flag.String("config", c.CONFILE, "Config file to use")
	realp := flag.Bool("real", false, "Set to true if program runs on real hardware")
	flag.Parse()

	conf, err := c.ReadConfig(*cfile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	conf.RealHW = *realp

	logCfg := conf.Logging.TUI
	if conf.RealHW {
		logCfg = conf.Logging.HW
	}
	if err := logging.Init(!conf.RealHW, logCfg.Level, logCfg.Format, logCfg.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logging: %v\n", err)
		os.Exit(1)
	}
	slog.Info("Starting piezoleds", "config", conf.Configfile, "realHW", conf.RealHW,
		"leds", conf.Glow.LedsTotal, "passive", conf.Glow.Passive, "panic", conf.Glow.Panic)

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM)

	app := NewApp(conf, ossignal)
	app.platform, err = app.newPlatform()
	if err == nil {
		err = app.run()
	}
	if err != nil {
		slog.Error("piezoleds failed", "error", err)
		logging.Close()
		os.Exit(1)
	}
	if err := logging.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err)
	}
}
