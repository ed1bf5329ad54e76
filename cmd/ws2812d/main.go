// ws2812d drives a WS2812 chain over SPI and exposes a websocket control
// surface for setting pixels and running wiring checks.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ws2812spi/internal/config"
	"github.com/coreman2200/ws2812spi/internal/loop"
	"github.com/coreman2200/ws2812spi/internal/ws"
	"github.com/coreman2200/ws2812spi/transport"
	"github.com/coreman2200/ws2812spi/ws2812"
)

func main() {
	def := config.Default()

	// ---- Flags (config.yaml overrides what it sets) ----
	var (
		numPixels  = flag.Int("n", def.NumPixels, "number of LEDs on the chain")
		trans      = flag.String("transport", def.Transport, "transport: spi | spidev | nrzled | sim")
		mode       = flag.String("mode", def.Mode, "show mode: sync | async")
		spiPort    = flag.String("spi-port", def.SPI.Port, "periph SPI port name (empty = first)")
		spiDev     = flag.String("spi-dev", def.SPI.Dev, "spidev device for -transport=spidev")
		speedHz    = flag.Int("speed-hz", def.SPI.SpeedHz, "SPI clock; the symbols assume 6400000")
		nrzSpeedHz = flag.Int("nrz-speed-hz", def.NRZLED.SpeedHz, "SPI clock for -transport=nrzled")
		fps        = flag.Int("fps", def.FPS, "frames per second")
		addr       = flag.String("addr", def.Addr, "HTTP listen address")
		logLevel   = flag.String("log-level", def.LogLevel, "zerolog level")
		patternArg = flag.String("pattern", "", "start a test pattern: index_sweep | rgb_channels | blink")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg := config.Config{
		NumPixels: *numPixels,
		Transport: *trans,
		Mode:      *mode,
		FPS:       *fps,
		Addr:      *addr,
		LogLevel:  *logLevel,
		Pattern:   *patternArg,
		SPI:       config.SPI{Port: *spiPort, Dev: *spiDev, SpeedHz: *speedHz},
		NRZLED:    config.NRZLED{SpeedHz: *nrzSpeedHz},
	}
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		merge(&cfg, c)
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("ws2812d")
	}
}

func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	t, closer, selected := openTransport(cfg)
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("transport close")
		}
	}()
	return serve(ctx, cfg, t, selected)
}

// serve runs the control server and the refresh loop on t until ctx is done,
// then leaves the chain dark. The driver is only ever touched through the
// state, and the final frame goes out after the loop has returned.
func serve(ctx context.Context, cfg config.Config, t ws2812.Transport, selected string) error {
	drv, err := ws2812.New(ws2812.Conf{NumPixels: cfg.NumPixels, Sync: t, Async: t})
	if err != nil {
		return err
	}

	state := ws.NewState(drv, cfg.Mode)
	state.Transport = selected
	if cfg.Pattern != "" {
		if r := state.Apply(ws.Command{Op: "pattern", Name: cfg.Pattern}); !r.OK {
			log.Warn().Str("pattern", cfg.Pattern).Str("error", r.Error).Msg("pattern not started")
		}
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/diag", state.HandleDiagWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ---- Run refresh loop & server ----
	looper := loop.New(cfg.FPS, state.Tick)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = looper.Run(ctx)
	}()
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("transport", selected).
			Str("mode", cfg.Mode).
			Int("pixels", cfg.NumPixels).
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server crashed")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	_ = srv.Close()
	<-loopDone

	if err := state.Close(); err != nil {
		log.Warn().Err(err).Msg("final dark frame")
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// openTransport returns the configured transport, falling back to the console
// simulation when the hardware cannot be opened.
func openTransport(cfg config.Config) (ws2812.Transport, io.Closer, string) {
	switch cfg.Transport {
	case "spi":
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed; falling back to SIM")
			break
		}
		s, err := transport.OpenSPI(cfg.SPI.Port, physic.Frequency(cfg.SPI.SpeedHz)*physic.Hertz)
		if err != nil {
			log.Warn().Err(err).Str("port", cfg.SPI.Port).Int("speed_hz", cfg.SPI.SpeedHz).Msg("SPI init failed; falling back to SIM")
			break
		}
		return s, s, "spi"

	case "spidev":
		s, err := transport.OpenSpidev(cfg.SPI.Dev, uint32(cfg.SPI.SpeedHz))
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.SPI.Dev).Msg("spidev init failed; falling back to SIM")
			break
		}
		return s, s, "spidev"

	case "nrzled":
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed; falling back to SIM")
			break
		}
		p, err := spireg.Open(cfg.SPI.Port)
		if err != nil {
			log.Warn().Err(err).Str("port", cfg.SPI.Port).Msg("SPI open failed; falling back to SIM")
			break
		}
		o := nrzled.Opts{
			NumPixels: cfg.NumPixels,
			Channels:  3,
			Freq:      physic.Frequency(cfg.NRZLED.SpeedHz) * physic.Hertz,
		}
		d, err := nrzled.NewSPI(p, &o)
		if err != nil {
			_ = p.Close()
			log.Warn().Err(err).Msg("nrzled init failed; falling back to SIM")
			break
		}
		m := transport.NewMirror(d)
		return m, closerFunc(func() error {
			_ = m.Close()
			return p.Close()
		}), "nrzled"

	case "sim":
	default:
		log.Warn().Str("transport", cfg.Transport).Msg("unknown transport; using SIM")
	}
	m := transport.NewMirror(screen.New(cfg.NumPixels))
	return m, nopCloser, "sim"
}

// merge copies every field c sets over cfg. Zero values count as unset, so a
// config file cannot ask for num_pixels: 0 or fps: 0; use the flags for that.
func merge(cfg *config.Config, c *config.Config) {
	if c.NumPixels > 0 {
		cfg.NumPixels = c.NumPixels
	}
	if c.Transport != "" {
		cfg.Transport = c.Transport
	}
	if c.Mode != "" {
		cfg.Mode = c.Mode
	}
	if c.FPS > 0 {
		cfg.FPS = c.FPS
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.Pattern != "" {
		cfg.Pattern = c.Pattern
	}
	if c.SPI.Port != "" {
		cfg.SPI.Port = c.SPI.Port
	}
	if c.SPI.Dev != "" {
		cfg.SPI.Dev = c.SPI.Dev
	}
	if c.SPI.SpeedHz != 0 {
		cfg.SPI.SpeedHz = c.SPI.SpeedHz
	}
	if c.NRZLED.SpeedHz != 0 {
		cfg.NRZLED.SpeedHz = c.NRZLED.SpeedHz
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
