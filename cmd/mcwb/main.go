// mcwb bridges a MeshCore companion radio to the Open-Meteo weather
// API, answering "wx <location>" requests on LoRa channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/bot"
	"github.com/hostyorkshire/MCWB/internal/bridge"
	"github.com/hostyorkshire/MCWB/internal/logging"
	"github.com/hostyorkshire/MCWB/internal/observability"
	"github.com/hostyorkshire/MCWB/internal/status"
	"github.com/hostyorkshire/MCWB/internal/weather"
)

type cliArgs struct {
	configPath string
	port       string
	baud       int
	channel    int
	debug      bool
	announce   bool
	location   string
	statusAddr string
}

func parseArgs() cliArgs {
	var a cliArgs
	flag.StringVar(&a.configPath, "config", "", "path to a TOML config file")
	flag.StringVar(&a.port, "p", "", "serial port (e.g. /dev/ttyUSB0), auto-detects when omitted")
	flag.StringVar(&a.port, "port", "", "serial port (e.g. /dev/ttyUSB0), auto-detects when omitted")
	flag.IntVar(&a.baud, "b", 0, "baud rate")
	flag.IntVar(&a.baud, "baud", 0, "baud rate")
	flag.IntVar(&a.channel, "c", -1, "only answer on this channel slot")
	flag.IntVar(&a.channel, "channel", -1, "only answer on this channel slot")
	flag.BoolVar(&a.debug, "d", false, "enable debug logging")
	flag.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&a.announce, "a", false, "send periodic announcements")
	flag.BoolVar(&a.announce, "announce", false, "send periodic announcements")
	flag.StringVar(&a.location, "l", "", "look up weather for LOCATION and exit (no radio needed)")
	flag.StringVar(&a.location, "location", "", "look up weather for LOCATION and exit (no radio needed)")
	flag.StringVar(&a.statusAddr, "status-addr", "", "address for the status/metrics HTTP server")
	flag.Parse()
	return a
}

func main() {
	if err := run(parseArgs()); err != nil {
		fmt.Fprintf(os.Stderr, "mcwb: %v\n", err)
		os.Exit(1)
	}
}

func run(args cliArgs) error {
	logging.ConfigureRuntime("mcwb")
	if args.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// One-shot lookup needs no radio.
	if args.location != "" {
		report, err := weather.NewClient(weather.Config{}).Report(context.Background(), args.location)
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	}

	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}

	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridgeCfg := bridge.DefaultConfig()
	bridgeCfg.Port = cfg.Port
	bridgeCfg.Baud = cfg.Baud
	bridgeCfg.Session = cfg.Session
	link := bridge.New(bridgeCfg)

	botCfg := bot.Config{
		Announce:         cfg.Announce,
		AnnounceInterval: cfg.AnnounceInterval,
		AnnounceMessage:  cfg.AnnounceMessage,
	}
	if cfg.Channel >= 0 {
		slot := cfg.Channel
		botCfg.AllowedSlot = &slot
	}
	wx := bot.New(botCfg, link, weather.NewClient(weather.Config{}))
	link.OnMessage(wx.HandleMessage)

	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("radio link: %w", err)
	}
	defer link.Close()
	log.Info().Str("node", link.NodeName()).Msg("radio session established")

	var statusSrv *status.Server
	if cfg.StatusAddr != "" {
		statusSrv = status.New(status.Config{Addr: cfg.StatusAddr, AllowOrigins: cfg.CorsOrigins}, link)
		statusSrv.Start()
	}

	wx.Run(ctx)

	if statusSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}
	log.Info().Msg("stopped")
	return nil
}

// resolveConfig layers CLI flags over the optional config file.
func resolveConfig(args cliArgs) (appConfig, error) {
	cfg := defaultAppConfig()
	if args.configPath != "" {
		loaded, err := loadAppConfig(args.configPath)
		if err != nil {
			return appConfig{}, err
		}
		cfg = loaded
	}
	if args.port != "" {
		cfg.Port = args.port
	}
	if args.baud > 0 {
		cfg.Baud = args.baud
	}
	if args.channel >= 0 {
		cfg.Channel = args.channel
	}
	if args.announce {
		cfg.Announce = true
	}
	if args.statusAddr != "" {
		cfg.StatusAddr = args.statusAddr
	}
	return cfg, nil
}
