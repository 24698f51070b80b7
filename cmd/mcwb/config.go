package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hostyorkshire/MCWB/internal/bot"
	"github.com/hostyorkshire/MCWB/internal/protocol/session"
	"github.com/hostyorkshire/MCWB/internal/transport"
)

type appConfig struct {
	Port             string
	Baud             int
	Channel          int // -1 answers on every channel
	Announce         bool
	AnnounceInterval time.Duration
	AnnounceMessage  string
	StatusAddr       string
	CorsOrigins      []string
	Session          session.Config
}

func defaultAppConfig() appConfig {
	return appConfig{
		Baud:             transport.DefaultBaud,
		Channel:          -1,
		AnnounceInterval: bot.DefaultAnnounceInterval,
		AnnounceMessage:  bot.DefaultAnnounceMessage,
		Session:          session.DefaultConfig(),
	}
}

type fileConfig struct {
	Port             string   `toml:"port"`
	Baud             int      `toml:"baud"`
	Channel          int      `toml:"channel"`
	Announce         bool     `toml:"announce"`
	AnnounceInterval string   `toml:"announce_interval"`
	AnnounceMessage  string   `toml:"announce_message"`
	StatusAddr       string   `toml:"status_addr"`
	CorsOrigins      []string `toml:"cors_origins"`
	AppName          string   `toml:"app_name"`
	HandshakeTimeout string   `toml:"handshake_timeout"`
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return appConfig{}, fmt.Errorf("config baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("channel") {
		cfg.Channel = raw.Channel
	}
	if meta.IsDefined("announce") {
		cfg.Announce = raw.Announce
	}
	if meta.IsDefined("announce_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AnnounceInterval))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse announce_interval: %w", err)
		}
		cfg.AnnounceInterval = d
	}
	if meta.IsDefined("announce_message") {
		cfg.AnnounceMessage = raw.AnnounceMessage
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("app_name") {
		name := strings.TrimSpace(raw.AppName)
		if name != "" {
			cfg.Session.AppName = name
		}
	}
	if meta.IsDefined("handshake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HandshakeTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse handshake_timeout: %w", err)
		}
		cfg.Session.HandshakeTimeout = d
	}

	return cfg, nil
}
