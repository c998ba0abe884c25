package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/LanceLiang2011/whoblockwho/types"
	"github.com/LanceLiang2011/whoblockwho/world"
)

type Config struct {
	Bot    types.BotConfig `yaml:"bot"`
	Server Server          `yaml:"server"`
}

type Server struct {
	ApiAddr       string `yaml:"apiAddr"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// loadConfig builds the configuration from .env, an optional config.yaml
// and environment variables, and returns it as an explicit value. There is
// no process-wide configuration state.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("bot.pdsUrl", world.DefaultPDSURL)
	v.SetDefault("bot.pollInterval", "30s")
	v.SetDefault("bot.maxPerPoll", 50)
	v.SetDefault("bot.requestTimeout", "10s")
	v.SetDefault("bot.ledgerCapacity", 1000)
	v.SetDefault("server.apiAddr", ":3000")

	v.BindEnv("bot.handle", "BSKY_HANDLE")
	v.BindEnv("bot.appPassword", "BSKY_APP_PASSWORD")
	v.BindEnv("bot.pollInterval", "POLL_INTERVAL")
	v.BindEnv("bot.maxPerPoll", "MAX_NOTIFICATIONS_PER_POLL")
	v.BindEnv("bot.pdsUrl", "PDS_URL")
	v.BindEnv("bot.requestTimeout", "REQUEST_TIMEOUT")
	v.BindEnv("server.apiAddr", "API_ADDR")
	v.BindEnv("server.memcachedAddr", "MEMCACHED_ADDR")
	v.BindEnv("server.enableTrace", "ENABLE_TRACE")
	v.BindEnv("server.traceEndpoint", "TRACE_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := Config{
		Bot: types.BotConfig{
			Handle:         v.GetString("bot.handle"),
			AppPassword:    v.GetString("bot.appPassword"),
			PDSURL:         v.GetString("bot.pdsUrl"),
			PollInterval:   v.GetDuration("bot.pollInterval"),
			MaxPerPoll:     v.GetInt("bot.maxPerPoll"),
			RequestTimeout: v.GetDuration("bot.requestTimeout"),
			LedgerCapacity: v.GetInt("bot.ledgerCapacity"),
		},
		Server: Server{
			ApiAddr:       v.GetString("server.apiAddr"),
			MemcachedAddr: v.GetString("server.memcachedAddr"),
			EnableTrace:   v.GetBool("server.enableTrace"),
			TraceEndpoint: v.GetString("server.traceEndpoint"),
		},
	}

	if config.Bot.Handle == "" {
		return Config{}, fmt.Errorf("BSKY_HANDLE is required")
	}
	if config.Bot.AppPassword == "" {
		return Config{}, fmt.Errorf("BSKY_APP_PASSWORD is required")
	}
	if !strings.Contains(config.Bot.Handle, ".") {
		return Config{}, fmt.Errorf("BSKY_HANDLE must be a full handle (e.g. username.bsky.social)")
	}

	return config, nil
}
