package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chainball/scoreboard/go/internal/dbconfig"
	"github.com/chainball/scoreboard/go/internal/game"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel      string            `yaml:"log_level"`
	Game          GameConfig        `yaml:"game"`
	RemoteMapping MappingConfig     `yaml:"remote_mapping"`
	SFX           map[string]string `yaml:"sfx"`
	Hardware      HardwareConfig    `yaml:"hardware"`
	Persist       PersistConfig     `yaml:"persist"`
	Control       ControlConfig     `yaml:"control"`
}

// GameConfig holds game timings; durations are whole minutes or seconds.
type GameConfig struct {
	DurationMinutes       int `yaml:"game_duration_minutes"`
	PairTimeout           int `yaml:"pair_timeout"`
	ServeTimeout          int `yaml:"serve_timeout"`
	ScoreAnnounceInterval int `yaml:"score_announce_interval"`
}

type HardwareConfig struct {
	Virtual        bool   `yaml:"virtual"`
	RemotesEnabled bool   `yaml:"remotes_enabled"`
	ScorePort      string `yaml:"score_port"`
	ScoreBaud      int    `yaml:"score_baud"`
	MatrixPort     string `yaml:"matrix_port"`
	MatrixBaud     int    `yaml:"matrix_baud"`
	SPIPort        string `yaml:"spi_port"`
	CEPin          string `yaml:"ce_pin"`
	RadioChannel   int    `yaml:"radio_channel"`
	RemotePollMs   int    `yaml:"remote_poll_ms"`
	RemoteRegistry string `yaml:"remote_registry"`
}

type PersistConfig struct {
	Store     string          `yaml:"store"`
	Directory string          `yaml:"directory"`
	Database  dbconfig.Config `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ControlConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Game: GameConfig{
			DurationMinutes:       20,
			PairTimeout:           30,
			ServeTimeout:          3,
			ScoreAnnounceInterval: 5,
		},
		Hardware: HardwareConfig{
			RemotesEnabled: true,
			ScorePort:      "/dev/ttyUSB0",
			ScoreBaud:      115200,
			MatrixPort:     "/dev/ttyACM0",
			MatrixBaud:     115200,
			SPIPort:        "/dev/spidev0.0",
			CEPin:          "GPIO1",
			RadioChannel:   2,
			RemotePollMs:   100,
			RemoteRegistry: "data/remotes.json",
		},
		Persist: PersistConfig{
			Store:     StoreFile,
			Directory: "data/persist/games",
			Database:  dbconfig.Default(),
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				Stream:        "CHAINBALL_EVENTS",
				SubjectPrefix: "chainball.events",
			},
		},
		Control: ControlConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Control.Addr = getEnv("CONTROL_ADDR", c.Control.Addr)
	c.Persist.Store = getEnv("PERSIST_STORE", c.Persist.Store)
	c.Persist.Directory = getEnv("PERSIST_DIR", c.Persist.Directory)
	c.Persist.Database = c.Persist.Database.WithEnv()
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Persist.NATS.URL = url
		c.Persist.NATS.Enabled = true
	}
	c.Hardware.Virtual = getEnvAsBool("HARDWARE_VIRTUAL", c.Hardware.Virtual)
	c.Hardware.ScoreBaud = getEnvAsInt("SCORE_BAUD", c.Hardware.ScoreBaud)
	c.Hardware.MatrixBaud = getEnvAsInt("MATRIX_BAUD", c.Hardware.MatrixBaud)
}

func (c *Config) validate() error {
	switch c.Persist.Store {
	case StoreFile, StorePostgres:
	default:
		return fmt.Errorf("%w: unknown persist store %q", ErrInvalidConfig, c.Persist.Store)
	}
	g := c.Game
	if g.DurationMinutes <= 0 || g.PairTimeout <= 0 || g.ServeTimeout <= 0 || g.ScoreAnnounceInterval <= 0 {
		return fmt.Errorf("%w: game timings must be positive", ErrInvalidConfig)
	}
	if _, err := c.GameConfig(); err != nil {
		return err
	}
	return nil
}

// GameConfig builds the engine configuration.
func (c *Config) GameConfig() (game.Config, error) {
	mapping, err := ParseRemoteMapping(c.RemoteMapping)
	if err != nil {
		return game.Config{}, err
	}

	sfx := make(map[game.SFXEvent]string, len(c.SFX))
	for key, file := range c.SFX {
		event := game.SFXEvent(key)
		if event != game.SFXGameEnd && event != game.SFXCowout {
			log.Warn().Str("component", "config").Str("event", key).Msg("ignoring unknown sfx event")
			continue
		}
		sfx[event] = file
	}

	return game.Config{
		GameDuration:          time.Duration(c.Game.DurationMinutes) * time.Minute,
		PairTimeout:           time.Duration(c.Game.PairTimeout) * time.Second,
		ServeTimeout:          time.Duration(c.Game.ServeTimeout) * time.Second,
		ScoreAnnounceInterval: time.Duration(c.Game.ScoreAnnounceInterval) * time.Second,
		RemotesEnabled:        c.Hardware.RemotesEnabled,
		Mapping:               mapping,
		SFX:                   sfx,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
