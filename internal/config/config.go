package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env-default:"prod"`
	GPU      GPUConfig      `yaml:"gpu"`
	Polling  PollingConfig  `yaml:"polling"`
	Colors   ColorsConfig   `yaml:"colors"`
	Lighting LightingConfig `yaml:"lighting"`
	Journal  JournalConfig  `yaml:"journal"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

type GPUConfig struct {
	Index   int    `yaml:"index" env:"GPU_INDEX" env-default:"0"`
	Sampler string `yaml:"sampler" env-default:"nvml"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval" env-default:"2s"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5s"`
}

type ColorsConfig struct {
	Low         string `yaml:"low" env-default:"#00008b"`
	High        string `yaml:"high" env-default:"#8b0000"`
	ResetOnExit bool   `yaml:"reset_on_exit" env-default:"false"`
	Reset       string `yaml:"reset" env-default:"#000000"`
}

type LightingConfig struct {
	Command string        `yaml:"command" env-default:"liquidctl"`
	Channel string        `yaml:"channel" env-default:"sync"`
	Mode    string        `yaml:"mode" env-default:"fixed"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
	Sudo    bool          `yaml:"sudo" env-default:"false"`
}

type JournalConfig struct {
	Enabled bool          `yaml:"enabled" env-default:"false"`
	Path    string        `yaml:"path" env-default:"/var/lib/gpuglow/journal.db"`
	MaxAge  time.Duration `yaml:"max_age" env-default:"24h"`
}

type HealthConfig struct {
	Address string `yaml:"address" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
	File   string `yaml:"file" env-default:"/var/log/gpuglow.log"`
}

func MustLoad(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
