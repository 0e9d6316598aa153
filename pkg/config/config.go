package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/features"
	"github.com/fieldops/console/pkg/notify"
	"github.com/fieldops/console/pkg/store"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "CONSOLE_CONFIG_PATH"

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRs to trust for X-Forwarded-For headers
}

// Scheduler holds the cadence of the background jobs. Intervals use
// Go duration syntax ("30m", "1h").
type Scheduler struct {
	Enabled            bool   `yaml:"enabled"`
	EscalationInterval string `yaml:"escalationInterval"`
	ReminderInterval   string `yaml:"reminderInterval"`
	DigestInterval     string `yaml:"digestInterval"`
}

type Frontend struct {
	// BrandingName overrides the product name shown in notification
	// footers and the version endpoint. Empty keeps the default.
	BrandingName string `yaml:"brandingName"`
}

type Config struct {
	Server    Server            `yaml:"server"`
	Database  store.Config      `yaml:"database"`
	Mail      notify.MailConfig `yaml:"mail"`
	SMS       notify.SMSConfig  `yaml:"sms"`
	Audit     audit.KafkaConfig `yaml:"audit"`
	Scheduler Scheduler         `yaml:"scheduler"`
	Features  features.Defaults `yaml:"features"`
	Frontend  Frontend          `yaml:"frontend"`
	// LadderFile points to an optional escalation ladder YAML; empty
	// uses the compiled-in ladder set.
	LadderFile string `yaml:"ladderFile"`
	Debug      bool   `yaml:"debug"`
}

// Defaults returns the configuration used when the file leaves a
// section unset.
func Defaults() Config {
	return Config{
		Server: Server{
			ListenAddress: ":8080",
		},
		Database: store.Config{
			MaxConns:       8,
			ConnectTimeout: "10s",
		},
		Scheduler: Scheduler{
			Enabled:            true,
			EscalationInterval: "30m",
			ReminderInterval:   "15m",
			DigestInterval:     "168h",
		},
		Features: features.Defaults{
			Reminders:    true,
			Escalations:  true,
			WeeklyDigest: true,
		},
		Frontend: Frontend{
			BrandingName: "FieldOps Console",
		},
	}
}

// Load loads the console configuration from a file path. If configPath
// is empty, the CONSOLE_CONFIG_PATH environment variable is consulted,
// then "./config.yaml". Unset sections keep their defaults.
func Load(configPath ...string) (Config, error) {
	var path string

	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	} else {
		path = "./config.yaml"
	}

	config := Defaults()

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open console config file %s: %v", path, err)
	}

	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	return config, nil
}
