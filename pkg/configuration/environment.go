package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/communityops/engage/pkg/logging"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files if they exist, returning how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type MatchOptions struct {
	// Threshold is the minimum similarity for a fuzzy candidate list.
	Threshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.6"`
	// AcceptThreshold is the score at which a match is accepted without review.
	AcceptThreshold float64 `env:"MATCH_ACCEPT_THRESHOLD" envDefault:"0.75"`
	// AttendeeThreshold is used when resolving attendee and learning rows.
	AttendeeThreshold float64 `env:"MATCH_ATTENDEE_THRESHOLD" envDefault:"0.7"`
}

func (m *MatchOptions) Validate() error {
	for name, v := range map[string]float64{
		"MATCH_THRESHOLD":          m.Threshold,
		"MATCH_ACCEPT_THRESHOLD":   m.AcceptThreshold,
		"MATCH_ATTENDEE_THRESHOLD": m.AttendeeThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	return nil
}

type Configuration struct {
	Match MatchOptions

	StatePath string `env:"ENGAGE_STATE_PATH" envDefault:"engage-state.json"`
	BackupDir string `env:"ENGAGE_BACKUP_DIR" envDefault:"backups"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"error"`
	// LogFile, when set, duplicates log output to a JSON log file.
	LogFile string `env:"LOG_FILE"`

	logger  *logrus.Logger
	logFile *os.File
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Match.Validate(); err != nil {
		return fmt.Errorf("match configuration error: %w", err)
	}
	if c.LogFile != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogFile)
		if err != nil {
			return fmt.Errorf("log file error: %w", err)
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	}
	return nil
}

// Close releases the log file handle, if one was opened.
func (c *Configuration) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}
