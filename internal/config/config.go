package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"boardgame-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const DateLayout = "2006-01-02"

// Config is assembled once by the entrypoint and handed to every component.
// Nothing below cmd/ reads the environment.
type Config struct {
	Username string
	BaseURL  string
	APIToken string

	OnlyOwned  bool
	WantToPlay bool
	Plays      bool

	NoCache      bool
	NoCachePlays bool

	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	RequestDelay time.Duration

	CacheDir  string
	OutputDir string

	// first day of the "current" reporting period, YYYY-MM-DD
	PeriodStart string

	LogLevel   string
	ServerPort string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		Username:    getEnv("BGG_USERNAME", ""),
		BaseURL:     getEnv("BGG_BASE_URL", constants.DefaultBaseURL),
		APIToken:    getEnv("BGG_API_TOKEN", ""),
		CacheDir:    getEnv("CACHE_DIR", "./cache"),
		OutputDir:   getEnv("OUTPUT_DIR", "."),
		PeriodStart: getEnv("PERIOD_START", StartOfYear(time.Now())),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
	}

	var err error
	if cfg.OnlyOwned, err = getBool("BGG_ONLY_OWNED", false); err != nil {
		return nil, err
	}
	if cfg.WantToPlay, err = getBool("BGG_WANT_TO_PLAY", false); err != nil {
		return nil, err
	}
	if cfg.Plays, err = getBool("BGG_PLAYS", false); err != nil {
		return nil, err
	}
	if cfg.NoCache, err = getBool("NO_CACHE", false); err != nil {
		return nil, err
	}
	if cfg.NoCachePlays, err = getBool("NO_CACHE_PLAYS", false); err != nil {
		return nil, err
	}
	if cfg.MinBackoff, err = getDuration("MIN_BACKOFF", constants.DefaultMinBackoff); err != nil {
		return nil, err
	}
	if cfg.MaxBackoff, err = getDuration("MAX_BACKOFF", constants.DefaultMaxBackoff); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = getDuration("REQUEST_DELAY", constants.DefaultRequestDelay); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every command shares. Commands that act for
// a user also call RequireUsername.
func (c *Config) Validate() error {
	if c.MinBackoff <= 0 {
		return fmt.Errorf("min backoff must be positive, got %s", c.MinBackoff)
	}
	if c.MaxBackoff < c.MinBackoff {
		return fmt.Errorf("max backoff %s is below min backoff %s", c.MaxBackoff, c.MinBackoff)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must not be negative, got %s", c.RequestDelay)
	}
	if _, err := time.Parse(DateLayout, c.PeriodStart); err != nil {
		return fmt.Errorf("period start %q is not a YYYY-MM-DD date: %w", c.PeriodStart, err)
	}
	return nil
}

func (c *Config) RequireUsername() error {
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// Log prints the effective configuration, without the API token.
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Str("username", c.Username).
		Str("base_url", c.BaseURL).
		Bool("only_owned", c.OnlyOwned).
		Bool("want_to_play", c.WantToPlay).
		Bool("plays", c.Plays).
		Bool("no_cache", c.NoCache).
		Bool("no_cache_plays", c.NoCachePlays).
		Dur("min_backoff", c.MinBackoff).
		Dur("max_backoff", c.MaxBackoff).
		Dur("request_delay", c.RequestDelay).
		Str("cache_dir", c.CacheDir).
		Str("output_dir", c.OutputDir).
		Str("period_start", c.PeriodStart).
		Str("log_level", c.LogLevel).
		Msg("configuration loaded")
}

func (c *Config) DBPath() string {
	return filepath.Join(c.CacheDir, constants.CacheFileName)
}

func (c *Config) ReportPath() string {
	return filepath.Join(c.OutputDir, constants.ReportFileName)
}

func StartOfYear(now time.Time) string {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Format(DateLayout)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
