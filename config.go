package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/dnldd/candleview/fetch"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// defaultAddress is the default api listening address.
	defaultAddress = ":8080"
	// defaultWidth is the default chart width in pixels.
	defaultWidth = 800
	// defaultHeight is the default chart height in pixels.
	defaultHeight = 400
	// defaultLogLevel is the default log level.
	defaultLogLevel = "info"
)

// Config is the configuration struct for the service.
type Config struct {
	// Address is the api listening address.
	Address string
	// CatalogPath is the filepath to the yaml catalog.
	CatalogPath string
	// Instruments restricts the charted instruments.
	Instruments []string
	// CoinGeckoURL is the coingecko api base url.
	CoinGeckoURL string
	// CoinGeckoAPIKey is the optional coingecko api key.
	CoinGeckoAPIKey string
	// PolygonAPIKey is the optional polygon api key.
	PolygonAPIKey string
	// DataDir is the directory of recorded ohlc payloads for offline runs.
	DataDir string
	// DBEndpoint is the optional rqlite endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Width is the default chart width in pixels.
	Width int
	// Height is the default chart height in pixels.
	Height int
	// UpColor is the hex color of rising candles.
	UpColor string
	// DownColor is the hex color of falling candles.
	DownColor string
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string

	registeredFlags map[string]bool
}

// applyDefaults fills unset fields with their defaults.
func (cfg *Config) applyDefaults() {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = fetch.CoinGeckoURL
	}
	if cfg.Width == 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = defaultHeight
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// isHexColor checks whether the provided value is a 3 or 6 digit hex color.
func isHexColor(v string) bool {
	v = strings.TrimPrefix(v, "#")
	if len(v) != 3 && len(v) != 6 {
		return false
	}

	for _, r := range v {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}

	return true
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = errors.Join(errs, fmt.Errorf("chart size must be positive, got %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.UpColor != "" && !isHexColor(cfg.UpColor) {
		errs = errors.Join(errs, fmt.Errorf("invalid up color '%s'", cfg.UpColor))
	}
	if cfg.DownColor != "" && !isHexColor(cfg.DownColor) {
		errs = errors.Join(errs, fmt.Errorf("invalid down color '%s'", cfg.DownColor))
	}
	_, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid log level '%s'", cfg.LogLevel))
	}
	if cfg.DBUser != "" && cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database user provided without a database endpoint"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("address", &cfg.Address, "the api listening address")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("catalog", &cfg.CatalogPath, "the yaml catalog filepath")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("instruments", &cfg.Instruments, "the charted instruments")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("coingeckourl", &cfg.CoinGeckoURL, "the coingecko api base url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("coingeckoapikey", &cfg.CoinGeckoAPIKey, "the coingecko api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("polygonapikey", &cfg.PolygonAPIKey, "the polygon api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("datadir", &cfg.DataDir, "the recorded ohlc data directory for offline runs")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DBEndpoint, "the rqlite endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DBUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DBPass, "the database user pass")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("width", &cfg.Width, "the default chart width")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("height", &cfg.Height, "the default chart height")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("upcolor", &cfg.UpColor, "the hex color of rising candles")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("downcolor", &cfg.DownColor, "the hex color of falling candles")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("loglevel", &cfg.LogLevel, "the log level")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.applyDefaults()

	return cfg.Validate()
}
