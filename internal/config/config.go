package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gap "github.com/muesli/go-app-paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"scriptdeck/internal/domain/generator"
	"scriptdeck/internal/domain/script"
	"scriptdeck/internal/script/clean"
	"scriptdeck/internal/script/speech"
	"scriptdeck/internal/script/tts"
)

// Config is the typed view of everything viper knows.
type Config struct {
	TTSType     string
	Language    string
	Rate        float64
	Pitch       float64
	Voice       string
	ChunkLimit  int
	SettleDelay time.Duration
	RetryDelay  time.Duration
	CachePath   string

	GeminiModel  string
	GeminiAPIKey string

	HistoryMax int
	StorePath  string
	LogLevel   string
}

func SetDefaults() {
	viper.SetDefault("tts.type", tts.EngineTypeAuto.String()) // Auto-select best engine
	viper.SetDefault("tts.language", "pt-BR")
	viper.SetDefault("tts.rate", 1.1)
	viper.SetDefault("tts.pitch", 1.0)
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.chunk_limit", clean.DefaultChunkLimit)
	viper.SetDefault("tts.settle_delay", speech.DefaultRetryPolicy().SettleDelay)
	viper.SetDefault("tts.retry_delay", speech.DefaultRetryPolicy().RetryDelay)
	viper.SetDefault("tts.cache_path", cacheDirectory())

	viper.SetDefault("gemini.model", generator.DefaultModel)
	viper.SetDefault("gemini.api_key", "")

	viper.SetDefault("history.max", script.DefaultHistoryMax)
	viper.SetDefault("store.path", "")
	viper.SetDefault("log.level", "warn")
}

// Init points viper at the config file locations and the environment. A missing config
// file is fine; a broken one is reported.
func Init() error {
	viper.SetConfigName("scriptdeck")
	viper.SetConfigType("yaml")

	if dirs, err := gap.NewScope(gap.User, "scriptdeck").ConfigDirs(); err == nil {
		for _, dir := range dirs {
			viper.AddConfigPath(dir)
		}
	}
	viper.AddConfigPath("$HOME/.scriptdeck")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("scriptdeck")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("gemini.api_key", "SCRIPTDECK_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind api key: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("Loaded config file")
	return nil
}

func Load() Config {
	return Config{
		TTSType:     viper.GetString("tts.type"),
		Language:    viper.GetString("tts.language"),
		Rate:        viper.GetFloat64("tts.rate"),
		Pitch:       viper.GetFloat64("tts.pitch"),
		Voice:       viper.GetString("tts.voice"),
		ChunkLimit:  viper.GetInt("tts.chunk_limit"),
		SettleDelay: viper.GetDuration("tts.settle_delay"),
		RetryDelay:  viper.GetDuration("tts.retry_delay"),
		CachePath:   viper.GetString("tts.cache_path"),

		GeminiModel:  viper.GetString("gemini.model"),
		GeminiAPIKey: viper.GetString("gemini.api_key"),

		HistoryMax: viper.GetInt("history.max"),
		StorePath:  viper.GetString("store.path"),
		LogLevel:   viper.GetString("log.level"),
	}
}

func (c Config) TTS() tts.Config {
	return tts.Config{
		Type:      c.TTSType,
		Language:  c.Language,
		CachePath: c.CachePath,
	}
}

// Speech builds the controller config. Stored preferences win over the config file.
func (c Config) Speech(prefs script.Preferences) speech.Config {
	return speech.Config{
		Language:   c.Language,
		VoiceID:    prefs.VoiceID,
		Rate:       prefs.Rate,
		Pitch:      prefs.Pitch,
		ChunkLimit: c.ChunkLimit,
		Retry: speech.RetryPolicy{
			SettleDelay: c.SettleDelay,
			RetryDelay:  c.RetryDelay,
		},
	}
}

// DefaultPreferences are the preferences used before the user saves any.
func (c Config) DefaultPreferences() script.Preferences {
	return script.Preferences{
		Rate:    c.Rate,
		Pitch:   c.Pitch,
		VoiceID: c.Voice,
	}
}

// SetupLogging applies the configured level; verbose forces debug.
func SetupLogging(level string, verbose bool) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
		return nil
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.WarnLevel)
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// cacheDirectory returns where synthesized audio is kept.
func cacheDirectory() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "scriptdeck", "tts")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".scriptdeck", "cache", "tts")
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "cache", "tts")
	}

	return filepath.Join("cache", "tts")
}
