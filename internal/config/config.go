package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
	VendorDeepSeek  = "deepseek"
	VendorGemini    = "gemini"
)

type Config struct {
	Vendor         string
	HTTPAddr       string
	LogLevel       slog.Level
	SessionIdleTTL time.Duration
	TelegramToken  string
	AdminUserIDs   []int64
	AllowedUserIDs []int64
	CORSOrigins    []string
	Vendors        map[string]VendorConfig
}

// VendorConfig is the static per-vendor adapter setup. It is read once at
// startup and never changed afterwards.
type VendorConfig struct {
	Name          string
	APIKey        string
	KeyEnv        string
	Model         string
	Endpoint      string
	SystemMessage string
	Temperature   float64
	MaxTokens     int
	TopP          float64
	TopK          int
	ProbeOnStart  bool

	DisplayName string
	Emoji       string
	Color       string
	Tagline     string
	Placeholder string
	Tips        []string
}

func Load(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		slog.Info("no .env file found, using environment variables", "path", path)
	}

	cfg := Config{
		Vendor:         strings.ToLower(getenvDefault("CHAT_VENDOR", VendorOpenAI)),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8501"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
		SessionIdleTTL: time.Duration(getenvIntDefault("SESSION_IDLE_TTL_MINUTES", 120)) * time.Minute,
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminUserIDs:   parseIDs(os.Getenv("ADMIN_USER_IDS")),
		AllowedUserIDs: parseIDs(os.Getenv("ALLOWED_TELEGRAM_USER_IDS")),
		CORSOrigins:    parseList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		Vendors:        make(map[string]VendorConfig),
	}

	for _, def := range Defaults() {
		cfg.Vendors[def.Name] = overrideFromEnv(def)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := c.Vendors[c.Vendor]; !ok {
		return fmt.Errorf("unknown CHAT_VENDOR %q (want one of %s)", c.Vendor, strings.Join(c.VendorNames(), ", "))
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL_MINUTES must be > 0")
	}
	for name, v := range c.Vendors {
		if v.MaxTokens <= 0 {
			return fmt.Errorf("%s max tokens must be > 0", name)
		}
		if v.Temperature < 0 {
			return fmt.Errorf("%s temperature must be >= 0", name)
		}
	}
	return nil
}

// Selected returns the configuration of the active vendor.
func (c Config) Selected() VendorConfig {
	return c.Vendors[c.Vendor]
}

func (c Config) VendorNames() []string {
	names := make([]string, 0, len(c.Vendors))
	for name := range c.Vendors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults lists the built-in vendor setups.
func Defaults() []VendorConfig {
	return []VendorConfig{
		{
			Name:          VendorOpenAI,
			KeyEnv:        "OPENAI_KEY",
			Model:         "gpt-4",
			SystemMessage: "You are a logical and analytical AI assistant.",
			Temperature:   0.7,
			MaxTokens:     150,
			DisplayName:   "GPT-4",
			Emoji:         "🤖",
			Color:         "#10a37f",
			Placeholder:   "Type a message...",
		},
		{
			Name:          VendorAnthropic,
			KeyEnv:        "ANTHROPIC_KEY",
			Model:         "claude-3-opus-20240229",
			SystemMessage: "You are a philosophical and analytical AI assistant.",
			Temperature:   0.7,
			MaxTokens:     150,
			DisplayName:   "Claude",
			Emoji:         "🎩",
			Color:         "#9b59b6",
			Placeholder:   "Ask a question or suggest a topic...",
		},
		{
			Name:          VendorDeepSeek,
			KeyEnv:        "DEEPSEEK_KEY",
			Model:         "deepseek-chat",
			Endpoint:      "https://api.deepseek.com/v1",
			SystemMessage: "You are a technical and practical AI assistant.",
			Temperature:   0.7,
			MaxTokens:     150,
			ProbeOnStart:  true,
			DisplayName:   "DeepSeek",
			Emoji:         "🧠",
			Color:         "#e74c3c",
			Tagline:       "Technical, practical answers",
			Placeholder:   "Ask a technical question or a practical problem...",
			Tips: []string{
				"Ask for help with a concrete technical problem",
				"Ask how to implement something in practice",
				"Ask for code review or optimization",
				"Ask for an explanation of a technical concept",
			},
		},
		{
			Name:          VendorGemini,
			KeyEnv:        "GEMINI_KEY",
			Model:         "gemini-pro",
			SystemMessage: "You are a creative and innovative AI assistant.",
			Temperature:   0.7,
			MaxTokens:     150,
			TopP:          0.8,
			TopK:          40,
			ProbeOnStart:  true,
			DisplayName:   "Gemini",
			Emoji:         "🚀",
			Color:         "#4285f4",
			Tagline:       "Try Google's latest model",
			Placeholder:   "Ask anything creative...",
			Tips: []string{
				"Ask for creative ideas or brainstorming",
				"Ask for a story, poem or slogan",
				"Ask to look at a problem from a new angle",
			},
		},
	}
}

func overrideFromEnv(v VendorConfig) VendorConfig {
	prefix := strings.ToUpper(v.Name) + "_"

	v.APIKey = strings.TrimSpace(os.Getenv(v.KeyEnv))
	v.Model = getenvDefault(prefix+"MODEL", v.Model)
	v.Endpoint = getenvDefault(prefix+"ENDPOINT", v.Endpoint)
	v.SystemMessage = getenvDefault(prefix+"SYSTEM_MESSAGE", v.SystemMessage)
	v.Temperature = getenvFloatDefault(prefix+"TEMPERATURE", v.Temperature)
	v.MaxTokens = getenvIntDefault(prefix+"MAX_TOKENS", v.MaxTokens)
	v.TopP = getenvFloatDefault(prefix+"TOP_P", v.TopP)
	v.TopK = getenvIntDefault(prefix+"TOP_K", v.TopK)
	v.ProbeOnStart = getenvBoolDefault(prefix+"PROBE", v.ProbeOnStart)
	return v
}

func parseIDs(raw string) []int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			slog.Warn("skipping user id", "value", p, "error", err)
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

func parseList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(raw string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getenvFloatDefault(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getenvBoolDefault(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
