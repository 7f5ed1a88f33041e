package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	AppName        string
	AppVersion     string
	DocsEnabled    bool
	AllowedOrigins []string
	DatabaseURL    string
	PageStore      PageStoreConfig
	LLM            LLMConfig
	Form           FormConfig
	Log            LogConfig
}

// PageStoreConfig points at the S3-compatible bucket holding form page
// images. Without it pages go to Dir, or stay in memory when Dir is empty.
type PageStoreConfig struct {
	Dir       string
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether the S3 settings are complete.
func (c PageStoreConfig) CanUseS3() bool {
	return c.Enabled && c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type LLMConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OllamaHost   string
	OllamaModel  string
	Timeout      time.Duration
	Retries      int
	RPS          float64
	Burst        int
}

type FormConfig struct {
	MaxDepth     int
	HistoryLimit int
}

type LogConfig struct {
	File  string
	Level string
}

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderFake   = "fake"
)

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(getenv("APP_ENV"), "local")
	cfg := &Config{
		Port:           normalizePort(firstNonEmpty(getenv("PORT"), "8000")),
		Env:            env,
		AppName:        firstNonEmpty(getenv("APP_NAME"), "FastForm API"),
		AppVersion:     firstNonEmpty(getenv("APP_VERSION"), "v1"),
		AllowedOrigins: splitList(getenv("CORS_ALLOW_ORIGINS")),
		DatabaseURL:    getenv("DATABASE_URL"),
		PageStore:      loadPageStoreConfig(env),
		Log: LogConfig{
			File:  getenv("LOG_FILE"),
			Level: strings.ToLower(firstNonEmpty(getenv("LOG_LEVEL"), "info")),
		},
	}

	var err error
	if cfg.DocsEnabled, err = boolEnv("APP_DOCS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.LLM, err = loadLLMConfig(); err != nil {
		return nil, err
	}
	if cfg.Form.MaxDepth, err = intEnv("FORM_MAX_DEPTH", 0); err != nil {
		return nil, err
	}
	if cfg.Form.HistoryLimit, err = intEnv("CHAT_HISTORY_LIMIT", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLLMConfig() (LLMConfig, error) {
	c := LLMConfig{
		Provider:     strings.ToLower(getenv("LLM_PROVIDER")),
		GeminiAPIKey: getenv("GEMINI_API_KEY"),
		GeminiModel:  firstNonEmpty(getenv("GEMINI_MODEL"), "gemini-2.5-flash"),
		OllamaHost:   getenv("OLLAMA_HOST"),
		OllamaModel:  firstNonEmpty(getenv("OLLAMA_MODEL"), "llava"),
	}
	if c.Provider == "" {
		if c.GeminiAPIKey != "" {
			c.Provider = ProviderGemini
		} else {
			c.Provider = ProviderFake
		}
	}
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return c, fmt.Errorf("GEMINI_API_KEY is required for LLM_PROVIDER=gemini")
		}
	case ProviderOllama, ProviderFake:
	default:
		return c, fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}

	var err error
	if c.Timeout, err = durationEnv("LLM_TIMEOUT", 90*time.Second); err != nil {
		return c, err
	}
	if c.Retries, err = intEnv("LLM_RETRIES", 3); err != nil {
		return c, err
	}
	if c.Burst, err = intEnv("LLM_BURST", 2); err != nil {
		return c, err
	}
	if raw := getenv("LLM_RPS"); raw != "" {
		if c.RPS, err = strconv.ParseFloat(raw, 64); err != nil {
			return c, fmt.Errorf("LLM_RPS: %w", err)
		}
	}
	return c, nil
}

func loadPageStoreConfig(env string) PageStoreConfig {
	endpoint := resolvePageStoreEndpoint(env)
	return PageStoreConfig{
		Dir:       getenv("PAGE_STORE_DIR"),
		Enabled:   strings.EqualFold(env, "local") || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(getenv("PAGE_STORE_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(getenv("PAGE_STORE_S3_ACCESS_KEY"), getenv("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(getenv("PAGE_STORE_S3_SECRET_KEY"), getenv("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(getenv("PAGE_STORE_S3_BUCKET"), "fastform-pages"),
		UseSSL:    resolvePageStoreUseSSL(env),
	}
}

func resolvePageStoreEndpoint(env string) string {
	if strings.EqualFold(env, "local") {
		return getenv("PAGE_STORE_MINIO_ENDPOINT")
	}
	return getenv("PAGE_STORE_S3_ENDPOINT")
}

func resolvePageStoreUseSSL(env string) bool {
	if strings.EqualFold(env, "local") {
		return false
	}
	v, err := boolEnv("PAGE_STORE_S3_USE_SSL", true)
	if err != nil {
		return true
	}
	return v
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnv(key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// durationEnv accepts Go durations ("90s") or whole seconds ("90").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
