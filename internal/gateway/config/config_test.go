package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "APP_ENV", "LLM_PROVIDER", "GEMINI_API_KEY", "LLM_TIMEOUT", "CORS_ALLOW_ORIGINS", "PAGE_STORE_MINIO_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.Port)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, ProviderFake, cfg.LLM.Provider)
	require.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	require.Equal(t, 3, cfg.LLM.Retries)
	require.True(t, cfg.DocsEnabled)
	require.Empty(t, cfg.AllowedOrigins)
	require.False(t, cfg.PageStore.CanUseS3())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("LLM_TIMEOUT", "30")
	t.Setenv("LLM_RPS", "1.5")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("PAGE_STORE_S3_ENDPOINT", "s3.example.com")
	t.Setenv("PAGE_STORE_S3_ACCESS_KEY", "ak")
	t.Setenv("PAGE_STORE_S3_SECRET_KEY", "sk")
	t.Setenv("FORM_MAX_DEPTH", "12")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Port)
	require.Equal(t, ProviderGemini, cfg.LLM.Provider)
	require.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	require.InDelta(t, 1.5, cfg.LLM.RPS, 1e-9)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	require.True(t, cfg.PageStore.CanUseS3())
	require.True(t, cfg.PageStore.UseSSL)
	require.Equal(t, 12, cfg.Form.MaxDepth)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("LLM_PROVIDER", "fake")
	t.Setenv("FORM_MAX_DEPTH", "deep")
	_, err = Load()
	require.ErrorContains(t, err, "FORM_MAX_DEPTH")
}
