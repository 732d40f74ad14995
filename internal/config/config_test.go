package config

import (
	"testing"
	"time"

	"healthmate/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "gateway", cfg.HospitalSource)
	assert.Equal(t, 5, cfg.HospitalLimit)
	assert.Equal(t, pkg.LangEnglish, cfg.Language())
	assert.Error(t, cfg.RequireGateway())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HOSPITAL_SOURCE", "static")
	t.Setenv("DEFAULT_LANGUAGE", "HI")
	t.Setenv("GATEWAY_TIMEOUT", "15s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.RequireGateway())
	assert.Equal(t, "static", cfg.HospitalSource)
	assert.Equal(t, pkg.LangHindi, cfg.Language())
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"HOSPITAL_SOURCE":  "osm",
		"DEFAULT_LANGUAGE": "fr",
		"HOSPITAL_LIMIT":   "0",
		"MAX_UPLOAD_BYTES": "-1",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
