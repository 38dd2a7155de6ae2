package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.081, cfg.BtpsFactor)
	assert.Equal(t, 25.0, cfg.O2PerLiter)
	assert.Equal(t, 866, cfg.PnpCodepage)
	assert.Equal(t, 1251, cfg.ZakCodepage)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medconv.yaml")
	content := "btps_factor: 1.05\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.05, cfg.BtpsFactor)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched settings keep their defaults.
	assert.Equal(t, 25.0, cfg.O2PerLiter)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDCONV_ZAK_CODEPAGE", "1252")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1252, cfg.ZakCodepage)
}

func TestDecoder(t *testing.T) {
	for _, cp := range []int{866, 1251, 1252, 437} {
		dec, err := Decoder(cp)
		require.NoError(t, err, "codepage %d", cp)
		assert.NotNil(t, dec)
	}
	_, err := Decoder(65001)
	assert.Error(t, err)
}

func TestDecoderRoundTrip(t *testing.T) {
	dec, err := Decoder(1251)
	require.NoError(t, err)
	// 0xCF 0xF0 is "Пр" in Windows-1251.
	out, err := dec.Bytes([]byte{0xCF, 0xF0})
	require.NoError(t, err)
	assert.Equal(t, "Пр", string(out))
}
