package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchoolProviderMissingFileYieldsDefaults(t *testing.T) {
	provider := NewSchoolProvider(filepath.Join(t.TempDir(), "config.json"))

	assert.False(t, provider.Exists())
	cfg := provider.Get()
	assert.Equal(t, DefaultSchoolConfig(), cfg)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "admin", cfg.AdminPassword)
}

func TestSchoolProviderSaveAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	provider := NewSchoolProvider(path)

	want := SchoolConfig{
		Language:      "en",
		GradingSystem: "5-point",
		AdminUsername: "principal",
		AdminPassword: "letmein",
	}
	require.NoError(t, provider.Save(want))

	assert.True(t, provider.Exists())
	assert.Equal(t, want, provider.Get())

	// A fresh provider reading the same file sees the same values.
	assert.Equal(t, want, NewSchoolProvider(path).Get())
}

func TestSchoolProviderPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"admin_username": "head"}`), 0o644))

	cfg := NewSchoolProvider(path).Get()
	assert.Equal(t, "head", cfg.AdminUsername)
	assert.Equal(t, "admin", cfg.AdminPassword)
	assert.Equal(t, "ru", cfg.Language)
}

func TestSchoolProviderUnreadableFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cfg := NewSchoolProvider(path).Get()
	assert.Equal(t, DefaultSchoolConfig(), cfg)
}

func TestSchoolProviderPicksUpFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	provider := NewSchoolProvider(path)

	first := DefaultSchoolConfig()
	first.AdminPassword = "one"
	require.NoError(t, provider.Save(first))
	assert.Equal(t, "one", provider.Get().AdminPassword)

	// Rewrite out of band with a bumped mtime, as an operator editing the
	// file would.
	require.NoError(t, os.WriteFile(path, []byte(`{"admin_username": "admin", "admin_password": "two"}`), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Equal(t, "two", provider.Get().AdminPassword)
}
