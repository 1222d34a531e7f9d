package config

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// DefaultSubjects is the seed list applied during first-time setup.
var DefaultSubjects = []string{"Math", "Science", "English", "History"}

// SchoolConfig is the school-level configuration kept in config.json. The
// admin credentials here are authoritative for the distinguished admin
// account: login against them overrides whatever hash is stored.
type SchoolConfig struct {
	Language      string `json:"language" mapstructure:"language"`
	GradingSystem string `json:"grading_system" mapstructure:"grading_system"`
	AdminUsername string `json:"admin_username" mapstructure:"admin_username"`
	AdminPassword string `json:"admin_password" mapstructure:"admin_password"`
}

// DefaultSchoolConfig applies when the config file is absent. A missing file
// is a valid state, not an error.
func DefaultSchoolConfig() SchoolConfig {
	return SchoolConfig{
		Language:      "ru",
		GradingSystem: "5-point",
		AdminUsername: "admin",
		AdminPassword: "admin",
	}
}

// SchoolProvider is the single access point for the school config file.
// Reads go through a cache invalidated on file mtime change, so callers may
// call Get on every request without re-parsing the file each time.
type SchoolProvider struct {
	path string

	mu       sync.Mutex
	cached   SchoolConfig
	loaded   bool
	modTime  time.Time
	fileSeen bool
}

// NewSchoolProvider creates a provider for the given config file path.
func NewSchoolProvider(path string) *SchoolProvider {
	if path == "" {
		path = "config.json"
	}
	return &SchoolProvider{path: path}
}

// Path returns the configured file location.
func (p *SchoolProvider) Path() string {
	return p.path
}

// Exists reports whether the config file is present on disk.
func (p *SchoolProvider) Exists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// Get returns the current school configuration, falling back to defaults when
// the file is missing or unreadable.
func (p *SchoolProvider) Get() SchoolConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err != nil {
		p.cached = DefaultSchoolConfig()
		p.loaded = true
		p.fileSeen = false
		return p.cached
	}

	if p.loaded && p.fileSeen && info.ModTime().Equal(p.modTime) {
		return p.cached
	}

	cfg, err := p.read()
	if err != nil {
		p.cached = DefaultSchoolConfig()
		p.loaded = true
		p.fileSeen = false
		return p.cached
	}

	p.cached = cfg
	p.loaded = true
	p.fileSeen = true
	p.modTime = info.ModTime()
	return p.cached
}

// Save writes the configuration to disk and refreshes the cache.
func (p *SchoolProvider) Save(cfg SchoolConfig) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("language", cfg.Language)
	v.Set("grading_system", cfg.GradingSystem)
	v.Set("admin_username", cfg.AdminUsername)
	v.Set("admin_password", cfg.AdminPassword)

	if err := v.WriteConfigAs(p.path); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = cfg
	p.loaded = true
	if info, err := os.Stat(p.path); err == nil {
		p.fileSeen = true
		p.modTime = info.ModTime()
	}
	return nil
}

func (p *SchoolProvider) read() (SchoolConfig, error) {
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("json")

	defaults := DefaultSchoolConfig()
	v.SetDefault("language", defaults.Language)
	v.SetDefault("grading_system", defaults.GradingSystem)
	v.SetDefault("admin_username", defaults.AdminUsername)
	v.SetDefault("admin_password", defaults.AdminPassword)

	if err := v.ReadInConfig(); err != nil {
		return SchoolConfig{}, err
	}

	var cfg SchoolConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SchoolConfig{}, err
	}
	return cfg, nil
}
