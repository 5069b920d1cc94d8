// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for reconrig.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.reconrig/config.toml
//   - ~/.reconrig/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete reconrig configuration.
type Config struct {
	// Version of the config schema, used by Migrate.
	Version string `toml:"version" json:"version"`

	// Install controls the tool installation pipeline.
	Install InstallConfig `toml:"install" json:"install"`

	// Toolchain controls language toolchain bootstrapping.
	Toolchain ToolchainConfig `toml:"toolchain" json:"toolchain"`

	// Wordlists controls wordlist repository syncing.
	Wordlists WordlistsConfig `toml:"wordlists" json:"wordlists"`

	// Env controls shell rc file management.
	Env EnvConfig `toml:"env" json:"env"`

	// History controls the local run journal.
	History HistoryConfig `toml:"history" json:"history"`
}

// InstallConfig contains tool installation settings.
type InstallConfig struct {
	// ToolsDir is the workstation root for tools. Binaries land in
	// <tools_dir>/bin, sources and wordlists in <tools_dir>/src.
	// Accepts ~ and $HOME prefixes.
	ToolsDir string `toml:"tools_dir" json:"tools_dir"`
	// BasePackages overrides the platform's base package list used
	// during bootstrap. Empty means the built-in list for the detected
	// package manager.
	BasePackages []string `toml:"base_packages" json:"base_packages"`
	// Strict makes the install exit non-zero when any tool fails or is
	// missing at the end of the run. Default is off: a recon box with
	// nine of eleven tools is still useful.
	Strict bool `toml:"strict" json:"strict"`
	// SkipWordlists disables the wordlist sync step.
	SkipWordlists bool `toml:"skip_wordlists" json:"skip_wordlists"`
	// CommandTimeoutSecs bounds each installer invocation. 0 means no
	// timeout; go install of large tools can legitimately take minutes.
	CommandTimeoutSecs int `toml:"command_timeout_secs" json:"command_timeout_secs"`
	// RateLimitMS is the minimum gap between installer invocations in
	// milliseconds, to avoid hammering package mirrors.
	RateLimitMS int `toml:"rate_limit_ms" json:"rate_limit_ms"`
}

// ToolchainConfig contains language toolchain settings.
type ToolchainConfig struct {
	// GoVersion is the Go release downloaded when no Go toolchain is
	// present, e.g. "1.22.5".
	GoVersion string `toml:"go_version" json:"go_version"`
	// GoChecksums maps "<os>-<arch>" to the expected SHA-256 of the Go
	// release tarball. When a key matches the download target the
	// tarball is verified before extraction. Empty map skips
	// verification.
	GoChecksums map[string]string `toml:"go_checksums" json:"go_checksums"`
}

// WordlistsConfig contains wordlist repository settings.
type WordlistsConfig struct {
	// Dir is where wordlist repos are cloned. Empty means
	// <tools_dir>/src.
	Dir string `toml:"dir" json:"dir"`
	// Repos lists the wordlist repositories to sync. Each repo's URLs
	// are tried in order until one clone succeeds.
	Repos []WordlistRepo `toml:"repos" json:"repos"`
}

// WordlistRepo identifies one wordlist repository and its mirrors.
type WordlistRepo struct {
	Name string   `toml:"name" json:"name"`
	URLs []string `toml:"urls" json:"urls"`
}

// EnvConfig contains shell environment settings.
type EnvConfig struct {
	// Manage enables rc file reconciliation. When false reconrig never
	// touches shell startup files; `reconrig env show` still prints
	// the lines to add by hand.
	Manage bool `toml:"manage" json:"manage"`
	// RCFiles overrides which shell startup files are reconciled.
	// Empty means the platform default (~/.bashrc on Linux, ~/.zshrc
	// on macOS, plus the other one when it already exists).
	RCFiles []string `toml:"rc_files" json:"rc_files"`
}

// HistoryConfig contains run journal settings.
type HistoryConfig struct {
	// Enabled turns the run journal on. Journal failures never fail a
	// run; they degrade to a warning.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database location. Empty means
	// ~/.reconrig/history.db.
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultGoVersion is the Go release fetched when the host has no Go
// toolchain and no override is configured.
const DefaultGoVersion = "1.22.5"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Install: InstallConfig{
			ToolsDir:           "~/tools",
			BasePackages:       nil,
			Strict:             false,
			SkipWordlists:      false,
			CommandTimeoutSecs: 0,
			RateLimitMS:        500,
		},
		Toolchain: ToolchainConfig{
			GoVersion:   DefaultGoVersion,
			GoChecksums: map[string]string{},
		},
		Wordlists: WordlistsConfig{
			Dir: "",
			Repos: []WordlistRepo{
				{
					Name: "OneListForAll",
					URLs: []string{
						"https://github.com/six2dez/OneListForAll.git",
						"https://gitlab.com/six2dez/OneListForAll.git",
					},
				},
			},
		},
		Env: EnvConfig{
			Manage:  true,
			RCFiles: nil,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the reconrig configuration directory (~/.reconrig).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".reconrig"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return util.EnsureDir(dir, 0755)
}

// ResolvedToolsDir expands the configured tools directory to an
// absolute path.
func (c *Config) ResolvedToolsDir() (string, error) {
	dir, err := util.ExpandHome(c.Install.ToolsDir)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", errors.New("install.tools_dir is empty")
	}
	return dir, nil
}

// BinDir returns <tools_dir>/bin, where go-installed binaries land.
func (c *Config) BinDir() (string, error) {
	dir, err := c.ResolvedToolsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bin"), nil
}

// SrcDir returns <tools_dir>/src, the default home for cloned repos.
func (c *Config) SrcDir() (string, error) {
	dir, err := c.ResolvedToolsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "src"), nil
}

// NpmPrefix returns <tools_dir>/npm, the prefix for npm global
// installs. Binaries appear under <tools_dir>/npm/bin. Keeping npm
// globals here avoids sudo for optional tools.
func (c *Config) NpmPrefix() (string, error) {
	dir, err := c.ResolvedToolsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "npm"), nil
}

// WordlistDir returns the resolved wordlist directory.
func (c *Config) WordlistDir() (string, error) {
	if c.Wordlists.Dir != "" {
		return util.ExpandHome(c.Wordlists.Dir)
	}
	return c.SrcDir()
}

// HistoryPath returns the resolved run journal path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return util.ExpandHome(c.History.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration with the standard precedence: TOML file,
// then JSON file, then built-in defaults. Whatever loads is passed
// through env overrides, migration, default filling, and validation.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadTOML(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadJSON(jsonPath)
		}
	}

	cfg := Default()
	return finishLoad(cfg)
}

// LoadTOML loads configuration from a TOML file. Keys absent from the
// file keep their defaults because decoding happens into a Default()
// value.
func LoadTOML(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return finishLoad(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return finishLoad(cfg)
}

// finishLoad applies the post-load pipeline shared by every source.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills any empty fields with their default values. Bools
// keep whatever the file said; only empty strings, nil slices, and nil
// maps are considered unset.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Install.ToolsDir == "" {
		c.Install.ToolsDir = def.Install.ToolsDir
	}
	if c.Install.RateLimitMS == 0 {
		c.Install.RateLimitMS = def.Install.RateLimitMS
	}
	if c.Toolchain.GoVersion == "" {
		c.Toolchain.GoVersion = def.Toolchain.GoVersion
	}
	if c.Toolchain.GoChecksums == nil {
		c.Toolchain.GoChecksums = map[string]string{}
	}
	if len(c.Wordlists.Repos) == 0 {
		c.Wordlists.Repos = def.Wordlists.Repos
	}
}

// =============================================================================
// SAVING
// =============================================================================

// SaveTOML writes the configuration to the standard TOML path.
func (c *Config) SaveTOML() error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return c.SaveTOMLTo(path)
}

// SaveTOMLTo writes the configuration as TOML to the given path. The
// write is atomic so a crash mid-save cannot corrupt the config.
func (c *Config) SaveTOMLTo(path string) error {
	var buf strings.Builder
	buf.WriteString("# reconrig configuration file\n")
	buf.WriteString("# Paths accept ~ and $HOME prefixes. Unknown keys are ignored.\n")
	buf.WriteString("# Environment overrides: RECONRIG_TOOLS_DIR, RECONRIG_STRICT, TOOLS_DIR (legacy).\n\n")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(buf.String()), 0644)
}

// SaveJSON writes the configuration as JSON to the standard JSON path.
func (c *Config) SaveJSON() error {
	path, err := ConfigPathJSON()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, append(data, '\n'), 0644)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates every invalid field so users can fix the
// whole file in one pass instead of replaying errors one at a time.
type ValidateErrors struct {
	Errors []*ValidationError
}

// Error implements the error interface.
func (e *ValidateErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d config errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

var (
	goVersionRegex = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	sha256Regex    = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []*ValidationError

	add := func(field, message string) {
		errs = append(errs, &ValidationError{Field: field, Message: message})
	}

	if c.Install.ToolsDir == "" {
		add("install.tools_dir", "must not be empty")
	}
	if c.Install.CommandTimeoutSecs < 0 {
		add("install.command_timeout_secs", "must be >= 0")
	}
	if c.Install.RateLimitMS < 0 {
		add("install.rate_limit_ms", "must be >= 0")
	}

	if !goVersionRegex.MatchString(c.Toolchain.GoVersion) {
		add("toolchain.go_version", fmt.Sprintf("%q is not a Go release version (expected e.g. %q)", c.Toolchain.GoVersion, DefaultGoVersion))
	}
	for target, sum := range c.Toolchain.GoChecksums {
		if !strings.Contains(target, "-") {
			add("toolchain.go_checksums", fmt.Sprintf("key %q must be <os>-<arch>, e.g. linux-amd64", target))
		}
		if !sha256Regex.MatchString(sum) {
			add("toolchain.go_checksums", fmt.Sprintf("value for %q is not a SHA-256 hex digest", target))
		}
	}

	for i, repo := range c.Wordlists.Repos {
		field := fmt.Sprintf("wordlists.repos[%d]", i)
		if repo.Name == "" {
			add(field+".name", "must not be empty")
		}
		if len(repo.URLs) == 0 {
			add(field+".urls", "must list at least one URL")
		}
		for _, raw := range repo.URLs {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "git" && u.Scheme != "ssh") {
				add(field+".urls", fmt.Sprintf("%q is not a clonable URL", raw))
			}
		}
	}

	for i, rc := range c.Env.RCFiles {
		if strings.TrimSpace(rc) == "" {
			add(fmt.Sprintf("env.rc_files[%d]", i), "must not be empty")
		}
	}

	if len(errs) > 0 {
		return &ValidateErrors{Errors: errs}
	}
	return nil
}

// =============================================================================
// MIGRATION
// =============================================================================

// Migrate upgrades configuration values written by older releases.
func (c *Config) Migrate() {
	// Early releases accepted "go1.22.5"; the tarball URL needs the
	// bare version.
	c.Toolchain.GoVersion = strings.TrimPrefix(c.Toolchain.GoVersion, "go")

	// Trailing separators break path joins on some shells' tab
	// completion output.
	if len(c.Install.ToolsDir) > 1 {
		c.Install.ToolsDir = strings.TrimRight(c.Install.ToolsDir, "/")
	}

	if c.Version == "" {
		c.Version = "1.0"
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies RECONRIG_* environment variables on top of
// the loaded file. TOOLS_DIR is honored for compatibility with the
// original shell bootstrap, at lower precedence than RECONRIG_TOOLS_DIR.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TOOLS_DIR"); v != "" {
		c.Install.ToolsDir = v
	}
	if v := os.Getenv("RECONRIG_TOOLS_DIR"); v != "" {
		c.Install.ToolsDir = v
	}
	if v := os.Getenv("RECONRIG_STRICT"); v != "" {
		c.Install.Strict = parseBoolEnv(v)
	}
	if v := os.Getenv("RECONRIG_SKIP_WORDLISTS"); v != "" {
		c.Install.SkipWordlists = parseBoolEnv(v)
	}
	if v := os.Getenv("RECONRIG_GO_VERSION"); v != "" {
		c.Toolchain.GoVersion = v
	}
	if v := os.Getenv("RECONRIG_HISTORY"); v != "" {
		c.History.Enabled = parseBoolEnv(v)
	}
}

// parseBoolEnv interprets common truthy spellings; anything else is
// false.
func parseBoolEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// =============================================================================
// DYNAMIC FIELD ACCESS (config get/set)
// =============================================================================

// Get retrieves a configuration value by dot-notation key, e.g.
// "install.tools_dir".
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()

	for _, part := range parts {
		v = fieldByTag(v, part)
		if !v.IsValid() {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	return v.Interface(), nil
}

// Set assigns a configuration value by dot-notation key. String inputs
// are converted to the field's type, so "true" and "30" work for bool
// and int fields.
func (c *Config) Set(key string, value string) error {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()

	for i, part := range parts {
		v = fieldByTag(v, part)
		if !v.IsValid() {
			return fmt.Errorf("unknown config key: %s", key)
		}
		if i < len(parts)-1 && v.Kind() != reflect.Struct {
			return fmt.Errorf("config key %s does not address a field", key)
		}
	}

	if !v.CanSet() {
		return fmt.Errorf("config key %s is not settable", key)
	}
	return setFieldValue(v, key, value)
}

// fieldByTag resolves a struct field by its toml tag, falling back to a
// case-insensitive field name match.
func fieldByTag(v reflect.Value, name string) reflect.Value {
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	t := v.Type()
	normalized := normalizeFieldName(name)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("toml"), ",")[0]
		if tag == name || normalizeFieldName(field.Name) == normalized {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// normalizeFieldName lowercases and strips separators so tools_dir,
// ToolsDir, and toolsdir all address the same field.
func normalizeFieldName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

// setFieldValue converts a string to the field's type and assigns it.
func setFieldValue(v reflect.Value, key, value string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config key %s expects a bool, got %q", key, value)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("config key %s expects an integer, got %q", key, value)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config key %s expects a number, got %q", key, value)
		}
		v.SetFloat(f)
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("config key %s cannot be set from the command line", key)
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		v.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("config key %s cannot be set from the command line", key)
	}
	return nil
}

// GetAllKeys returns every dot-notation key usable with Get and Set.
func GetAllKeys() []string {
	return []string{
		"version",
		"install.tools_dir",
		"install.base_packages",
		"install.strict",
		"install.skip_wordlists",
		"install.command_timeout_secs",
		"install.rate_limit_ms",
		"toolchain.go_version",
		"wordlists.dir",
		"env.manage",
		"env.rc_files",
		"history.enabled",
		"history.path",
	}
}

// =============================================================================
// UTILITIES
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Install.BasePackages != nil {
		clone.Install.BasePackages = append([]string(nil), c.Install.BasePackages...)
	}
	if c.Toolchain.GoChecksums != nil {
		clone.Toolchain.GoChecksums = make(map[string]string, len(c.Toolchain.GoChecksums))
		for k, v := range c.Toolchain.GoChecksums {
			clone.Toolchain.GoChecksums[k] = v
		}
	}
	if c.Wordlists.Repos != nil {
		clone.Wordlists.Repos = make([]WordlistRepo, len(c.Wordlists.Repos))
		for i, repo := range c.Wordlists.Repos {
			clone.Wordlists.Repos[i] = WordlistRepo{
				Name: repo.Name,
				URLs: append([]string(nil), repo.URLs...),
			}
		}
	}
	if c.Env.RCFiles != nil {
		clone.Env.RCFiles = append([]string(nil), c.Env.RCFiles...)
	}

	return &clone
}

// String returns the configuration as indented JSON for display.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// =============================================================================
// GLOBAL CONFIG SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first
// use. Load errors fall back to defaults so read-only commands keep
// working with a broken config file; commands that care call Load
// directly and surface the error.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal re-reads configuration from disk and replaces the
// global instance.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
	return nil
}

// SetGlobal replaces the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
}

// ResetGlobalForTesting clears the global config state. Only for tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	globalConfig = nil
	globalConfigMu.Unlock()
	globalConfigOnce = sync.Once{}
}
