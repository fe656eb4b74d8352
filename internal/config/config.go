package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pagefiles/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "pagefiles.json"

	// DefaultPort is the default development server port.
	DefaultPort = 5174

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultModuleID is the virtual module id of the generated routes.
	DefaultModuleID = "virtual:pagefiles"

	// DefaultOutput is where the routes module is written.
	DefaultOutput = "src/pagefiles.gen.js"

	// DefaultTimeout bounds one extraction.
	DefaultTimeout = "10s"

	// DefaultDebounce groups bursts of file events.
	DefaultDebounce = "50ms"
)

// ConfigFileNames are the accepted configuration files, in lookup order.
var ConfigFileNames = []string{ConfigFileName, "pagefiles.yaml", "pagefiles.yml"}

// Default globs, relative to the project root.
var (
	DefaultPages   = []string{"src/**/*.page.tsx"}
	DefaultLayouts = []string{"src/**/*.layout.tsx"}
	DefaultIgnore  = []string{"node_modules", ".git"}
)

// Error policy modes.
const (
	ModeAuto    = "auto"
	ModeStrict  = "strict"
	ModeLenient = "lenient"
)

// Import modes.
const (
	ImportModeAuto  = "auto"
	ImportModeSync  = "sync"
	ImportModeAsync = "async"
)

// Environment overrides.
const (
	EnvMode = "PAGEFILES_MODE"
	EnvNode = "PAGEFILES_NODE"
	EnvPort = "PAGEFILES_PORT"
)

// Config represents pagefiles.json (or pagefiles.yaml).
type Config struct {
	// Pages are globs matching page files.
	Pages []string `json:"pages,omitempty" yaml:"pages,omitempty"`

	// Layouts are globs matching layout files.
	Layouts []string `json:"layouts,omitempty" yaml:"layouts,omitempty"`

	// ModuleID is the virtual module id of the routes module.
	ModuleID string `json:"moduleId,omitempty" yaml:"moduleId,omitempty"`

	// Output is the path of the generated routes module.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Manifest is the path of the JSON manifest. Empty disables it.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`

	// ImportMode is auto, sync or async.
	ImportMode string `json:"importMode,omitempty" yaml:"importMode,omitempty"`

	// Mode is the error policy: auto, strict or lenient.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Sandbox configures metadata extraction.
	Sandbox SandboxConfig `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`

	// Dev configures watch mode and the dev server.
	Dev DevConfig `json:"dev,omitempty" yaml:"dev,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// root is the project root when no config file exists.
	root string
}

// SandboxConfig contains extraction settings.
type SandboxConfig struct {
	// Node is the Node.js executable.
	Node string `json:"node,omitempty" yaml:"node,omitempty"`

	// Timeout bounds one extraction (e.g. "10s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Concurrency bounds parallel extractions. Zero uses the CPU count.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// CacheSize bounds the content cache. Negative disables it.
	CacheSize int `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty"`
}

// Validate checks the sandbox settings.
func (c SandboxConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.By(duration)),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.CacheSize, validation.Min(-1)),
	)
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Debounce groups bursts of file events (e.g. "50ms").
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// Ignore lists directory names the watcher skips.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// Validate checks the dev server settings.
func (c DevConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Debounce, validation.By(duration)),
	)
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory. It looks for
// each of ConfigFileNames in order.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeInvalidConfig).
		WithDetail("No " + ConfigFileName + " found in " + dir).
		WithSuggestion("Create " + ConfigFileName + " or run pagefiles from the project root")
}

// LoadOrDefault loads the configuration in dir, falling back to defaults
// rooted at dir when there is none.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		cfg := New()
		cfg.root = abs
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path. YAML is used
// for .yaml and .yml files, JSON otherwise.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).WithFile(path).Wrap(err).
			WithDetail("Failed to read " + filepath.Base(path) + ": " + err.Error())
	}

	cfg := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).WithFile(path).Wrap(err).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.configPath = abs
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads .env from the project root without overriding variables
// that are already set. A missing file is not an error.
func LoadEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CodeInvalidConfig, errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root: the directory containing the config file,
// or the directory passed to LoadOrDefault.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return c.root
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if len(c.Pages) == 0 {
		c.Pages = append([]string(nil), DefaultPages...)
	}
	if len(c.Layouts) == 0 {
		c.Layouts = append([]string(nil), DefaultLayouts...)
	}
	if c.ModuleID == "" {
		c.ModuleID = DefaultModuleID
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.ImportMode == "" {
		c.ImportMode = ImportModeAuto
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}

	// Sandbox
	if c.Sandbox.Node == "" {
		c.Sandbox.Node = "node"
	}
	if c.Sandbox.Timeout == "" {
		c.Sandbox.Timeout = DefaultTimeout
	}

	// Dev
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Debounce == "" {
		c.Dev.Debounce = DefaultDebounce
	}
	if c.Dev.Ignore == nil {
		c.Dev.Ignore = append([]string(nil), DefaultIgnore...)
	}
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvMode); v != "" {
		c.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvNode); v != "" {
		c.Sandbox.Node = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Dev.Port = port
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Pages, validation.Required, validation.Each(validation.Required, validation.By(glob))),
		validation.Field(&c.Layouts, validation.Each(validation.Required, validation.By(glob))),
		validation.Field(&c.ModuleID, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.ImportMode, validation.In(ImportModeAuto, ImportModeSync, ImportModeAsync)),
		validation.Field(&c.Mode, validation.In(ModeAuto, ModeStrict, ModeLenient)),
		validation.Field(&c.Sandbox),
		validation.Field(&c.Dev),
	)
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).
			WithFile(c.configPath).
			WithDetail(err.Error()).
			Wrap(err)
	}
	return nil
}

func glob(value any) error {
	s, _ := value.(string)
	if !doublestar.ValidatePattern(filepath.ToSlash(s)) {
		return fmt.Errorf("invalid glob %q", s)
	}
	return nil
}

func duration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return fmt.Errorf("duration %q must not be negative", s)
	}
	return nil
}

// Strict resolves the error policy. defaultStrict applies in auto mode.
func (c *Config) Strict(defaultStrict bool) bool {
	switch c.Mode {
	case ModeStrict:
		return true
	case ModeLenient:
		return false
	default:
		return defaultStrict
	}
}

// SandboxTimeout returns the extraction timeout.
func (c *Config) SandboxTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sandbox.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// DebounceDuration returns the watcher debounce interval.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Dev.Debounce)
	if err != nil {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// OutputPath returns the absolute path to the routes module.
func (c *Config) OutputPath() string {
	return c.resolve(c.Output)
}

// ManifestPath returns the absolute path to the manifest, or "" when the
// manifest is disabled.
func (c *Config) ManifestPath() string {
	if c.Manifest == "" {
		return ""
	}
	return c.resolve(c.Manifest)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeInvalidConfig).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Create " + ConfigFileName + " at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration for the current working directory.
// Without a config file anywhere up the tree, defaults rooted at the working
// directory are used.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		root = wd
	}
	if err := LoadEnv(root); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err).WithDetail("Failed to load .env: " + err.Error())
	}

	return LoadOrDefault(root)
}
