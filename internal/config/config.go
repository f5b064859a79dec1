package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate when a setting is out of range.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Dedupe   DedupeConfig `yaml:"dedupe"`
	Web      WebConfig    `yaml:"web"`
	LogLevel string       `yaml:"log_level"`
}

type DedupeConfig struct {
	HashSize     int      `yaml:"hash_size"`     // dHash grid edge, fingerprint width is HashSize²
	Threshold    int      `yaml:"threshold"`     // Hamming distance applied by dedupe
	MinThreshold int      `yaml:"min_threshold"` // sweep start
	MaxThreshold int      `yaml:"max_threshold"` // sweep end (inclusive)
	Step         int      `yaml:"step"`          // sweep step
	Preprocess   bool     `yaml:"preprocess"`    // contrast/brightness adjustment before hashing
	Delete       bool     `yaml:"delete"`        // destructive mode; false means dry run
	Linkage      string   `yaml:"linkage"`       // chain or clique
	Workers      int      `yaml:"workers"`       // hashing workers, 0 = GOMAXPROCS
	Recursive    bool     `yaml:"recursive"`     // scan subdirectories
	Sidecar      string   `yaml:"sidecar"`       // metadata sidecar path (optional)
	Extensions   []string `yaml:"extensions"`    // image extension allow-list
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegInt is envInt that also accepts zero, used for distances.
func envNonNegInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key string, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma separated list, e.g. DEDUP_EXTENSIONS=".jpg,.png".
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// Load builds the configuration from the embedded defaults, the optional YAML
// file at path (PHOTO_DEDUP_CONFIG when path is empty) and environment variables,
// in that order of precedence.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	if path == "" {
		path = os.Getenv("PHOTO_DEDUP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.Dedupe.Extensions = NormalizeExtensions(cfg.Dedupe.Extensions)
	return &cfg, nil
}

func (c *Config) applyEnv() {
	d := &c.Dedupe
	d.HashSize = envInt("DEDUP_HASH_SIZE", d.HashSize)
	d.Threshold = envNonNegInt("DEDUP_THRESHOLD", d.Threshold)
	d.MinThreshold = envNonNegInt("DEDUP_MIN_THRESHOLD", d.MinThreshold)
	d.MaxThreshold = envNonNegInt("DEDUP_MAX_THRESHOLD", d.MaxThreshold)
	d.Step = envInt("DEDUP_STEP", d.Step)
	d.Preprocess = envBool("DEDUP_PREPROCESS", d.Preprocess)
	d.Delete = envBool("DEDUP_DELETE", d.Delete)
	d.Linkage = envString("DEDUP_LINKAGE", d.Linkage)
	d.Workers = envInt("DEDUP_WORKERS", d.Workers)
	d.Recursive = envBool("DEDUP_RECURSIVE", d.Recursive)
	d.Sidecar = envString("DEDUP_SIDECAR", d.Sidecar)
	d.Extensions = envList("DEDUP_EXTENSIONS", d.Extensions)

	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
}

// NormalizeExtensions lowercases entries and makes sure each carries a leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Validate checks the dedupe settings before any file is touched.
func (c *Config) Validate() error {
	d := c.Dedupe
	if d.HashSize <= 0 || d.HashSize%constants.HashSizeMultiple != 0 {
		return fmt.Errorf("%w: hash size must be a positive multiple of %d, got %d", ErrInvalid, constants.HashSizeMultiple, d.HashSize)
	}
	if d.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative, got %d", ErrInvalid, d.Threshold)
	}
	if d.MinThreshold < 0 || d.MaxThreshold < d.MinThreshold {
		return fmt.Errorf("%w: sweep bounds %d..%d", ErrInvalid, d.MinThreshold, d.MaxThreshold)
	}
	if d.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", ErrInvalid, d.Step)
	}
	if d.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, d.Workers)
	}
	if _, err := similarity.ParseLinkage(d.Linkage); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(d.Extensions) == 0 {
		return fmt.Errorf("%w: extension allow-list is empty", ErrInvalid)
	}
	return nil
}

// Bits returns the fingerprint width in bits for the configured hash size.
func (d *DedupeConfig) Bits() int {
	return d.HashSize * d.HashSize
}

// Addr returns the listen address of the JSON API.
func (w *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// DefaultExtensions is exported for callers that build options without a config file.
func DefaultExtensions() []string {
	return append([]string(nil), constants.DefaultExtensions...)
}
