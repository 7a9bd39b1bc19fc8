package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type PlannerConfig struct {
	// Policy selects task generation: "heuristic" (deterministic templates)
	// or "model" (remote completion).
	Policy    string `json:"policy"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	TimeoutMS int    `json:"timeout_ms"`
}

type RuntimeConfig struct {
	WorkspaceRoot  string `json:"workspace_root"`
	MemoryCapacity int    `json:"memory_capacity"`
}

type SafetyConfig struct {
	CommandTimeoutMS int `json:"command_timeout_ms"`
	TestTimeoutMS    int `json:"test_timeout_ms"`
	OutputLimitBytes int `json:"output_limit_bytes"`
}

type StorageConfig struct {
	BaseDir string `json:"base_dir"`
}

type Config struct {
	Planner PlannerConfig `json:"planner"`
	Runtime RuntimeConfig `json:"runtime"`
	Safety  SafetyConfig  `json:"safety"`
	Storage StorageConfig `json:"storage"`
}

type fileConfig struct {
	Planner *PlannerConfig `json:"planner"`
	Runtime *RuntimeConfig `json:"runtime"`
	Safety  *SafetyConfig  `json:"safety"`
	Storage *StorageConfig `json:"storage"`
}

func Default() Config {
	return Config{
		Planner: PlannerConfig{
			Policy:    "heuristic",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4",
			TimeoutMS: 120000,
		},
		Runtime: RuntimeConfig{
			WorkspaceRoot:  "./workspace",
			MemoryCapacity: 100,
		},
		Safety: SafetyConfig{
			CommandTimeoutMS: 30000,
			TestTimeoutMS:    120000,
			OutputLimitBytes: 1 << 20,
		},
		Storage: StorageConfig{
			BaseDir: "~/.foreman",
		},
	}
}

// Load builds the effective config: defaults, then the config file (the
// explicit path, FOREMAN_CONFIG_PATH, or a discovered project file), then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("FOREMAN_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	cfg, err := applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	normalize(&cfg)
	return cfg, nil
}

func findProjectConfigPath() string {
	candidates := []string{
		"foreman.config.json",
		".foreman/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fc fileConfig
	if err := json.Unmarshal(cleaned, &fc); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}

	if fc.Planner != nil {
		cfg.Planner = mergePlanner(cfg.Planner, *fc.Planner)
	}
	if fc.Runtime != nil {
		cfg.Runtime = mergeRuntime(cfg.Runtime, *fc.Runtime)
	}
	if fc.Safety != nil {
		cfg.Safety = mergeSafety(cfg.Safety, *fc.Safety)
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	return nil
}

func mergePlanner(base, override PlannerConfig) PlannerConfig {
	if strings.TrimSpace(override.Policy) != "" {
		base.Policy = override.Policy
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeRuntime(base, override RuntimeConfig) RuntimeConfig {
	if strings.TrimSpace(override.WorkspaceRoot) != "" {
		base.WorkspaceRoot = override.WorkspaceRoot
	}
	if override.MemoryCapacity > 0 {
		base.MemoryCapacity = override.MemoryCapacity
	}
	return base
}

func mergeSafety(base, override SafetyConfig) SafetyConfig {
	if override.CommandTimeoutMS > 0 {
		base.CommandTimeoutMS = override.CommandTimeoutMS
	}
	if override.TestTimeoutMS > 0 {
		base.TestTimeoutMS = override.TestTimeoutMS
	}
	if override.OutputLimitBytes > 0 {
		base.OutputLimitBytes = override.OutputLimitBytes
	}
	return base
}

func mergeStorage(base, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	return base
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("FOREMAN_BASE_URL")); v != "" {
		cfg.Planner.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREMAN_MODEL")); v != "" {
		cfg.Planner.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREMAN_API_KEY")); v != "" {
		cfg.Planner.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Planner.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREMAN_WORKSPACE_ROOT")); v != "" {
		cfg.Runtime.WorkspaceRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREMAN_MEMORY_CAPACITY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid FOREMAN_MEMORY_CAPACITY: %q", v)
		}
		cfg.Runtime.MemoryCapacity = n
	}
	if v := strings.TrimSpace(os.Getenv("FOREMAN_STORAGE_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.Planner.Policy) == "" {
		cfg.Planner.Policy = def.Planner.Policy
	}
	if cfg.Planner.TimeoutMS <= 0 {
		cfg.Planner.TimeoutMS = def.Planner.TimeoutMS
	}
	if cfg.Runtime.MemoryCapacity <= 0 {
		cfg.Runtime.MemoryCapacity = def.Runtime.MemoryCapacity
	}
	if cfg.Safety.CommandTimeoutMS <= 0 {
		cfg.Safety.CommandTimeoutMS = def.Safety.CommandTimeoutMS
	}
	if cfg.Safety.TestTimeoutMS <= 0 {
		cfg.Safety.TestTimeoutMS = def.Safety.TestTimeoutMS
	}
	if cfg.Safety.OutputLimitBytes <= 0 {
		cfg.Safety.OutputLimitBytes = def.Safety.OutputLimitBytes
	}
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

// stripJSONComments removes // and /* */ comments outside string literals
// so config files can carry annotations.
func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	return out.Bytes()
}
