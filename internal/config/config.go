package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/sessionwatch/)
// 2. Project config (sessionwatch.json in the given directory)
// 3. SESSIONWATCH_CONFIG file
// 4. SESSIONWATCH_CONFIG_CONTENT inline JSON
// 5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(GlobalConfigPath(), globalPath)
	loadOnce(filepath.Join(globalPath, "sessionwatch.jsonc"), globalPath)

	// 2. Project config
	if directory != "" {
		loadOnce(ProjectConfigPath(directory), directory)
		loadOnce(filepath.Join(directory, "sessionwatch.jsonc"), directory)
	}

	// 3. SESSIONWATCH_CONFIG file override
	if configPath := os.Getenv("SESSIONWATCH_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 4. SESSIONWATCH_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("SESSIONWATCH_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		// Resolve path
		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}

	if source.Data != nil {
		if target.Data == nil {
			target.Data = &types.DataConfig{}
		}
		if source.Data.Dir != "" {
			target.Data.Dir = source.Data.Dir
		}
	}

	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
	}

	if source.Monitor != nil {
		if target.Monitor == nil {
			target.Monitor = &types.MonitorConfig{}
		}
		if source.Monitor.Interval != 0 {
			target.Monitor.Interval = source.Monitor.Interval
		}
		if source.Monitor.Triggers != nil {
			target.Monitor.Triggers = source.Monitor.Triggers
		}
		if source.Monitor.Roles != nil {
			target.Monitor.Roles = source.Monitor.Roles
		}
		if source.Monitor.MaxInterventions != 0 {
			target.Monitor.MaxInterventions = source.Monitor.MaxInterventions
		}
		if source.Monitor.FirstMatchOnly != nil {
			target.Monitor.FirstMatchOnly = source.Monitor.FirstMatchOnly
		}
	}

	if source.Log != nil {
		if target.Log == nil {
			target.Log = &types.LogConfig{}
		}
		if source.Log.Level != "" {
			target.Log.Level = source.Log.Level
		}
		if source.Log.Pretty {
			target.Log.Pretty = true
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if dir := os.Getenv("SESSIONWATCH_DATA_DIR"); dir != "" {
		if config.Data == nil {
			config.Data = &types.DataConfig{}
		}
		config.Data.Dir = dir
	}

	if level := os.Getenv("SESSIONWATCH_LOG_LEVEL"); level != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = level
	}

	if interval := os.Getenv("SESSIONWATCH_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			if config.Monitor == nil {
				config.Monitor = &types.MonitorConfig{}
			}
			config.Monitor.Interval = types.Duration(d)
		}
	}

	if max := os.Getenv("SESSIONWATCH_MAX_INTERVENTIONS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			if config.Monitor == nil {
				config.Monitor = &types.MonitorConfig{}
			}
			config.Monitor.MaxInterventions = n
		}
	}

	if triggers := os.Getenv("SESSIONWATCH_TRIGGERS"); triggers != "" {
		if config.Monitor == nil {
			config.Monitor = &types.MonitorConfig{}
		}
		config.Monitor.Triggers = nil
		for _, t := range strings.Split(triggers, ",") {
			if t = strings.TrimSpace(t); t != "" {
				config.Monitor.Triggers = append(config.Monitor.Triggers, t)
			}
		}
	}

	if port := os.Getenv("SESSIONWATCH_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			if config.Server == nil {
				config.Server = &types.ServerConfig{}
			}
			config.Server.Port = n
		}
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
