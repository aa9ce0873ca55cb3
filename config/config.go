package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// projectConfigNames are searched, in order, in each directory walking up.
var projectConfigNames = []string{
	"lombridge.yml",
	"lombridge.yaml",
	"lombridge.toml",
	".lombridge.yml",
	".lombridge.yaml",
}

// overrideConfigNames are applied after the project config, from its directory.
var overrideConfigNames = []string{
	"lombridge.override.yml",
	"lombridge.override.yaml",
	".lombridge.override.yml",
}

// IsConfigFile reports whether base is a file name the loader reads.
func IsConfigFile(base string) bool {
	for _, names := range [][]string{projectConfigNames, overrideConfigNames} {
		for _, name := range names {
			if base == name {
				return true
			}
		}
	}
	return false
}

// Load reads and parses a single configuration file, applying defaults and validation.
func Load(path string) (*Config, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	return finalize(raw)
}

// LoadDefault finds and loads the configuration with hierarchical merging:
// 1. Global config (~/.config/lombridge/lombridge.yml) - base layer
// 2. Project config (lombridge.yml or lombridge.toml) - overrides global
// 3. Local override (lombridge.override.yml) - overrides all
//
// When no file exists anywhere the defaults are returned.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging and logging
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	layered, err := loadLayers(startDir, logger)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		configData, err := yaml.Marshal(layered.Final)
		if err == nil {
			logger.Debugf("Merged configuration:\n%s", string(configData))
		}
	}

	return layered.Final, nil
}

// LoadLayered finds and loads all configuration layers (global, project, overrides)
// without merging them, for analysis purposes. It also computes the final merged config.
func LoadLayered(startDir string) (*LayeredConfig, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return loadLayers(startDir, logger)
}

func loadLayers(startDir string, logger *logrus.Logger) (*LayeredConfig, error) {
	layered := &LayeredConfig{
		Default:   Default(),
		Overrides: make([]OverrideSource, 0),
		FilePaths: make(map[ConfigSource]string),
	}

	merged := &Config{}

	// 1. Global layer (optional)
	if globalPath := paths.GlobalConfigFile(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			globalConfig, err := readRaw(globalPath)
			if err != nil {
				logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
			} else {
				layered.Global = globalConfig
				layered.FilePaths[SourceGlobal] = globalPath
				merged = mergeConfigs(merged, globalConfig)
			}
		}
	}

	// 2. Project layer (optional)
	projectPath, err := FindConfigFile(startDir)
	if err == nil {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		projectConfig, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		layered.Project = projectConfig
		layered.FilePaths[SourceProject] = projectPath
		merged = mergeConfigs(merged, projectConfig)

		// 3. Override layers next to the project file (optional)
		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideConfigNames {
			overridePath := filepath.Join(projectDir, name)
			if _, err := os.Stat(overridePath); err != nil {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")
			overrideConfig, err := readRaw(overridePath)
			if err != nil {
				logger.WithError(err).Warn("Failed to parse override file, skipping")
				continue
			}
			layered.Overrides = append(layered.Overrides, OverrideSource{Path: overridePath, Config: overrideConfig})
			merged = mergeConfigs(merged, overrideConfig)
		}
	}

	final, err := finalize(merged)
	if err != nil {
		return nil, err
	}
	layered.Final = final

	logger.Debug("Configuration loaded and validated successfully")
	return layered, nil
}

// LoadFromBytes parses YAML configuration from a byte array, validating it
// against the generated schema before applying defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	config, err := decodeYAML([]byte(expandEnvVars(string(data))))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}
	return finalize(config)
}

// finalize validates raw input against the schema, applies defaults and runs
// semantic validation.
func finalize(raw *Config) (*Config, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(raw); err != nil {
		return nil, err
	}

	cfg := *raw
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readRaw reads one file without defaults or validation. The format follows
// the file extension: .toml is TOML, anything else YAML.
func readRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := []byte(expandEnvVars(string(data)))

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		// Route TOML through YAML so inline extensions are captured the same way.
		var generic map[string]interface{}
		if err := toml.Unmarshal(expanded, &generic); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration").
				WithDetail("path", path)
		}
		if expanded, err = yaml.Marshal(generic); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to convert TOML configuration").
				WithDetail("path", path)
		}
	}

	cfg, err := decodeYAML(expanded)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("path", path)
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys inside typed sections. Unknown top-level
// keys are kept as extensions.
func decodeYAML(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile searches from startDir up to the filesystem root for a
// project configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range projectConfigNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
