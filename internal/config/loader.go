package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = ".chatwithdb"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "CHATWITHDB"
	logFile    = "chatwithdb.log"
)

var defaults = map[string]any{
	"database.host":              "localhost",
	"database.port":              5432,
	"database.name":              "",
	"database.user":              "",
	"database.password":          "",
	"database.sslmode":           "prefer",
	"database.connect_timeout":   "10s",
	"database.statement_timeout": "30s",

	"llm.base_url":    "https://api.groq.com/openai",
	"llm.api_key":     "",
	"llm.model":       "llama3-70b-8192",
	"llm.max_tokens":  1024,
	"llm.temperature": 0.0,
	"llm.timeout":     "30s",

	"policy.allow_mutations": false,
	"policy.row_limit":       1000,

	"ui.preview_rows": 20,

	"log.level": "info",
	"log.json":  false,
	"log.file":  "",

	"metrics.addr": "",
}

// Short environment names kept for compatibility with existing .env files.
var envAliases = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.name":     "DB_NAME",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"llm.api_key":       "GROQ_API_KEY",
}

// Options selects where configuration is read from. Zero values mean the
// standard locations.
type Options struct {
	// File overrides ~/.chatwithdb/config.yaml.
	File string
	// EnvFile overrides ./.env.
	EnvFile string
	// Overrides win over every other source; main fills it from flags.
	Overrides map[string]any
}

// Load resolves configuration from defaults, the config file, the dotenv
// file, the environment and overrides, lowest to highest precedence.
// A missing config file or dotenv file is not an error.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key := range defaults {
		if err := v.BindEnv(append([]string{key}, envNames(key)...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := readConfigFile(v, opts.File); err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := readDotenv(envFile)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, fmt.Errorf("merge %s: %w", envFile, err)
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Log.File == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		cfg.Log.File = filepath.Join(dir, logFile)
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigType(configType)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	dir, err := Dir()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	v.SetConfigName(configFile)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// readDotenv reads a dotenv file and maps recognised variable names onto
// nested config keys. Unknown variables are ignored.
func readDotenv(path string) (map[string]any, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	byEnv := map[string]string{}
	for key := range defaults {
		for _, name := range envNames(key) {
			byEnv[name] = key
		}
	}

	out := map[string]any{}
	for _, name := range dv.AllKeys() {
		key, ok := byEnv[strings.ToUpper(name)]
		if !ok {
			continue
		}
		setNested(out, key, dv.Get(name))
	}
	return out, nil
}

// envNames returns the environment variables bound to key, highest
// precedence first.
func envNames(key string) []string {
	names := []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	if alias, ok := envAliases[key]; ok {
		names = append(names, alias)
	}
	return names
}

func setNested(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Dir returns ~/.chatwithdb, where the config, log and REPL history live.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
