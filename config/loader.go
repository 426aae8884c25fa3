package config

import (
	"cmp"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. STENOPRO_SERVER_PORT.
const DefaultEnvPrefix = "STENOPRO"

// FileSystem abstracts the file operations the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver picks the config and env files to load.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles are the chosen paths. Empty means none was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// searchPaths lists the candidate locations for a service, most specific
// first.
func searchPaths(serviceName string) (configs, envs []string) {
	configs = []string{"./cmd/" + serviceName + "/config.yml", "./config/config.yml", "./config.yml"}
	envs = []string{"./.env." + serviceName, "./.env", "../.env"}
	return configs, envs
}

// ResolveFiles keeps explicit paths and searches for the rest.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	configs, envs := searchPaths(serviceName)
	return ResolvedFiles{
		ConfigFile: cmp.Or(opts.ConfigFile, r.first(configs)),
		EnvFile:    cmp.Or(opts.EnvFile, r.first(envs)),
	}
}

func (r *Resolver) first(paths []string) string {
	i := slices.IndexFunc(paths, r.FileSystem.Exists)
	if i < 0 {
		return ""
	}
	return paths[i]
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
	Aliases    map[string]string // env var -> config key
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithEnvAlias binds an unprefixed environment variable to a config key.
//
//	config.WithEnvAlias("GROQ_API_KEY", "transcription.groq.api_key")
func WithEnvAlias(envVar, key string) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Aliases == nil {
			lc.Aliases = make(map[string]string)
		}
		lc.Aliases[envVar] = key
	}
}

// LoadConfig fills cfg, a pointer to a mapstructure-tagged struct, from
// the service's YAML file, then its .env file, then the environment.
// Prefixed variables win over aliases.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix, FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}
	if lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	if err := bindEnv(v, lc, ConfigKeys(cfg)); err != nil {
		return err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", serviceName, err)
	}
	return nil
}

// bindEnv registers every key with viper so unset file keys can still be
// set from the environment, then applies aliases.
func bindEnv(v *viper.Viper, lc LoaderConfig, keys []string) error {
	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	for envVar, key := range lc.Aliases {
		val, ok := os.LookupEnv(envVar)
		if ok && !isPrefixedSet(lc.EnvPrefix, key) {
			v.Set(key, val)
		}
	}
	return nil
}

// isPrefixedSet reports whether the prefixed variable for key is set; the
// prefixed form wins over an alias.
func isPrefixedSet(prefix, key string) bool {
	name := strings.ToUpper(prefix + "_" + strings.ReplaceAll(key, ".", "_"))
	_, ok := os.LookupEnv(name)
	return ok
}

// ConfigKeys lists the dotted keys of every leaf field of cfg.
func ConfigKeys(cfg interface{}) []string {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		name, opts, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if strings.Contains(opts, "squash") && ft.Kind() == reflect.Struct {
			collectKeys(ft, prefix, keys)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			collectKeys(ft, key, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}
