package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/streamop/logger"
)

// FileSystem is the file access the loader needs. Tests substitute it.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads from the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv exports the variables of a .env file. Variables already set in
// the environment win.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Sources are the files a pipeline's configuration is read from. Either may
// be empty.
type Sources struct {
	ConfigFile string
	EnvFile    string
}

// Discover looks for the config and .env files of a pipeline in the usual
// places, most specific first.
func Discover(fs FileSystem, pipeline string) Sources {
	return Sources{
		ConfigFile: firstExisting(fs,
			fmt.Sprintf("cmd/%s/config.yml", pipeline),
			fmt.Sprintf("config/%s.yml", pipeline),
			"config/config.yml",
			"config.yml",
		),
		EnvFile: firstExisting(fs,
			fmt.Sprintf("cmd/%s/.env", pipeline),
			fmt.Sprintf(".env.%s", pipeline),
			".env",
		),
	}
}

func firstExisting(fs FileSystem, paths ...string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

type loader struct {
	fs        FileSystem
	sources   Sources
	envPrefix string
}

// Option configures LoadConfig and Load.
type Option func(*loader)

// WithFileSystem replaces the disk used for discovery and .env loading.
func WithFileSystem(fs FileSystem) Option {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile skips discovery of the YAML file.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.sources.ConfigFile = path }
}

// WithEnvFile skips discovery of the .env file.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.sources.EnvFile = path }
}

// WithEnvPrefix namespaces environment variables: with prefix "TOK",
// operator.parallelism is read from TOK_OPERATOR_PARALLELISM.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// LoadConfig fills cfg from the pipeline's YAML file, then its .env file and
// the environment. Environment variables override the file; every key is
// the upper-cased mapstructure path with dots replaced by underscores, so
// operator.shutdown_timeout is read from OPERATOR_SHUTDOWN_TIMEOUT.
//
// Files that do not exist are skipped, as are files that fail to parse.
func LoadConfig(pipeline string, cfg interface{}, opts ...Option) error {
	l := loader{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(&l)
	}
	found := Discover(l.fs, pipeline)
	if l.sources.ConfigFile == "" {
		l.sources.ConfigFile = found.ConfigFile
	}
	if l.sources.EnvFile == "" {
		l.sources.EnvFile = found.EnvFile
	}
	return l.load(pipeline, cfg)
}

func (l *loader) load(pipeline string, cfg interface{}) error {
	v := viper.New()

	if f := l.sources.ConfigFile; f != "" && l.fs.Exists(f) {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Failed to load config file", logger.MergeWithError(logger.Fields("file", f), err))
		}
	}
	if f := l.sources.EnvFile; f != "" && l.fs.Exists(f) {
		if err := l.fs.LoadEnv(f); err != nil {
			logger.Warn("Failed to load env file", logger.MergeWithError(logger.Fields("file", f), err))
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v, "", reflect.TypeOf(cfg)); err != nil {
		return fmt.Errorf("bind environment for pipeline %s: %w", pipeline, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for pipeline %s: %w", pipeline, err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// bindEnv registers every leaf key of t with viper. AutomaticEnv alone only
// answers keys viper already knows about, so values set only in the
// environment would be missed by Unmarshal.
func bindEnv(v *viper.Viper, prefix string, t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if opts == "squash" || (f.Anonymous && name == "") {
			if err := bindEnv(v, prefix, f.Type); err != nil {
				return err
			}
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := prefix + name

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() == reflect.Map:
			continue
		case ft.Kind() == reflect.Struct && ft != timeType:
			if err := bindEnv(v, key+".", ft); err != nil {
				return err
			}
		default:
			if err := v.BindEnv(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads configuration into a new T. When *T has ApplyDefaults or
// Validate methods they run after unmarshalling, in that order, so an
// invalid operator setting from any source fails with INVALID_CONFIGURATION.
func Load[T any](pipeline string, opts ...Option) (*T, error) {
	cfg := new(T)
	if err := LoadConfig(pipeline, cfg, opts...); err != nil {
		return nil, err
	}
	if d, ok := any(cfg).(interface{ ApplyDefaults() }); ok {
		d.ApplyDefaults()
	}
	if v, ok := any(cfg).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for pipeline %s: %w", pipeline, err)
		}
	}
	return cfg, nil
}
