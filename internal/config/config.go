package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig  `mapstructure:"paths"`
	Train    TrainConfig  `mapstructure:"train"`
	Server   ServerConfig `mapstructure:"server"`
	LogLevel string       `mapstructure:"log_level"`
}

type PathsConfig struct {
	VocabPath  string `mapstructure:"vocab_path"`
	MergesPath string `mapstructure:"merges_path"`
}

type TrainConfig struct {
	VocabSize     int      `mapstructure:"vocab_size"`
	SpecialTokens []string `mapstructure:"special_tokens"`
	CorpusPath    string   `mapstructure:"corpus_path"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			VocabPath:  "models/vocab.json",
			MergesPath: "models/merges.json",
		},
		Train: TrainConfig{
			VocabSize:     1024,
			SpecialTokens: []string{"<|endoftext|>"},
			CorpusPath:    "",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			MaxTextBytes:    65536,
			ShutdownTimeout: 30,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-vocab-path", defaults.Paths.VocabPath, "Path to the vocabulary artifact")
	fs.String("paths-merges-path", defaults.Paths.MergesPath, "Path to the merges artifact")
	fs.Int("train-vocab-size", defaults.Train.VocabSize, "Target vocabulary size for training")
	fs.StringSlice("train-special-tokens", defaults.Train.SpecialTokens, "Special tokens reserved during training and allowed at encode time")
	fs.String("train-corpus-path", defaults.Train.CorpusPath, "Path to the training corpus (reads stdin when empty)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent encode/decode requests (0 = unlimited)")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text size in bytes")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("POCKETBPE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("pocketbpe")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.vocab_path", c.Paths.VocabPath)
	v.SetDefault("paths.merges_path", c.Paths.MergesPath)
	v.SetDefault("train.vocab_size", c.Train.VocabSize)
	v.SetDefault("train.special_tokens", c.Train.SpecialTokens)
	v.SetDefault("train.corpus_path", c.Train.CorpusPath)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.vocab_path", "paths-vocab-path")
	v.RegisterAlias("paths.merges_path", "paths-merges-path")
	v.RegisterAlias("train.vocab_size", "train-vocab-size")
	v.RegisterAlias("train.special_tokens", "train-special-tokens")
	v.RegisterAlias("train.corpus_path", "train-corpus-path")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.max_text_bytes", "server-max-text-bytes")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("log_level", "log-level")
}
