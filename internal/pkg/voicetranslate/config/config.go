package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"voicetranslate/internal/pkg/voicetranslate/language"
)

type Config struct {
	ListenAddr            string  `mapstructure:"listen_addr"`
	UseGPU                bool    `mapstructure:"use_gpu"`
	MockVoiceCloning      bool    `mapstructure:"mock_voice_cloning"`
	BatchSize             int     `mapstructure:"batch_size"`
	MaxSequenceLength     int     `mapstructure:"max_sequence_length"`
	SampleRate            int     `mapstructure:"sample_rate"`
	MinAudioDuration      float64 `mapstructure:"min_audio_duration"`
	MaxAudioDuration      float64 `mapstructure:"max_audio_duration"`
	MaxFileSizeMB         int     `mapstructure:"max_file_size_mb"`
	MaxTextLength         int     `mapstructure:"max_text_length"`
	MaxVoiceSamples       int     `mapstructure:"max_voice_samples"`
	NormalizationDB       float64 `mapstructure:"normalization_db"`
	SilenceThresholdDB    float64 `mapstructure:"silence_threshold_db"`
	ModelsDir             string  `mapstructure:"models_dir"`
	SamplesDir            string  `mapstructure:"samples_dir"`
	OutputsDir            string  `mapstructure:"outputs_dir"`
	SaveIntermediateFiles bool    `mapstructure:"save_intermediate_files"`
	DefaultSourceLanguage string  `mapstructure:"default_source_language"`
	DefaultTargetLanguage string  `mapstructure:"default_target_language"`
	LogLevel              string  `mapstructure:"log_level"`
	LogFile               string  `mapstructure:"log_file"`
}

// Backend names the cloning variant. The choice is fixed at configuration
// load; there is no per-request override.
func (c *Config) Backend() string {
	if c.MockVoiceCloning {
		return "mock"
	}
	return "openvoice"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("use_gpu", false)
	v.SetDefault("mock_voice_cloning", true)
	v.SetDefault("batch_size", 1)
	v.SetDefault("max_sequence_length", 512)
	v.SetDefault("sample_rate", 24000)
	v.SetDefault("min_audio_duration", 1.0)
	v.SetDefault("max_audio_duration", 30.0)
	v.SetDefault("max_file_size_mb", 100)
	v.SetDefault("max_text_length", 1000)
	v.SetDefault("max_voice_samples", 5)
	v.SetDefault("normalization_db", -20.0)
	v.SetDefault("silence_threshold_db", 20.0)
	v.SetDefault("models_dir", "models")
	v.SetDefault("samples_dir", "samples")
	v.SetDefault("outputs_dir", "outputs")
	v.SetDefault("save_intermediate_files", false)
	v.SetDefault("default_source_language", "en")
	v.SetDefault("default_target_language", "es")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

func LoadAndParse(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	flagSet := pflag.NewFlagSet("voicetranslate", pflag.ContinueOnError)
	configFile := flagSet.StringP("config", "c", "", "Path to config file")
	flagSet.StringP("listen", "a", "", "HTTP listen address")
	flagSet.Bool("mock", true, "Use the mock voice cloning backend")
	flagSet.Bool("gpu", false, "Run model inference on the GPU")
	flagSet.StringP("models", "m", "", "Directory holding model weights")
	flagSet.String("samples", "", "Directory for uploaded voice samples")
	flagSet.String("outputs", "", "Directory for generated audio")
	flagSet.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	flagSet.String("log-file", "", "Log file path")
	helpFlag := flagSet.BoolP("help", "h", false, "Show help message")

	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *helpFlag {
		fmt.Fprintf(os.Stderr, "Usage: voicetranslate [options]\n\nOptions:\n")
		flagSet.PrintDefaults()
		os.Exit(0)
	}

	bindings := map[string]string{
		"listen_addr":        "listen",
		"mock_voice_cloning": "mock",
		"use_gpu":            "gpu",
		"models_dir":         "models",
		"samples_dir":        "samples",
		"outputs_dir":        "outputs",
		"log_level":          "log-level",
		"log_file":           "log-file",
	}
	for key, name := range bindings {
		flag := flagSet.Lookup(name)
		if !flag.Changed {
			continue // keep viper's default unless the flag was given
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("voicetranslate.cfg")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "voicetranslate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("VOICETRANSLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.MaxSequenceLength < 1 {
		return fmt.Errorf("max_sequence_length must be at least 1")
	}
	if c.MinAudioDuration <= 0 || c.MaxAudioDuration <= c.MinAudioDuration {
		return fmt.Errorf("audio duration window is invalid: min %.2fs, max %.2fs", c.MinAudioDuration, c.MaxAudioDuration)
	}
	if c.MaxVoiceSamples < 1 {
		return fmt.Errorf("max_voice_samples must be at least 1")
	}
	if c.MaxTextLength < 1 {
		return fmt.Errorf("max_text_length must be at least 1")
	}
	if _, ok := language.Lookup(c.DefaultSourceLanguage); !ok {
		return fmt.Errorf("default_source_language %q is not supported", c.DefaultSourceLanguage)
	}
	if _, ok := language.Lookup(c.DefaultTargetLanguage); !ok {
		return fmt.Errorf("default_target_language %q is not supported", c.DefaultTargetLanguage)
	}
	return nil
}
