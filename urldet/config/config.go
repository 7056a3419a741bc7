package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/SylvestreSakti/malicious-urls-detection/urldet"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Detector DetectorConfig `mapstructure:"detector"`
	Training TrainingConfig `mapstructure:"training"`
	Data     DataConfig     `mapstructure:"data"`
}

// DetectorConfig stores model hyperparameters. These are fixed at
// construction time; changing them requires building a new detector.
type DetectorConfig struct {
	Architecture string `mapstructure:"architecture"`
	VocabSize    int    `mapstructure:"vocabSize"`
	MaxLength    int    `mapstructure:"maxLength"`
}

// TrainingConfig stores training loop settings.
type TrainingConfig struct {
	Epochs          int     `mapstructure:"epochs"`
	BatchSize       int     `mapstructure:"batchSize"`
	LearningRate    float64 `mapstructure:"learningRate"`
	ValidationSplit float64 `mapstructure:"validationSplit"`
	LogsDir         string  `mapstructure:"logsDir"`
	RunDBPath       string  `mapstructure:"runDBPath"`
	CheckpointPath  string  `mapstructure:"checkpointPath"`
	Seed            int64   `mapstructure:"seed"`
	Verbose         bool    `mapstructure:"verbose"`
}

// DataConfig stores dataset loading details.
type DataConfig struct {
	CSVPath         string `mapstructure:"csvPath"`
	URLColumnName   string `mapstructure:"urlColumnName"`
	LabelColumnName string `mapstructure:"labelColumnName"`
	Binarize        bool   `mapstructure:"binarize"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("detector.architecture", "big_conv_nn")
	viper.SetDefault("detector.vocabSize", internal.DefaultVocabSize)
	viper.SetDefault("detector.maxLength", internal.DefaultMaxLength)

	viper.SetDefault("training.epochs", 5)
	viper.SetDefault("training.batchSize", 32)
	viper.SetDefault("training.learningRate", 0.001)
	viper.SetDefault("training.validationSplit", 0.2)
	viper.SetDefault("training.logsDir", internal.DefaultTrainingLogsDir)
	viper.SetDefault("training.runDBPath", internal.DefaultRunDBPath)
	viper.SetDefault("training.checkpointPath", internal.DefaultCheckpointPath)
	viper.SetDefault("training.seed", 0)
	viper.SetDefault("training.verbose", true)

	viper.SetDefault("data.urlColumnName", "url")
	viper.SetDefault("data.labelColumnName", "isMalicious")
	viper.SetDefault("data.binarize", false)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. training.logsDir becomes TRAINING_LOGSDIR

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used. This is not an
			// error for the application to halt on.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
