package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
)

// Config is the optional file-based configuration layered on top of env
// vars. A missing file is not an error; compiled-in defaults apply.
type Config struct {
	Categories CategoryConfig `yaml:"categories"`
	Oracle     OracleConfig   `yaml:"oracle"`
}

type CategoryConfig struct {
	FoodTokens           []string `yaml:"food_tokens"`
	TransportationTokens []string `yaml:"transportation_tokens"`
}

type OracleConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

func Default() Config {
	cat := types.DefaultCategorizer()
	return Config{
		Categories: CategoryConfig{
			FoodTokens:           cat.FoodTokens,
			TransportationTokens: cat.TransportTokens,
		},
		Oracle: OracleConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
	}
}

func Load(path string, log *logger.Logger) Config {
	cfg := Default()
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Could not read config file, using defaults", "path", path, "error", err)
		}
		return cfg
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		log.Warn("Could not parse config file, using defaults", "path", path, "error", err)
		return cfg
	}
	if len(fileCfg.Categories.FoodTokens) > 0 {
		cfg.Categories.FoodTokens = fileCfg.Categories.FoodTokens
	}
	if len(fileCfg.Categories.TransportationTokens) > 0 {
		cfg.Categories.TransportationTokens = fileCfg.Categories.TransportationTokens
	}
	if fileCfg.Oracle.Model != "" {
		cfg.Oracle.Model = fileCfg.Oracle.Model
	}
	if fileCfg.Oracle.Temperature > 0 {
		cfg.Oracle.Temperature = fileCfg.Oracle.Temperature
	}
	log.Info("Loaded config file", "path", path)
	return cfg
}

// Categorizer builds the derivation function the catalog uses.
func (c Config) Categorizer() types.Categorizer {
	return types.Categorizer{
		FoodTokens:      c.Categories.FoodTokens,
		TransportTokens: c.Categories.TransportationTokens,
	}
}
