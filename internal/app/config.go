package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
)

// loadMoodTable returns the configured mood table, or the built-in one when
// no file is configured
func loadMoodTable(path string) (mood.Table, error) {
	if path == "" {
		return mood.DefaultTable(), nil
	}
	return loadMoodTableFromFile(path)
}

// loadMoodTableFromFile loads a mood table from a YAML or JSON file
func loadMoodTableFromFile(filePath string) (mood.Table, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return mood.Table{}, fmt.Errorf("mood table file does not exist: %s", filePath)
	}

	var (
		table mood.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		table, err = loadMoodTableFromYAML(filePath)
	case ".json":
		table, err = loadMoodTableFromJSON(filePath)
	default:
		// Try YAML first, then JSON
		if table, err = loadMoodTableFromYAML(filePath); err != nil {
			table, err = loadMoodTableFromJSON(filePath)
		}
	}
	if err != nil {
		return mood.Table{}, err
	}

	if len(table.Moods) == 0 {
		return mood.Table{}, fmt.Errorf("mood table %s defines no moods", filePath)
	}
	for label, phrase := range table.Moods {
		if strings.TrimSpace(label) == "" || strings.TrimSpace(phrase) == "" {
			return mood.Table{}, fmt.Errorf("mood table %s has an empty label or mood", filePath)
		}
	}
	return table, nil
}

func loadMoodTableFromYAML(filePath string) (mood.Table, error) {
	data, err := readFile(filePath)
	if err != nil {
		return mood.Table{}, fmt.Errorf("failed to read YAML mood table: %w", err)
	}

	var table mood.Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return mood.Table{}, fmt.Errorf("failed to parse YAML mood table: %w", err)
	}
	return table, nil
}

func loadMoodTableFromJSON(filePath string) (mood.Table, error) {
	data, err := readFile(filePath)
	if err != nil {
		return mood.Table{}, fmt.Errorf("failed to read JSON mood table: %w", err)
	}

	var table mood.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return mood.Table{}, fmt.Errorf("failed to parse JSON mood table: %w", err)
	}
	return table, nil
}

func readFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// GenerateExampleMoodTable writes the built-in mood table as YAML
func GenerateExampleMoodTable(outputFile string) error {
	table := mood.DefaultTable()
	table.Fallback = mood.DefaultFallback

	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal mood table: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mood table: %w", err)
	}

	fmt.Printf("✅ Example mood table written to: %s\n", outputFile)
	return nil
}

// ValidateMoodTable checks a mood table file and reports which of the given
// labels it leaves to the fallback
func ValidateMoodTable(filePath string, labels []string) error {
	table, err := loadMoodTableFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load mood table: %w", err)
	}

	missing := mood.NewMapper(table).Covers(labels)

	fmt.Printf("✅ Mood table is valid: %s\n", filePath)
	fmt.Printf("   - %d genres mapped\n", len(table.Moods))
	if len(missing) > 0 {
		fmt.Printf("   - Using fallback for: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateConfigFile loads and validates an application configuration file
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := configs.LoadConfigFrom(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if config.Paths.MoodTable != "" {
		if _, err := loadMoodTableFromFile(config.Paths.MoodTable); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	fmt.Printf("✅ Application configuration is valid: %s\n", configFile)
	fmt.Printf("   - Dataset: %s\n", config.Paths.DatasetDir)
	fmt.Printf("   - Models: %s\n", config.Paths.ModelDir)
	return config, nil
}
