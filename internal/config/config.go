package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tagmark/tagmark/internal/model"
)

// Config holds the client configuration: where the classification worker
// lives and how to authenticate against it.
type Config struct {
	WorkerURL string `json:"workerUrl"`
	APIKey    string `json:"apiKey"`
	Language  string `json:"language,omitempty"`
}

// Configured reports whether the remote endpoint is usable.
func (c *Config) Configured() bool {
	return c.WorkerURL != "" && c.APIKey != ""
}

// Load reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := Config{}
			// Create the config file so the user has something to edit
			if saveErr := Save(path, &config); saveErr != nil {
				// Non-fatal: return defaults even if save fails
				return &config, nil
			}
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save writes config to the JSON file.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
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

// DefaultConfigPath returns the default config path: ~/.config/tagmark/config.json
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tagmark", "config.json"), nil
}

// LoadLastBookmark reads the most recently classified bookmark.
// Returns nil (no error) if none was recorded yet.
func LoadLastBookmark(path string) (*model.LastBookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var last model.LastBookmark
	if err := json.Unmarshal(data, &last); err != nil {
		return nil, err
	}
	return &last, nil
}

// SaveLastBookmark records the most recently classified bookmark.
func SaveLastBookmark(path string, last *model.LastBookmark) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultLastBookmarkPath returns the default path: ~/.config/tagmark/last_bookmark.json
func DefaultLastBookmarkPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tagmark", "last_bookmark.json"), nil
}
