// Package keystore provides encrypted storage for the Gemini API key and the
// custom endpoint settings.
package keystore

import (
	"os"
	"path/filepath"
	"runtime"
)

// Well-known entry names.
const (
	// GeminiKey holds the default provider API key.
	GeminiKey = "gemini"
	// EndpointURL and EndpointKey hold the custom endpoint settings.
	EndpointURL = "api_settings.url"
	EndpointKey = "api_settings.key"
)

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key-value pair.
	Set(name, value string) error
	// Get retrieves a value by name. Returns *ErrKeyNotFound if absent.
	Get(name string) (string, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names.
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// DefaultKeystorePath returns the default keystore file path.
// - macOS/Linux: ~/.verdant/keys.enc
// - Windows: %USERPROFILE%\.verdant\keys.enc
func DefaultKeystorePath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "keys.enc"
	}

	return filepath.Join(homeDir, ".verdant", "keys.enc")
}

// NewKeystore opens the default keystore, keyed by VERDANT_MASTER_KEY when set
// and by machine identity otherwise.
func NewKeystore() (Keystore, error) {
	return NewFileKeystore(DefaultKeystorePath(), DefaultMasterKeySource())
}
