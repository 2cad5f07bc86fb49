package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDir = ".contentmetrics"
	tokenFile = "token"
)

// TokenData holds the authentication token and server info.
type TokenData struct {
	Token  string `json:"token"`
	Server string `json:"server"`
	Email  string `json:"email,omitempty"`
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// SaveToken persists the token to ~/.contentmetrics/token with 0600 permissions.
func SaveToken(data TokenData) error {
	dir, err := configDirPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cannot marshal token data: %w", err)
	}

	path := filepath.Join(dir, tokenFile)
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("cannot write token file %s: %w", path, err)
	}
	return nil
}

// LoadToken reads the stored token from ~/.contentmetrics/token.
func LoadToken() (TokenData, error) {
	dir, err := configDirPath()
	if err != nil {
		return TokenData{}, err
	}

	b, err := os.ReadFile(filepath.Join(dir, tokenFile))
	if err != nil {
		if os.IsNotExist(err) {
			return TokenData{}, fmt.Errorf("not logged in. Run 'contentmetrics login' first")
		}
		return TokenData{}, fmt.Errorf("cannot read token file: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal(b, &data); err != nil {
		return TokenData{}, fmt.Errorf("corrupt token file: %w", err)
	}

	if data.Token == "" {
		return TokenData{}, fmt.Errorf("empty token. Run 'contentmetrics login' to re-authenticate")
	}
	return data, nil
}
