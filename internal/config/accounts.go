package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ErrNoAccountsFile is returned when the accounts file does not exist.
var ErrNoAccountsFile = errors.New("accounts file not found")

// Account is one entry of the hard-coded login directory.
type Account struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Email        string `mapstructure:"email"`
	Role         string `mapstructure:"role"`
	PasswordHash string `mapstructure:"password_hash"`
}

type accountsFile struct {
	Accounts []Account `mapstructure:"accounts"`
}

// LoadAccounts reads the login directory from a YAML, JSON or TOML file.
func LoadAccounts(path string) ([]Account, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoAccountsFile
		}
		return nil, fmt.Errorf("stat accounts file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var f accountsFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decode accounts file: %w", err)
	}
	return f.Accounts, nil
}
