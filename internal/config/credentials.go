package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "chatwithdb"

// keyringAccount identifies a credential by connection, e.g.
// app@db.internal:5432/shop.
func (c *Config) keyringAccount() string {
	return c.ConnectionConfig().String()
}

// ResolvePassword fills Database.Password from the OS keyring when it is not
// configured. A missing entry is not an error; the server may not need one.
func (c *Config) ResolvePassword() error {
	if c.Database.Password != "" {
		return nil
	}
	secret, err := keyring.Get(keyringService, c.keyringAccount())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read keyring: %w", err)
	}
	c.Database.Password = secret
	return nil
}

// RememberPassword stores the configured password in the OS keyring so it can
// be removed from config files.
func (c *Config) RememberPassword() error {
	if c.Database.Password == "" {
		return &FieldError{Key: "database.password", Reason: "is empty, nothing to remember"}
	}
	if err := keyring.Set(keyringService, c.keyringAccount(), c.Database.Password); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}
