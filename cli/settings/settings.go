// Package settings persists the custom endpoint settings and serves them as a
// core.ConfigSource.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/petal-labs/verdant/cli/keystore"
	"github.com/petal-labs/verdant/core"
)

// Store reads the endpoint settings from a keystore on every call, so changes
// saved by another process take effect on the next generation call.
type Store struct {
	ks keystore.Keystore
}

// New returns a Store backed by ks.
func New(ks keystore.Keystore) *Store {
	return &Store{ks: ks}
}

// TransportConfig implements core.ConfigSource. Missing entries are empty.
func (s *Store) TransportConfig(ctx context.Context) (core.TransportConfig, error) {
	if err := ctx.Err(); err != nil {
		return core.TransportConfig{}, err
	}
	url, err := s.get(keystore.EndpointURL)
	if err != nil {
		return core.TransportConfig{}, err
	}
	key, err := s.get(keystore.EndpointKey)
	if err != nil {
		return core.TransportConfig{}, err
	}
	return core.TransportConfig{EndpointURL: url, APIKey: core.NewSecret(key)}, nil
}

// Save stores cfg. Empty fields are removed rather than stored.
func (s *Store) Save(cfg core.TransportConfig) error {
	if err := s.put(keystore.EndpointURL, strings.TrimSpace(cfg.EndpointURL)); err != nil {
		return err
	}
	return s.put(keystore.EndpointKey, strings.TrimSpace(cfg.APIKey.Expose()))
}

// Reset removes both settings, reverting to the default provider.
func (s *Store) Reset() error {
	return s.Save(core.TransportConfig{})
}

func (s *Store) get(name string) (string, error) {
	v, err := s.ks.Get(name)
	var nf *keystore.ErrKeyNotFound
	if errors.As(err, &nf) {
		return "", nil
	}
	return v, err
}

func (s *Store) put(name, value string) error {
	if value != "" {
		return s.ks.Set(name, value)
	}
	err := s.ks.Delete(name)
	var nf *keystore.ErrKeyNotFound
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

var _ core.ConfigSource = (*Store)(nil)
