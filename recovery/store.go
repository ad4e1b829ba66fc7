// Copyright 2024 the gnostr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glog "github.com/golang/glog"
	"github.com/google/uuid"
)

// Store persists one recovery configuration per identity as a JSON file
// under a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore returns a store under the user's configuration directory.
func DefaultStore() (*Store, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("recovery: no user config directory: %w", err)
	}
	return NewStore(filepath.Join(cfgDir, "gnostr-signer", "recovery")), nil
}

// path derives the config file name from the owner identity: the bech32
// prefix is dropped and the next 16 characters keep filenames short while
// staying unique per identity.
func (s *Store) path(ownerNpub string) string {
	name := strings.TrimPrefix(ownerNpub, "npub1")
	if len(name) > 16 {
		name = name[:16]
	}
	return filepath.Join(s.dir, name+".json")
}

// Save writes the configuration for its owner, replacing any previous one.
// The write goes through a uniquely named temp file and a rename so a
// crashed save never leaves a truncated config behind.
func (s *Store) Save(config *Config) error {
	if config == nil || config.OwnerNpub == "" {
		return fmt.Errorf("%w: config has no owner", ErrSerialization)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("recovery: failed to create config directory: %w", err)
	}

	data, err := config.ToJSON()
	if err != nil {
		return err
	}

	path := s.path(config.OwnerNpub)
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return fmt.Errorf("recovery: failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recovery: failed to replace config file: %w", err)
	}

	glog.V(1).Infof("Saved recovery config for %s with %d guardians", config.OwnerNpub, len(config.Guardians))
	return nil
}

// Load reads the configuration for an identity. A missing configuration is
// not an error: it returns (nil, nil).
func (s *Store) Load(ownerNpub string) (*Config, error) {
	data, err := os.ReadFile(s.path(ownerNpub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("recovery: failed to read config file: %w", err)
	}
	return FromJSON(string(data))
}

// Delete removes the stored configuration for an identity. Deleting a
// configuration that does not exist is not an error.
func (s *Store) Delete(ownerNpub string) error {
	if err := os.Remove(s.path(ownerNpub)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("recovery: failed to delete config: %w", err)
	}
	return nil
}

// Exists reports whether a configuration is stored for the identity.
func (s *Store) Exists(ownerNpub string) bool {
	info, err := os.Stat(s.path(ownerNpub))
	return err == nil && info.Mode().IsRegular()
}
