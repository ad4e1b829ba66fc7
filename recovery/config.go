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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chebizarro/gnostr-recovery/shamir"
)

// ConfigVersion is the current configuration format version, persisted for
// future migrations.
const ConfigVersion = "1.0"

// ErrSerialization indicates a configuration that could not be encoded or
// parsed.
var ErrSerialization = errors.New("recovery: configuration serialization failed")

// Config describes the recovery setup for one identity: the threshold
// parameters and the guardian list, in share-assignment order. It is
// persisted as JSON; the actual shares are never part of it.
type Config struct {
	Version      string      `json:"version"`
	OwnerNpub    string      `json:"owner_npub"`
	Threshold    uint8       `json:"threshold"`
	TotalShares  uint8       `json:"total_shares"`
	CreatedAt    int64       `json:"created_at"`
	LastVerified int64       `json:"last_verified"`
	Guardians    []*Guardian `json:"guardians"`
}

// NewConfig creates an empty configuration for the given identity. Threshold
// and share count stay zero until recovery is set up.
func NewConfig(ownerNpub string) *Config {
	return &Config{
		Version:   ConfigVersion,
		OwnerNpub: ownerNpub,
		Guardians: []*Guardian{},
	}
}

// AddGuardian appends guardian to the configuration. It returns false and
// leaves the configuration unchanged when a guardian with the same npub is
// already present.
func (c *Config) AddGuardian(guardian *Guardian) bool {
	if guardian == nil {
		return false
	}
	if c.FindGuardian(guardian.Npub) != nil {
		return false
	}
	c.Guardians = append(c.Guardians, guardian)
	return true
}

// RemoveGuardian removes the guardian with the given npub. It returns false
// when no such guardian exists.
func (c *Config) RemoveGuardian(npub string) bool {
	for i, g := range c.Guardians {
		if g.Npub == npub {
			c.Guardians = append(c.Guardians[:i], c.Guardians[i+1:]...)
			return true
		}
	}
	return false
}

// FindGuardian returns the guardian with the given npub, or nil. The
// returned guardian is owned by the configuration.
func (c *Config) FindGuardian(npub string) *Guardian {
	for _, g := range c.Guardians {
		if g.Npub == npub {
			return g
		}
	}
	return nil
}

// ToJSON serializes the configuration.
func (c *Config) ToJSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(b), nil
}

// FromJSON parses a configuration previously produced by ToJSON.
func FromJSON(text string) (*Config, error) {
	var c Config
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if c.OwnerNpub == "" {
		return nil, fmt.Errorf("%w: missing owner_npub", ErrSerialization)
	}
	if c.Version == "" {
		c.Version = ConfigVersion
	}
	if c.Guardians == nil {
		c.Guardians = []*Guardian{}
	}
	return &c, nil
}

// ValidateThreshold checks a proposed k-of-n guardian setup before any key
// is split. Used by configuration flows for early feedback.
func ValidateThreshold(threshold, totalGuardians uint8) error {
	if threshold < 2 {
		return fmt.Errorf("%w: threshold must be at least 2, a single guardian could reconstruct the key", shamir.ErrInvalidParams)
	}
	if totalGuardians == 0 {
		return fmt.Errorf("%w: at least one guardian is required", shamir.ErrInvalidParams)
	}
	if threshold > totalGuardians {
		return fmt.Errorf("%w: threshold %d exceeds guardian count %d", shamir.ErrInvalidParams, threshold, totalGuardians)
	}
	return nil
}
