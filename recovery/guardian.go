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

// Guardian is a trusted contact holding one share of an owner's key. A
// guardian holds only its encrypted share out-of-band; the configuration
// records metadata, never share material.
type Guardian struct {
	// Npub identifies the guardian by public key (npub1...).
	Npub string `json:"npub"`
	// Label is an optional human-readable name.
	Label string `json:"label,omitempty"`
	// ShareIndex is the index of the share assigned to this guardian,
	// 0 while unassigned.
	ShareIndex uint8 `json:"share_index"`
	// AssignedAt is the unix time the share was assigned, 0 while
	// unassigned.
	AssignedAt int64 `json:"assigned_at"`
	// Confirmed records whether the guardian confirmed receipt.
	Confirmed bool `json:"confirmed"`
}

// NewGuardian creates an unassigned guardian entry.
func NewGuardian(npub, label string) *Guardian {
	return &Guardian{Npub: npub, Label: label}
}

// Clone returns an independent copy of the guardian.
func (g *Guardian) Clone() *Guardian {
	if g == nil {
		return nil
	}
	dup := *g
	return &dup
}
