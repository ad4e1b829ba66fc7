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

package shamir

import "github.com/chebizarro/gnostr-recovery/securemem"

// Share is one point on the secret-sharing polynomial: the evaluation of
// every per-byte polynomial at x = Index. Index 0 is reserved (it would be
// the secret itself) and is never issued.
type Share struct {
	// Index is the share's evaluation point, 1 to 255.
	Index uint8
	// Data is the share payload, the same length as the split secret.
	Data []byte
}

// Clone returns an independent copy of the share.
func (s Share) Clone() Share {
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return Share{Index: s.Index, Data: data}
}

// Wipe zeroes the share payload. Shares are public commitments rather than
// secrets, but they should be treated as sensitive until it is known that
// fewer than threshold-1 of them could have leaked.
func (s *Share) Wipe() {
	securemem.Wipe(s.Data)
}

// WipeShares zeroes every share in the set.
func WipeShares(shares []Share) {
	for i := range shares {
		shares[i].Wipe()
	}
}
