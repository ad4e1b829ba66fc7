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

package shamir_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/chebizarro/gnostr-recovery/shamir"
)

const smallSecret = "abcdefghijklmnopqrstuvwxyz123456"

func getRandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to read random bytes: %v", err)
	}
	return b
}

// testSecret returns the 32 deterministic bytes used across recovery tests.
func testSecret() []byte {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i*7 + 42)
	}
	return secret
}

func TestSplitCombineWorks(t *testing.T) {
	for _, tc := range []struct {
		name      string
		secret    []byte
		threshold int
		numShares int
	}{
		{
			name:      "small secret n-3 t-2",
			secret:    []byte(smallSecret),
			threshold: 2,
			numShares: 3,
		},
		{
			name:      "small secret n-6 t-4",
			secret:    []byte(smallSecret),
			threshold: 4,
			numShares: 6,
		},
		{
			name:      "single byte secret n-2 t-2",
			secret:    []byte{0x42},
			threshold: 2,
			numShares: 2,
		},
		{
			name:      "large secret n-80 t-50",
			secret:    nil, // filled below
			threshold: 50,
			numShares: 80,
		},
		{
			name:      "max shares n-255 t-2",
			secret:    []byte(smallSecret),
			threshold: 2,
			numShares: 255,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			secret := tc.secret
			if secret == nil {
				secret = getRandomBytes(t, 300)
			}
			shares, err := shamir.Split(secret, tc.threshold, tc.numShares)
			if err != nil {
				t.Fatalf("shamir.Split() err = %v, want nil", err)
			}
			if len(shares) != tc.numShares {
				t.Fatalf("len(shares) = %d, want %d", len(shares), tc.numShares)
			}
			for i, s := range shares {
				if got, want := s.Index, uint8(i+1); got != want {
					t.Errorf("shares[%d].Index = %d, want %d", i, got, want)
				}
				if len(s.Data) != len(secret) {
					t.Errorf("shares[%d] has length %d, want %d", i, len(s.Data), len(secret))
				}
			}

			recon, err := shamir.Combine(shares, tc.threshold)
			if err != nil {
				t.Fatal(err)
			}
			defer recon.Destroy()
			if got, want := recon.Bytes(), secret; !bytes.Equal(got, want) {
				t.Errorf("got %v, want %v", hex.EncodeToString(got), hex.EncodeToString(want))
			}
		})
	}
}

func TestValidThresholds(t *testing.T) {
	secret := testSecret()
	for _, tc := range []struct {
		threshold int
		numShares int
	}{
		{2, 2}, {2, 3}, {2, 5}, {3, 5}, {5, 10}, {10, 10},
	} {
		shares, err := shamir.Split(secret, tc.threshold, tc.numShares)
		if err != nil {
			t.Fatalf("Split(%d-of-%d) err = %v, want nil", tc.threshold, tc.numShares, err)
		}
		if len(shares) != tc.numShares {
			t.Errorf("Split(%d-of-%d) produced %d shares", tc.threshold, tc.numShares, len(shares))
		}
	}
}

// Any size-k subset must recover the secret, not just the first k shares.
func TestCombineAnySubset(t *testing.T) {
	secret := testSecret()
	threshold := 3
	shares, err := shamir.Split(secret, threshold, 6)
	if err != nil {
		t.Fatal(err)
	}

	subsets := [][]int{
		{0, 1, 2},
		{3, 4, 5},
		{0, 2, 4},
		{5, 1, 3}, // order shouldn't matter either
		{5, 4, 0},
	}
	for _, subset := range subsets {
		picked := make([]shamir.Share, 0, len(subset))
		for _, i := range subset {
			picked = append(picked, shares[i])
		}
		recon, err := shamir.Combine(picked, threshold)
		if err != nil {
			t.Fatalf("Combine(subset %v) err = %v, want nil", subset, err)
		}
		if !bytes.Equal(recon.Bytes(), secret) {
			t.Errorf("Combine(subset %v) = %v, want %v", subset,
				hex.EncodeToString(recon.Bytes()), hex.EncodeToString(secret))
		}
		recon.Destroy()
	}
}

func TestCombineWithSurplusShares(t *testing.T) {
	secret := testSecret()
	shares, err := shamir.Split(secret, 2, 5)
	if err != nil {
		t.Fatal(err)
	}

	// All five shares against a threshold of two.
	recon, err := shamir.Combine(shares, 2)
	if err != nil {
		t.Fatalf("Combine() err = %v, want nil", err)
	}
	defer recon.Destroy()
	if !bytes.Equal(recon.Bytes(), secret) {
		t.Errorf("got %v, want %v", hex.EncodeToString(recon.Bytes()), hex.EncodeToString(secret))
	}
}

// Splitting is randomized: repeated splits of one secret must not repeat
// share payloads.
func TestSplitIsRandomized(t *testing.T) {
	secret := testSecret()
	first, err := shamir.Split(secret, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := shamir.Split(secret, 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range first {
		if !bytes.Equal(first[i].Data, second[i].Data) {
			same = false
			break
		}
	}
	if same {
		t.Error("two splits of the same secret produced identical shares")
	}
}

func TestSplitInvalidInput(t *testing.T) {
	secret := testSecret()
	for _, tc := range []struct {
		name      string
		secret    []byte
		threshold int
		numShares int
		wantErr   error
	}{
		{
			name:      "threshold below two",
			secret:    secret,
			threshold: 1,
			numShares: 3,
			wantErr:   shamir.ErrInvalidParams,
		},
		{
			name:      "threshold above share count",
			secret:    secret,
			threshold: 5,
			numShares: 3,
			wantErr:   shamir.ErrInvalidParams,
		},
		{
			name:      "too many shares",
			secret:    secret,
			threshold: 2,
			numShares: 256,
			wantErr:   shamir.ErrInvalidParams,
		},
		{
			name:      "nil secret",
			secret:    nil,
			threshold: 2,
			numShares: 3,
			wantErr:   shamir.ErrInvalidKey,
		},
		{
			name:      "empty secret",
			secret:    []byte{},
			threshold: 2,
			numShares: 3,
			wantErr:   shamir.ErrInvalidKey,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := shamir.Split(tc.secret, tc.threshold, tc.numShares); !errors.Is(err, tc.wantErr) {
				t.Errorf("Split() err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCombineBelowThreshold(t *testing.T) {
	secret := testSecret()
	shares, err := shamir.Split(secret, 3, 5)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := shamir.Combine(shares[:2], 3); !errors.Is(err, shamir.ErrThresholdNotMet) {
		t.Errorf("Combine() err = %v, want %v", err, shamir.ErrThresholdNotMet)
	}
	if _, err := shamir.Combine(nil, 3); !errors.Is(err, shamir.ErrThresholdNotMet) {
		t.Errorf("Combine(nil) err = %v, want %v", err, shamir.ErrThresholdNotMet)
	}
}

func TestCombineMalformedShareSets(t *testing.T) {
	secret := testSecret()
	for _, tc := range []struct {
		name   string
		mutate func([]shamir.Share) []shamir.Share
	}{
		{
			name: "duplicate index",
			mutate: func(s []shamir.Share) []shamir.Share {
				s[1] = s[0].Clone()
				return s
			},
		},
		{
			name: "reserved index zero",
			mutate: func(s []shamir.Share) []shamir.Share {
				s[0].Index = 0
				return s
			},
		},
		{
			name: "inconsistent data length",
			mutate: func(s []shamir.Share) []shamir.Share {
				s[1].Data = s[1].Data[:16]
				return s
			},
		},
		{
			name: "empty data",
			mutate: func(s []shamir.Share) []shamir.Share {
				s[2].Data = nil
				return s
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := shamir.Split(secret, 2, 3)
			if err != nil {
				t.Fatal(err)
			}
			shares = tc.mutate(shares)
			if _, err := shamir.Combine(shares, 2); !errors.Is(err, shamir.ErrMalformedShare) {
				t.Errorf("Combine() err = %v, want %v", err, shamir.ErrMalformedShare)
			}
		})
	}
}

func TestWipeShares(t *testing.T) {
	shares, err := shamir.Split(testSecret(), 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	shamir.WipeShares(shares)
	zero := make([]byte, 32)
	for i, s := range shares {
		if !bytes.Equal(s.Data, zero) {
			t.Errorf("shares[%d] not wiped", i)
		}
	}
}

func TestValidateParams(t *testing.T) {
	for _, tc := range []struct {
		name      string
		threshold int
		numShares int
		wantOK    bool
	}{
		{name: "minimal", threshold: 2, numShares: 2, wantOK: true},
		{name: "typical", threshold: 2, numShares: 3, wantOK: true},
		{name: "maximum", threshold: 255, numShares: 255, wantOK: true},
		{name: "threshold one", threshold: 1, numShares: 3, wantOK: false},
		{name: "threshold above count", threshold: 4, numShares: 3, wantOK: false},
		{name: "zero shares", threshold: 2, numShares: 0, wantOK: false},
		{name: "too many shares", threshold: 2, numShares: 300, wantOK: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := shamir.ValidateParams(tc.threshold, tc.numShares)
			if tc.wantOK && err != nil {
				t.Errorf("ValidateParams(%d, %d) err = %v, want nil", tc.threshold, tc.numShares, err)
			}
			if !tc.wantOK && !errors.Is(err, shamir.ErrInvalidParams) {
				t.Errorf("ValidateParams(%d, %d) err = %v, want %v", tc.threshold, tc.numShares, err, shamir.ErrInvalidParams)
			}
		})
	}
}
