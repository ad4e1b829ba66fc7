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

// Package shamir implements k-of-n [Shamir Secret Sharing] (SSS) on
// arbitrary-size secrets over GF(2^8). SSS is based on the Lagrange
// interpolation theorem, which states that `k` points are enough to uniquely
// determine a polynomial of degree less than or equal to `k - 1`.
//
// Each byte of the secret is split independently: it becomes the constant
// term of a random polynomial of degree k-1, which is evaluated at the
// non-zero x-coordinates 1..n to produce one byte of each share. Any k
// shares recover the secret exactly; any k-1 reveal nothing about it.
//
// This scheme is secure under the following assumptions:
//   - The scheme requires a trusted dealer to generate the shares.
//     Participants must trust the dealer with access to the secret and to
//     properly generate the shares.
//   - The scheme assumes a passive adversary which can observe (n - k)
//     shares without being able to reconstruct the secret. The adversary
//     isn't allowed to participate in reconstruction by providing a chosen
//     share. Examples of this attack: https://crypto.stackexchange.com/q/41994/76875
//
// [Shamir Secret Sharing]: https://web.mit.edu/6.857/OldStuff/Fall03/ref/Shamir-HowToShareAsecrets.pdf
package shamir

import (
	"errors"
	"fmt"

	"github.com/chebizarro/gnostr-recovery/securemem"
	"github.com/chebizarro/gnostr-recovery/shamir/internal/gf256"
	"github.com/google/tink/go/subtle/random"
)

// MaxShares is the largest supported share count, bounded by the non-zero
// x-coordinate domain of GF(2^8).
const MaxShares = 255

var (
	// ErrInvalidParams indicates a threshold or share count outside the
	// allowed range.
	ErrInvalidParams = errors.New("shamir: invalid parameters")
	// ErrInvalidKey indicates a nil or empty secret.
	ErrInvalidKey = errors.New("shamir: invalid secret")
	// ErrThresholdNotMet indicates fewer shares than the stated threshold.
	ErrThresholdNotMet = errors.New("shamir: threshold not met")
	// ErrMalformedShare indicates a share that fails structural validation:
	// bad encoding, reserved index, duplicate index, or inconsistent length.
	ErrMalformedShare = errors.New("shamir: malformed share")
)

// ValidateParams checks that (threshold, numShares) form a usable k-of-n
// configuration. It is also used standalone by configuration flows before
// any secret exists.
func ValidateParams(threshold, numShares int) error {
	if threshold < 2 {
		return fmt.Errorf("%w: threshold must be at least 2, got %d", ErrInvalidParams, threshold)
	}
	if numShares < 1 {
		return fmt.Errorf("%w: at least one share is required", ErrInvalidParams)
	}
	if threshold > numShares {
		return fmt.Errorf("%w: threshold %d exceeds share count %d", ErrInvalidParams, threshold, numShares)
	}
	if numShares > MaxShares {
		return fmt.Errorf("%w: at most %d shares are supported, got %d", ErrInvalidParams, MaxShares, numShares)
	}
	return nil
}

// Split splits secret into numShares shares of which any threshold
// reconstruct it. The polynomial coefficients above the constant term are
// drawn fresh from a cryptographically secure source on every call, so two
// splits of the same secret produce different share sets.
//
// The caller should wipe the returned shares with WipeShares once they have
// been handed off.
func Split(secret []byte, threshold, numShares int) ([]Share, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret must not be empty", ErrInvalidKey)
	}
	if err := ValidateParams(threshold, numShares); err != nil {
		return nil, err
	}

	shares := make([]Share, numShares)
	for i := range shares {
		shares[i] = Share{
			Index: uint8(i + 1), // index 0 is the secret itself
			Data:  make([]byte, len(secret)),
		}
	}

	// One polynomial per byte position. The coefficient buffer holds the
	// secret byte in coeffs[0], so it lives in wiped memory.
	coeffs := securemem.NewBuffer(threshold)
	defer coeffs.Destroy()
	c := coeffs.Bytes()

	for pos := range secret {
		c[0] = secret[pos]
		r := random.GetRandomBytes(uint32(threshold - 1))
		copy(c[1:], r)
		securemem.Wipe(r)

		for i := range shares {
			shares[i].Data[pos] = evaluatePolynomial(c, shares[i].Index)
		}
	}

	return shares, nil
}

// evaluatePolynomial evaluates the polynomial with the given coefficients at
// x using Horner's method, where coeffs take the form:
// f(x) = c[n-1] * x^(n-1) + c[n-2] * x^(n-2) + ... + c[1] * x^1 + c[0]
func evaluatePolynomial(coeffs []byte, x uint8) byte {
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 1; i > 0; i-- {
		result = gf256.Add(gf256.Mul(result, x), coeffs[i-1])
	}
	return result
}

// Combine reconstructs the secret from the supplied shares using Lagrange
// interpolation at x = 0. Exactly threshold shares are consumed; supplying
// more is legal and any size-threshold subset of a split recovers the same
// secret.
//
// The recovered secret is returned in a secure buffer so the caller can
// wipe it on every exit path. Combine does not detect forged shares: a
// consistent-looking set of wrong shares still "reconstructs" to garbage,
// so integrity checks belong to the caller.
func Combine(shares []Share, threshold int) (*securemem.Buffer, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no shares provided", ErrThresholdNotMet)
	}
	if len(shares) < threshold {
		return nil, fmt.Errorf("%w: %d shares provided, %d required", ErrThresholdNotMet, len(shares), threshold)
	}
	if err := validateShareSet(shares); err != nil {
		return nil, err
	}

	use := shares
	if threshold > 0 && len(use) > threshold {
		use = use[:threshold]
	}
	secretLen := len(use[0].Data)

	secret := securemem.NewBuffer(secretLen)
	out := secret.Bytes()

	for pos := 0; pos < secretLen; pos++ {
		var result byte

		for i := range use {
			xi := use[i].Index
			yi := use[i].Data[pos]

			// Lagrange basis polynomial evaluated at x = 0. In GF(2^8)
			// negation is the identity, so (0 - xj) is just xj.
			var numerator, denominator byte = 1, 1
			for j := range use {
				if i == j {
					continue
				}
				xj := use[j].Index
				numerator = gf256.Mul(numerator, xj)
				denominator = gf256.Mul(denominator, gf256.Add(xi, xj))
			}

			basis, err := gf256.Div(numerator, denominator)
			if err != nil {
				// Indices are distinct, so the denominator is a product of
				// non-zero elements and cannot be zero.
				secret.Destroy()
				return nil, fmt.Errorf("%w: %v", ErrMalformedShare, err)
			}

			result = gf256.Add(result, gf256.Mul(yi, basis))
		}

		out[pos] = result
	}

	return secret, nil
}

// validateShareSet rejects share sets that cannot belong to a single split:
// reserved or duplicate indices, empty payloads, or mismatched lengths.
func validateShareSet(shares []Share) error {
	var seen [MaxShares + 1]bool
	wantLen := len(shares[0].Data)

	for i := range shares {
		s := &shares[i]
		if s.Index == 0 {
			return fmt.Errorf("%w: share index 0 is reserved", ErrMalformedShare)
		}
		if seen[s.Index] {
			return fmt.Errorf("%w: duplicate share index %d", ErrMalformedShare, s.Index)
		}
		seen[s.Index] = true
		if len(s.Data) == 0 {
			return fmt.Errorf("%w: share %d has no data", ErrMalformedShare, s.Index)
		}
		if len(s.Data) != wantLen {
			return fmt.Errorf("%w: share %d has length %d, want %d", ErrMalformedShare, s.Index, len(s.Data), wantLen)
		}
	}
	return nil
}
