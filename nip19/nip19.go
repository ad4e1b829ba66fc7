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

// Package nip19 encodes and decodes the bech32 key identifiers defined by
// NIP-19: npub for public keys and nsec for private keys. Both carry a raw
// 32-byte key as payload.
package nip19

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	hrpNpub = "npub"
	hrpNsec = "nsec"

	// KeyBytes is the payload length of both identifier kinds.
	KeyBytes = 32
)

// ErrInvalidIdentifier indicates a string that is not a well-formed npub or
// nsec.
var ErrInvalidIdentifier = errors.New("nip19: invalid identifier")

func encode(hrp string, key []byte) (string, error) {
	if len(key) != KeyBytes {
		return "", fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidIdentifier, KeyBytes, len(key))
	}
	grouped, err := bech32.ConvertBits(key, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	encoded, err := bech32.Encode(hrp, grouped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return encoded, nil
}

func decode(wantHRP, s string) ([]byte, error) {
	hrp, grouped, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	if hrp != wantHRP {
		return nil, fmt.Errorf("%w: expected %q prefix, got %q", ErrInvalidIdentifier, wantHRP, hrp)
	}
	key, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("%w: payload must be %d bytes, got %d", ErrInvalidIdentifier, KeyBytes, len(key))
	}
	return key, nil
}

// EncodeNpub encodes a 32-byte public key as an npub1... identifier.
func EncodeNpub(pubkey []byte) (string, error) {
	return encode(hrpNpub, pubkey)
}

// DecodeNpub decodes an npub1... identifier to the raw 32-byte public key.
func DecodeNpub(npub string) ([]byte, error) {
	return decode(hrpNpub, npub)
}

// EncodeNsec encodes a 32-byte private key as an nsec1... identifier.
func EncodeNsec(seckey []byte) (string, error) {
	return encode(hrpNsec, seckey)
}

// DecodeNsec decodes an nsec1... identifier to the raw 32-byte private key.
// The caller owns the returned key material and should wipe it after use.
func DecodeNsec(nsec string) ([]byte, error) {
	return decode(hrpNsec, nsec)
}
