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

// Package recovery implements social recovery of Nostr signing keys: a key
// is split into guardian shares with Shamir's Secret Sharing, each share is
// encrypted to its guardian with NIP-04, and a metadata configuration is
// persisted so the owner can later collect a threshold of shares and
// reconstruct the key.
package recovery

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chebizarro/gnostr-recovery/nip04"
	"github.com/chebizarro/gnostr-recovery/nip19"
	"github.com/chebizarro/gnostr-recovery/securemem"
	"github.com/chebizarro/gnostr-recovery/shamir"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyBytes is the size of a Nostr private key.
const KeyBytes = 32

const (
	shareEnvelopeType    = "social_recovery_share"
	shareEnvelopeVersion = "1.0"
)

var (
	// ErrShareEncryption indicates a failure while encrypting a share to a
	// guardian.
	ErrShareEncryption = errors.New("recovery: share encryption failed")
	// ErrShareDecryption indicates a share envelope that could not be
	// opened.
	ErrShareDecryption = errors.New("recovery: share decryption failed")
	// ErrReconstruction indicates that combined shares did not yield a
	// usable key.
	ErrReconstruction = errors.New("recovery: key reconstruction failed")
)

// shareEnvelope wraps an encrypted share with enough metadata for a
// guardian's client to recognize it.
type shareEnvelope struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Content string `json:"content"`
}

// ParsePrivateKey accepts an nsec1... identifier or a 64-character hex key
// and returns the raw key in a secure buffer. The caller destroys the
// buffer when done.
func ParsePrivateKey(input string) (*securemem.Buffer, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: private key is required", shamir.ErrInvalidKey)
	}
	if len(input) > 5 && input[:5] == "nsec1" {
		key, err := nip19.DecodeNsec(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shamir.ErrInvalidKey, err)
		}
		buf := securemem.NewBufferFrom(key)
		securemem.Wipe(key)
		return buf, nil
	}
	if len(input) == 2*KeyBytes {
		key, err := hex.DecodeString(input)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hex key", shamir.ErrInvalidKey)
		}
		buf := securemem.NewBufferFrom(key)
		securemem.Wipe(key)
		return buf, nil
	}
	return nil, fmt.Errorf("%w: key must be nsec1... or %d hex characters", shamir.ErrInvalidKey, 2*KeyBytes)
}

// parsePublicKey accepts an npub1... identifier or a 64-character hex key
// and returns the key as hex, the form the NIP-04 layer consumes.
func parsePublicKey(input string) (string, error) {
	if len(input) > 5 && input[:5] == "npub1" {
		key, err := nip19.DecodeNpub(input)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(key), nil
	}
	if len(input) == 2*KeyBytes {
		if _, err := hex.DecodeString(input); err != nil {
			return "", fmt.Errorf("%w: invalid hex public key", nip19.ErrInvalidIdentifier)
		}
		return input, nil
	}
	return "", fmt.Errorf("%w: key must be npub1... or %d hex characters", nip19.ErrInvalidIdentifier, 2*KeyBytes)
}

// deriveNpub computes the npub identifier for a raw private key.
func deriveNpub(seckey []byte) (string, error) {
	priv := secp256k1.PrivKeyFromBytes(seckey)
	defer priv.Zero()
	pubkey := priv.PubKey().SerializeCompressed()[1:]
	return nip19.EncodeNpub(pubkey)
}

// Setup splits the given private key across the guardians and returns the
// resulting configuration together with one encrypted share envelope per
// guardian, in guardian order. The envelopes should be delivered to each
// guardian out-of-band (e.g. via DM); the configuration should be stored
// locally. The key itself is wiped before Setup returns and is never part
// of either output.
func Setup(nsec string, threshold uint8, guardians []*Guardian) (*Config, []string, error) {
	if len(guardians) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one guardian is required", shamir.ErrInvalidParams)
	}
	if len(guardians) > shamir.MaxShares {
		return nil, nil, fmt.Errorf("%w: at most %d guardians are supported", shamir.ErrInvalidParams, shamir.MaxShares)
	}
	totalShares := uint8(len(guardians))
	if err := ValidateThreshold(threshold, totalShares); err != nil {
		return nil, nil, err
	}

	key, err := ParsePrivateKey(nsec)
	if err != nil {
		return nil, nil, err
	}
	defer key.Destroy()

	ownerNpub, err := deriveNpub(key.Bytes())
	if err != nil {
		return nil, nil, err
	}

	shares, err := shamir.Split(key.Bytes(), int(threshold), int(totalShares))
	if err != nil {
		return nil, nil, err
	}
	defer shamir.WipeShares(shares)

	config := NewConfig(ownerNpub)
	config.Threshold = threshold
	config.TotalShares = totalShares
	config.CreatedAt = time.Now().Unix()

	encrypted := make([]string, 0, len(guardians))
	for i, src := range guardians {
		guardian := src.Clone()
		if guardian == nil || guardian.Npub == "" {
			return nil, nil, fmt.Errorf("%w: guardian %d has no npub", shamir.ErrInvalidParams, i)
		}
		guardian.ShareIndex = shares[i].Index
		guardian.AssignedAt = config.CreatedAt

		envelope, err := EncryptShare(shares[i], nsec, guardian.Npub)
		if err != nil {
			return nil, nil, err
		}

		if !config.AddGuardian(guardian) {
			return nil, nil, fmt.Errorf("%w: duplicate guardian %s", shamir.ErrInvalidParams, guardian.Npub)
		}
		encrypted = append(encrypted, envelope)
	}

	return config, encrypted, nil
}

// EncryptShare encodes a share and encrypts it to a guardian with NIP-04,
// wrapped in a typed JSON envelope.
func EncryptShare(share shamir.Share, ownerNsec, guardianNpub string) (string, error) {
	shareText, err := shamir.EncodeShare(share)
	if err != nil {
		return "", err
	}

	key, err := ParsePrivateKey(ownerNsec)
	if err != nil {
		return "", err
	}
	defer key.Destroy()
	skHex := hex.EncodeToString(key.Bytes())

	pkHex, err := parsePublicKey(guardianNpub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShareEncryption, err)
	}

	ciphertext, err := nip04.Encrypt(shareText, pkHex, skHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShareEncryption, err)
	}

	envelope, err := json.Marshal(shareEnvelope{
		Type:    shareEnvelopeType,
		Version: shareEnvelopeVersion,
		Content: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShareEncryption, err)
	}
	return string(envelope), nil
}

// DecryptShare opens a share envelope received from the identity owner,
// using the guardian's own private key.
func DecryptShare(encrypted, guardianNsec, ownerNpub string) (shamir.Share, error) {
	var envelope shareEnvelope
	if err := json.Unmarshal([]byte(encrypted), &envelope); err != nil {
		return shamir.Share{}, fmt.Errorf("%w: invalid envelope: %v", ErrShareDecryption, err)
	}
	if envelope.Type != shareEnvelopeType {
		return shamir.Share{}, fmt.Errorf("%w: unexpected envelope type %q", ErrShareDecryption, envelope.Type)
	}
	if envelope.Content == "" {
		return shamir.Share{}, fmt.Errorf("%w: missing encrypted content", ErrShareDecryption)
	}

	key, err := ParsePrivateKey(guardianNsec)
	if err != nil {
		return shamir.Share{}, err
	}
	defer key.Destroy()
	skHex := hex.EncodeToString(key.Bytes())

	pkHex, err := parsePublicKey(ownerNpub)
	if err != nil {
		return shamir.Share{}, fmt.Errorf("%w: %v", ErrShareDecryption, err)
	}

	plaintext, err := nip04.Decrypt(envelope.Content, pkHex, skHex)
	if err != nil {
		return shamir.Share{}, fmt.Errorf("%w: %v", ErrShareDecryption, err)
	}

	share, err := shamir.DecodeShare(plaintext)
	if err != nil {
		return shamir.Share{}, err
	}
	return share, nil
}

// Recover combines collected guardian shares back into the owner's private
// key and returns it as an nsec1... identifier.
func Recover(collected []shamir.Share, threshold uint8) (string, error) {
	secret, err := shamir.Combine(collected, int(threshold))
	if err != nil {
		return "", err
	}
	defer secret.Destroy()

	if secret.Len() != KeyBytes {
		return "", fmt.Errorf("%w: reconstructed secret has length %d, want %d", ErrReconstruction, secret.Len(), KeyBytes)
	}

	nsec, err := nip19.EncodeNsec(secret.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReconstruction, err)
	}
	return nsec, nil
}
