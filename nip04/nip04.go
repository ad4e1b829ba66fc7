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

// Package nip04 implements NIP-04 encrypted direct-message payloads: a
// secp256k1 ECDH shared secret used as an AES-256-CBC key, with the
// ciphertext serialized as base64(ct) + "?iv=" + base64(iv).
//
// Keys are passed as 64-character hex strings: the private key as 32 raw
// bytes, the public key as the 32-byte x coordinate.
package nip04

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/chebizarro/gnostr-recovery/securemem"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/tink/go/subtle/random"
)

var (
	// ErrInvalidKey indicates a key that is not a valid hex-encoded
	// secp256k1 key.
	ErrInvalidKey = errors.New("nip04: invalid key")
	// ErrMalformedPayload indicates ciphertext that does not follow the
	// base64(ct)?iv=base64(iv) form or does not decrypt cleanly.
	ErrMalformedPayload = errors.New("nip04: malformed payload")
)

// sharedSecret derives the ECDH shared secret between the private key and
// the x-only public key. NIP-04 uses the raw x coordinate of the shared
// point as the AES key, without hashing.
func sharedSecret(pubkeyHex, seckeyHex string) (*securemem.Buffer, error) {
	skBytes, err := hex.DecodeString(seckeyHex)
	if err != nil || len(skBytes) != 32 {
		securemem.Wipe(skBytes)
		return nil, fmt.Errorf("%w: private key must be 64 hex characters", ErrInvalidKey)
	}
	defer securemem.Wipe(skBytes)

	pkBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil || len(pkBytes) != 32 {
		return nil, fmt.Errorf("%w: public key must be 64 hex characters", ErrInvalidKey)
	}

	priv := secp256k1.PrivKeyFromBytes(skBytes)
	defer priv.Zero()

	// x-only keys are interpreted as points with even y.
	pub, err := secp256k1.ParsePubKey(append([]byte{0x02}, pkBytes...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	shared := secp256k1.GenerateSharedSecret(priv, pub)
	buf := securemem.NewBufferFrom(shared)
	securemem.Wipe(shared)
	return buf, nil
}

// Encrypt encrypts plaintext to the holder of pubkeyHex.
func Encrypt(plaintext, pubkeyHex, seckeyHex string) (string, error) {
	key, err := sharedSecret(pubkeyHex, seckeyHex)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	iv := random.GetRandomBytes(aes.BlockSize)

	padded := pad([]byte(plaintext), aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(padded, padded)

	out := base64.StdEncoding.EncodeToString(padded) + "?iv=" + base64.StdEncoding.EncodeToString(iv)
	securemem.Wipe(padded)
	return out, nil
}

// Decrypt decrypts a payload produced by Encrypt with the counterpart keys.
func Decrypt(content, pubkeyHex, seckeyHex string) (string, error) {
	ctB64, ivB64, found := strings.Cut(content, "?iv=")
	if !found {
		return "", fmt.Errorf("%w: missing iv separator", ErrMalformedPayload)
	}

	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext base64", ErrMalformedPayload)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv base64", ErrMalformedPayload)
	}
	if len(iv) != aes.BlockSize || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad block sizes", ErrMalformedPayload)
	}

	key, err := sharedSecret(pubkeyHex, seckeyHex)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	cipher.NewCBCDecrypter(block, iv).CryptBlocks(ct, ct)

	plaintext, err := unpad(ct, aes.BlockSize)
	if err != nil {
		securemem.Wipe(ct)
		return "", err
	}
	out := string(plaintext)
	securemem.Wipe(ct)
	return out, nil
}

// pad applies PKCS#7 padding, returning a new slice.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad strips and validates PKCS#7 padding in place.
func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrMalformedPayload)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformedPayload)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformedPayload)
		}
	}
	return b[:len(b)-n], nil
}
