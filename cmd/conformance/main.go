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

// Binary to validate share format conformance against clients written for
// other platforms: the share encoding, the threshold laws, and the envelope
// shape must all match for shares to be exchangeable.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"flag"
	"github.com/alecthomas/colour"
	"github.com/chebizarro/gnostr-recovery/recovery"
	"github.com/chebizarro/gnostr-recovery/shamir"
)

var (
	secretLen = flag.Int("secret-len", 32, "Length of the test secret in bytes")
)

type codecTest struct {
	testName string
	encoded  string
	valid    bool
}

func runCodecTests() bool {
	fmt.Println("Running share codec tests...")

	testCases := []codecTest{
		{
			testName: "Well-formed share",
			encoded:  "sss1:1:SGVsbG8gV29ybGQ=",
			valid:    true,
		},
		{
			testName: "Highest share index",
			encoded:  "sss1:255:dGVzdA==",
			valid:    true,
		},
		{
			testName: "Empty string",
			encoded:  "",
			valid:    false,
		},
		{
			testName: "Missing prefix",
			encoded:  "invalid",
			valid:    false,
		},
		{
			testName: "Prefix only",
			encoded:  "sss1:",
			valid:    false,
		},
		{
			testName: "Non-numeric index",
			encoded:  "sss1:abc:data",
			valid:    false,
		},
		{
			testName: "Wrong format version",
			encoded:  "sss2:1:data",
			valid:    false,
		},
		{
			testName: "Share index zero",
			encoded:  "sss1:0:dGVzdA==",
			valid:    false,
		},
		{
			testName: "Share index above 255",
			encoded:  "sss1:256:dGVzdA==",
			valid:    false,
		},
		{
			testName: "Invalid base64 payload",
			encoded:  "sss1:1:!!!",
			valid:    false,
		},
	}

	allPassed := true
	for _, testCase := range testCases {
		if shamir.ValidShare(testCase.encoded) == testCase.valid {
			colour.Printf("^2 - %v^R\n", testCase.testName)
		} else {
			colour.Printf("^1 - %v^R\n", testCase.testName)
			allPassed = false
		}
	}
	return allPassed
}

type thresholdTest struct {
	testName  string
	threshold int
	shares    int
	combine   int
	expectErr bool
}

func runThresholdTestCase(secret []byte, tc thresholdTest) error {
	shares, err := shamir.Split(secret, tc.threshold, tc.shares)
	if err != nil {
		return err
	}
	defer shamir.WipeShares(shares)

	// Shares travel as text between clients; round-trip the encoding
	// before combining, as a real recovery would.
	collected := make([]shamir.Share, 0, tc.combine)
	for _, share := range shares[:tc.combine] {
		encoded, err := shamir.EncodeShare(share)
		if err != nil {
			return err
		}
		decoded, err := shamir.DecodeShare(encoded)
		if err != nil {
			return err
		}
		collected = append(collected, decoded)
	}

	reconstructed, err := shamir.Combine(collected, tc.threshold)
	if err != nil {
		return err
	}
	defer reconstructed.Destroy()

	if !bytes.Equal(reconstructed.Bytes(), secret) {
		return fmt.Errorf("reconstructed secret does not match original")
	}
	return nil
}

func runThresholdTests(secret []byte) bool {
	fmt.Println("Running threshold tests...")

	testCases := []thresholdTest{
		{
			testName:  "2-of-3 with exactly the threshold",
			threshold: 2,
			shares:    3,
			combine:   2,
			expectErr: false,
		},
		{
			testName:  "3-of-5 with all shares",
			threshold: 3,
			shares:    5,
			combine:   5,
			expectErr: false,
		},
		{
			testName:  "3-of-5 with too few shares",
			threshold: 3,
			shares:    5,
			combine:   2,
			expectErr: true,
		},
	}

	allPassed := true
	for _, testCase := range testCases {
		err := runThresholdTestCase(secret, testCase)
		if testCase.expectErr == (err != nil) {
			colour.Printf("^2 - %v^R\n", testCase.testName)
		} else {
			colour.Printf("^1 - %v^R\n", testCase.testName)
			allPassed = false
		}
	}
	return allPassed
}

// runEnvelopeTest checks that encrypted share envelopes carry the type and
// version fields other clients key on.
func runEnvelopeTest() bool {
	fmt.Println("Running envelope tests...")

	ownerNsec := "nsec1vl029mgpspedva04g90vltkh6fvh240zqtv9k0t9af8935ke9laqsnlfe5"
	guardianNpub := "npub10elfcs4fr0l0r8af98jlmgdh9c8efcm8c3k8eyhxt8zsqaeq4qesrweu2q"

	encrypted, err := recovery.EncryptShare(shamir.Share{Index: 1, Data: []byte("conformance")}, ownerNsec, guardianNpub)
	if err != nil {
		colour.Printf("^1 - Envelope encryption^R\n")
		return false
	}

	var envelope struct {
		Type    string `json:"type"`
		Version string `json:"version"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(encrypted), &envelope); err != nil {
		colour.Printf("^1 - Envelope is valid JSON^R\n")
		return false
	}
	colour.Printf("^2 - Envelope is valid JSON^R\n")

	allPassed := true
	if envelope.Type == "social_recovery_share" {
		colour.Printf("^2 - Envelope type field^R\n")
	} else {
		colour.Printf("^1 - Envelope type field^R\n")
		allPassed = false
	}
	if envelope.Version == "1.0" {
		colour.Printf("^2 - Envelope version field^R\n")
	} else {
		colour.Printf("^1 - Envelope version field^R\n")
		allPassed = false
	}
	if envelope.Content != "" {
		colour.Printf("^2 - Envelope carries encrypted content^R\n")
	} else {
		colour.Printf("^1 - Envelope carries encrypted content^R\n")
		allPassed = false
	}
	return allPassed
}

func main() {
	flag.Parse()

	secret := make([]byte, *secretLen)
	for i := range secret {
		secret[i] = byte(i * 7)
	}

	passed := runCodecTests()
	passed = runThresholdTests(secret) && passed
	passed = runEnvelopeTest() && passed

	if !passed {
		os.Exit(1)
	}
}
