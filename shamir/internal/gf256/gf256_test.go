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

package gf256_test

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/chebizarro/gnostr-recovery/shamir/internal/gf256"
)

func getRandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to read random bytes: %v", err)
	}
	return b
}

func TestAddition(t *testing.T) {
	for i := 0; i < 10; i++ {
		elems := getRandomBytes(t, 2)
		if got, want := gf256.Add(elems[0], elems[1]), elems[0]^elems[1]; got != want {
			t.Errorf("Add(%d, %d) = %d, want %d", elems[0], elems[1], got, want)
		}
	}
}

func TestMultiplication(t *testing.T) {
	for _, tc := range []struct {
		a    byte
		b    byte
		want byte
	}{
		// The following test cases are taken from various online examples of
		// AES finite field arithmetic, which uses GF(2^8) over the same
		// irreducible polynomial:
		// https://en.wikipedia.org/wiki/Finite_field_arithmetic#Rijndael's_(AES)_finite_field
		{a: 0x53, b: 0xCA, want: 0x01},
		{a: 0x02, b: 0x87, want: 0x15},
		{a: 0x03, b: 0x6E, want: 0xB2},
		// Identity and zero.
		{a: 0x01, b: 0xD4, want: 0xD4},
		{a: 0x00, b: 0xD4, want: 0x00},
	} {
		if got := gf256.Mul(tc.a, tc.b); got != tc.want {
			t.Errorf("Mul(%#x, %#x) = %#x, want %#x", tc.a, tc.b, got, tc.want)
		}
		// Multiplication is commutative.
		if got := gf256.Mul(tc.b, tc.a); got != tc.want {
			t.Errorf("Mul(%#x, %#x) = %#x, want %#x", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestMultiplicationDistributesOverAddition(t *testing.T) {
	for i := 0; i < 20; i++ {
		elems := getRandomBytes(t, 3)
		a, b, c := elems[0], elems[1], elems[2]

		left := gf256.Mul(a, gf256.Add(b, c))
		right := gf256.Add(gf256.Mul(a, b), gf256.Mul(a, c))
		if left != right {
			t.Errorf("a*(b+c) = %#x, (a*b)+(a*c) = %#x for a=%#x b=%#x c=%#x", left, right, a, b, c)
		}
	}
}

func TestInverse(t *testing.T) {
	// Every non-zero element multiplied by its inverse is 1.
	for i := 1; i < 256; i++ {
		inv, err := gf256.Inverse(byte(i))
		if err != nil {
			t.Fatalf("Inverse(%#x) err = %v, want nil", i, err)
		}
		if got := gf256.Mul(byte(i), inv); got != 1 {
			t.Errorf("Mul(%#x, Inverse(%#x)) = %#x, want 1", i, i, got)
		}
	}
}

func TestInverseOfZero(t *testing.T) {
	if _, err := gf256.Inverse(0); !errors.Is(err, gf256.ErrNoInverse) {
		t.Errorf("Inverse(0) err = %v, want %v", err, gf256.ErrNoInverse)
	}
}

func TestDivision(t *testing.T) {
	for i := 0; i < 20; i++ {
		elems := getRandomBytes(t, 2)
		a, b := elems[0], elems[1]
		if b == 0 {
			continue
		}
		q, err := gf256.Div(a, b)
		if err != nil {
			t.Fatalf("Div(%#x, %#x) err = %v, want nil", a, b, err)
		}
		if got := gf256.Mul(q, b); got != a {
			t.Errorf("Div(%#x, %#x) * %#x = %#x, want %#x", a, b, b, got, a)
		}
	}

	if _, err := gf256.Div(1, 0); !errors.Is(err, gf256.ErrNoInverse) {
		t.Errorf("Div(1, 0) err = %v, want %v", err, gf256.ErrNoInverse)
	}
}
