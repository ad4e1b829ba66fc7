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

// Package gf256 implements byte-wise arithmetic over GF(2^8), the Rijndael
// (AES) field with irreducible polynomial x^8 + x^4 + x^3 + x + 1.
package gf256

import "errors"

// irreducible polynomial (x^8 + x^4 + x^3 + x + 1)
// (x^8 + x^4 + x^3 + x + 1) = {0x01 0x1B}
// we deal with uint8 so we only need 0x1B
const irreduciblePolynomial = 0x1B

// ErrNoInverse is returned when the multiplicative inverse of zero is
// requested.
var ErrNoInverse = errors.New("gf256: inverse of zero is not defined")

// Add returns a + b in GF(2^8). Addition and subtraction are the same
// operation (xor) in this field.
func Add(a, b byte) byte {
	return a ^ b
}

// Mul returns a * b in GF(2^8).
//
// This function tries to defend against side-channel attacks
// (timing, cache), hence avoiding pre-computed tables and branches.
func Mul(a, b byte) byte {
	var product uint8

	// Similar steps to:
	// https://en.wikipedia.org/wiki/Finite_field_arithmetic#Multiplication
	// This code avoids branching by negating values (ex:`-foo`)
	// negating values produces a mask of either all zeros or ones
	// which allows AND operations without branching.
	for i := 7; i >= 0; i-- {
		// if MSB in current product is set, mod is irreduciblePolynomial, else 0
		mod := (-(product >> 7)) & irreduciblePolynomial

		// multiply coefficient a[i] with every coefficient in b
		aiTimesB := -((a >> i) & 1) & b

		// reduce the multiplication by irreduciblePolynomial if MSB in product
		// was set and left shift product
		product = aiTimesB ^ mod ^ (product << 1)
	}
	return product
}

// Inverse returns the multiplicative inverse of a.
func Inverse(a byte) (byte, error) {
	if a == 0 {
		return 0, ErrNoInverse
	}
	// We calculate the multiplicative inverse (a^-1) by computing a^254,
	// which in GF(2^8) is (a^-1).
	// multiplication chain reference: https://crypto.stackexchange.com/a/40140

	b := Mul(a, a) // a^2
	c := Mul(a, b) // a^3

	b = Mul(c, c)       // a^6   = (a^3)^2
	b = Mul(b, b)       // a^12  = (a^6)^2
	c = Mul(b, c)       // a^15  = (a^12) * (a^3)
	b = Mul(b, b)       // a^30  = (a^15)^2
	b = Mul(b, b)       // a^60  = (a^30)^2
	b = Mul(b, c)       // a^63  = (a^60) * (a^3)
	b = Mul(b, b)       // a^126 = (a^63)^2
	b = Mul(a, b)       // a^127 = (a^126) * a
	return Mul(b, b), nil // a^254 = (a^127)^2
}

// Div returns a / b in GF(2^8).
func Div(a, b byte) (byte, error) {
	inv, err := Inverse(b)
	if err != nil {
		return 0, err
	}
	return Mul(a, inv), nil
}
