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

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// SharePrefix is the version tag on encoded shares. A future "sss2:" scheme
// must not be accepted by this decoder.
const SharePrefix = "sss1:"

// EncodeShare encodes a share as "sss1:<index>:<base64(data)>", an
// ASCII-safe form suitable for clipboard and QR transport.
func EncodeShare(s Share) (string, error) {
	if s.Index == 0 || len(s.Data) == 0 {
		return "", fmt.Errorf("%w: cannot encode an empty share", ErrMalformedShare)
	}
	return SharePrefix + strconv.Itoa(int(s.Index)) + ":" + base64.StdEncoding.EncodeToString(s.Data), nil
}

// DecodeShare parses an encoded share. It accepts exactly the format
// produced by EncodeShare and rejects everything else: a missing or wrong
// version prefix, a non-numeric or out-of-range index, and empty or
// malformed base64 payloads.
func DecodeShare(encoded string) (Share, error) {
	if encoded == "" {
		return Share{}, fmt.Errorf("%w: empty share string", ErrMalformedShare)
	}
	if !strings.HasPrefix(encoded, SharePrefix) {
		return Share{}, fmt.Errorf("%w: must start with %q", ErrMalformedShare, SharePrefix)
	}

	rest := encoded[len(SharePrefix):]
	idxStr, payload, found := strings.Cut(rest, ":")
	if !found {
		return Share{}, fmt.Errorf("%w: missing index separator", ErrMalformedShare)
	}

	if len(idxStr) == 0 || len(idxStr) > 3 {
		return Share{}, fmt.Errorf("%w: share index must be 1-3 digits", ErrMalformedShare)
	}
	idx, err := strconv.ParseUint(idxStr, 10, 8)
	if err != nil || idx == 0 {
		return Share{}, fmt.Errorf("%w: share index must be 1-255", ErrMalformedShare)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Share{}, fmt.Errorf("%w: base64 decode failed", ErrMalformedShare)
	}
	if len(data) == 0 {
		return Share{}, fmt.Errorf("%w: empty share payload", ErrMalformedShare)
	}

	return Share{Index: uint8(idx), Data: data}, nil
}

// ValidShare reports whether encoded parses as a share. It never panics and
// is intended for input validation at API boundaries where the decode error
// itself is not needed.
func ValidShare(encoded string) bool {
	_, err := DecodeShare(encoded)
	return err == nil
}
