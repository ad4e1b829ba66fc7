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

// Package securemem provides byte buffers for key material that are
// guaranteed to be zeroed before release. Secrets and recovered plaintext
// should be held in a Buffer so that every exit path, including error
// returns, wipes the memory with a single deferred Destroy.
package securemem

import (
	"crypto/subtle"
	"runtime"
)

// Buffer owns a fixed-length byte slice holding sensitive data.
type Buffer struct {
	data      []byte
	destroyed bool
}

// NewBuffer allocates a zeroed buffer of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// NewBufferFrom copies b into a new buffer. The caller retains ownership of
// b and should wipe it separately if it holds sensitive data.
func NewBufferFrom(b []byte) *Buffer {
	buf := NewBuffer(len(b))
	copy(buf.data, b)
	return buf
}

// Bytes returns the backing slice. The slice is only valid until Destroy is
// called; callers must not retain it past the buffer's lifetime.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.destroyed {
		return nil
	}
	return b.data
}

// Len returns the buffer length, or 0 after Destroy.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Equal compares the buffer contents against other in constant time.
func (b *Buffer) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(b.Bytes(), other) == 1
}

// Destroy zeroes the buffer and releases it. Safe to call on a nil buffer
// and safe to call more than once.
func (b *Buffer) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	Wipe(b.data)
	b.data = nil
	b.destroyed = true
}

// Wipe zeroes b in place. A no-op for nil or empty slices.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// Keep the slice reachable until the writes above are done so they are
	// not elided as dead stores.
	runtime.KeepAlive(b)
}
