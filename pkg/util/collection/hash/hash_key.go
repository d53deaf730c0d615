// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package hash

const (
	offset64 uint64 = 14695981039346656037
	prime64  uint64 = 1099511628211
)

// Uint64s mixes a sequence of 64-bit words into a single hashcode using the
// FNV-1a scheme.
func Uint64s(words []uint64) uint64 {
	hash := offset64
	//
	for _, w := range words {
		hash ^= w
		hash *= prime64
	}
	//
	return hash
}

// ============================================================================
// Uint64sKey Implementation
// ============================================================================

var _ Hasher[Uint64sKey] = Uint64sKey{}

// Uint64sKey wraps an array of 64-bit words as something which can be safely
// placed into a Map.
type Uint64sKey struct {
	words []uint64
}

// NewUint64sKey constructs a new words key.
func NewUint64sKey(words []uint64) Uint64sKey {
	return Uint64sKey{words}
}

// Equals compares two keys to check whether they represent the same underlying
// word array (or not).
func (p Uint64sKey) Equals(other Uint64sKey) bool {
	if len(p.words) != len(other.words) {
		return false
	}
	//
	for i := range p.words {
		if p.words[i] != other.words[i] {
			return false
		}
	}
	//
	return true
}

// Hash generates a 64-bit hashcode from the underlying word array.
func (p Uint64sKey) Hash() uint64 {
	return Uint64s(p.words)
}
