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

// A reasonably simple hashmap implementation which permits collisions.  This
// is a true hashtable in that collisions are handled gracefully using buckets,
// rather than simply discarding them.  The hash function is not assumed to
// uniquely identify the data in question.

// Hasher provides a generic definition of a hashing function suitable for use
// within the hashmap.  In addition to a hashcode, it includes equality so
// that colliding keys can be told apart.
type Hasher[T any] interface {
	// Check whether two items are equal (or not).
	Equals(T) bool
	// Return a suitable hashcode.
	Hash() uint64
}

// Map defines a generic map implementation over Hasher keys.
type Map[K Hasher[K], V any] struct {
	// buckets maps hashcodes to *buckets* of items.
	buckets map[uint64]bucket[K, V]
}

// NewMap creates a new Map with a given underlying capacity.
func NewMap[K Hasher[K], V any](size uint) *Map[K, V] {
	items := make(map[uint64]bucket[K, V], size)
	return &Map[K, V]{items}
}

// Size returns the number of unique items stored in this Map.
func (p *Map[K, V]) Size() uint {
	count := uint(0)
	for _, b := range p.buckets {
		count += uint(len(b.keys))
	}

	return count
}

// Insert a new item into this map, returning true if it was already contained
// and false otherwise.
func (p *Map[K, V]) Insert(key K, value V) bool {
	var b bucket[K, V]
	// Compute item's hashcode
	hash := key.Hash()
	// Lookup existing bucket
	b = p.buckets[hash]
	// Insert new item
	r := b.insert(key, value)
	// Update map
	p.buckets[hash] = b
	// Done
	return r
}

// ContainsKey checks whether the given item is contained within this map, or not.
func (p *Map[K, V]) ContainsKey(key K) bool {
	hash := key.Hash()

	if b, ok := p.buckets[hash]; ok {
		return b.containsKey(key)
	}

	return false
}

// Get item from map, or return false otherwise.
func (p *Map[K, V]) Get(key K) (V, bool) {
	var (
		empty V
		hash  = key.Hash()
	)
	// Look for bucket
	if b, ok := p.buckets[hash]; ok {
		return b.get(key)
	}

	return empty, false
}

// Values returns all values stored in this map.  Observe that the order in
// which elements are seen is unspecified.
func (p *Map[K, V]) Values() []V {
	var values []V
	//
	for _, b := range p.buckets {
		values = append(values, b.values...)
	}
	//
	return values
}

// ============================================================================
// Bucket
// ============================================================================

type bucket[K Hasher[K], V any] struct {
	keys   []K
	values []V
}

// Insert a new item into this bucket
func (b *bucket[K, V]) insert(key K, value V) bool {
	// Determine whether key already present
	for i, k := range b.keys {
		if key.Equals(k) {
			b.values[i] = value
			return true
		}
	}
	// Append item
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	// Item not present
	return false
}

// Check whether this bucket contains a given item, or not.
func (b *bucket[K, V]) containsKey(key K) bool {
	for _, k := range b.keys {
		if key.Equals(k) {
			return true
		}
	}

	return false
}

// Get item from bucket, or return false otherwise.
func (b *bucket[K, V]) get(key K) (V, bool) {
	var empty V

	for i, k := range b.keys {
		if key.Equals(k) {
			return b.values[i], true
		}
	}

	return empty, false
}
