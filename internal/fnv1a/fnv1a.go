// Package fnv1a implements the 64-bit FNV-1a hash, used by transform as
// the second hash in a double-hashing probe sequence alongside
// xxhash (cespare/xxhash/v2), so colliding primary hashes still probe
// along distinct step sizes.
package fnv1a

const (
	offsetBasis uint64 = 14695981039346656037
	prime       uint64 = 1099511628211
)

// Sum64 returns the FNV-1a hash of data.
func Sum64(data []byte) uint64 {
	h := offsetBasis
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}

// Sum64String is Sum64 over a string, without an intermediate []byte
// allocation via unsafe — it just ranges the string's bytes directly.
func Sum64String(s string) uint64 {
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
