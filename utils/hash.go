package utils

import "hash/fnv"

// Mix64 combines two fingerprints into one.
func Mix64(a, b uint64) uint64 {
	h := fnv.New64a()
	h.Write(U64ToBytes(a))
	h.Write(U64ToBytes(b))
	return h.Sum64()
}
