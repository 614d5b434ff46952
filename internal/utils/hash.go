package utils

import "hash/fnv"

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// LockKey maps an identifier onto the signed 64-bit key space used by
// Postgres advisory locks.
func LockKey(namespace, id string) int64 {
	return int64(HashStringToUint64(namespace + ":" + id))
}
