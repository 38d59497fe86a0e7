package app

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 64

// keyLock serializes work per entity key via striped mutexes. Updates to
// different entities proceed without contention unless they hash to the
// same stripe.
type keyLock struct {
	stripes []sync.Mutex
}

func newKeyLock(n int) *keyLock {
	if n <= 0 {
		n = defaultStripes
	}
	return &keyLock{stripes: make([]sync.Mutex, n)}
}

// lock acquires the stripe for key and returns its unlock func.
func (k *keyLock) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.stripes[int(h.Sum32())%len(k.stripes)]
	m.Lock()
	return m.Unlock
}
