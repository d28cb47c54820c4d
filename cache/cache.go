package cache

import (
	"sync"
)

type Data interface{}
type Key interface{}
type Stamp interface{}
type GenFunc func() (Data, Stamp, error)

type cacheValue struct {
	mu    sync.Mutex
	stamp Stamp
	data  Data
}

// Cache memoizes generated values per key until the key's stamp changes.
type Cache struct {
	mu    sync.Mutex
	store map[Key]*cacheValue
}

func New() *Cache {
	return &Cache{
		store: map[Key]*cacheValue{},
	}
}

func (me *Cache) Get(key Key, stamp Stamp, genfn GenFunc) (data Data, err error) {
	me.mu.Lock()
	val, ok := me.store[key]
	if !ok {
		val = &cacheValue{}
		me.store[key] = val
	}
	me.mu.Unlock()
	val.mu.Lock()
	if val.stamp != stamp {
		val.data, val.stamp, err = genfn()
		if err != nil {
			val.stamp = nil
		}
	}
	data = val.data
	val.mu.Unlock()
	return
}
