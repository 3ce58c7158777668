package di

import (
	"reflect"
	"sync"
)

type cacheEntry struct {
	init  sync.Mutex       // 同一键的首次构造只有一个执行者
	owner *resolutionChain // 持有 init 的构造链，由 singletonCache.waits 保护
	value any
	ready bool
}

// singletonCache 容器的单例缓存，只增不删，保留插入顺序
type singletonCache struct {
	mu      sync.RWMutex
	entries map[IdentifierKey]*cacheEntry
	order   []*cacheEntry

	// waits 保护构造链之间的等待关系
	waits sync.Mutex
}

func newSingletonCache() *singletonCache {
	return &singletonCache{
		entries: make(map[IdentifierKey]*cacheEntry),
	}
}

func (c *singletonCache) get(key IdentifierKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && e.ready {
		return e.value, true
	}
	return nil, false
}

// entry 返回键对应的条目，不存在则创建一个未就绪的条目
func (c *singletonCache) entry(key IdentifierKey) *cacheEntry {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[key]; !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	return e
}

// lock 以 chain 的身份获取 e 的构造锁。
// 如果等待会让几条构造链互相等待，返回 *CycleError 而不阻塞
func (c *singletonCache) lock(e *cacheEntry, chain *resolutionChain, t reflect.Type) error {
	c.waits.Lock()
	for owner := e.owner; owner != nil; owner = owner.waiting.owner {
		if owner == chain {
			c.waits.Unlock()
			return chain.cycle(t)
		}
		if owner.waiting == nil {
			break
		}
	}
	chain.waiting = e
	c.waits.Unlock()

	e.init.Lock()

	c.waits.Lock()
	chain.waiting = nil
	e.owner = chain
	c.waits.Unlock()
	return nil
}

// unlock 释放 lock 获取的构造锁
func (c *singletonCache) unlock(e *cacheEntry) {
	c.waits.Lock()
	e.owner = nil
	c.waits.Unlock()
	e.init.Unlock()
}

// put 存入实例。键已有值时不覆盖，返回已存在的值与 false
func (c *singletonCache) put(key IdentifierKey, value any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	if e.ready {
		return e.value, false
	}
	e.value = value
	e.ready = true
	c.order = append(c.order, e)
	return value, true
}

// values 按插入顺序返回所有已就绪的实例
func (c *singletonCache) values() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]any, len(c.order))
	for i, e := range c.order {
		out[i] = e.value
	}
	return out
}

func (c *singletonCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
