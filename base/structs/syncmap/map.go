package syncmap

/**  泛型包装的sync.map
**/

import (
	"sync"
)

// Map 线程安全的map，零值可用，首次使用后不能拷贝
type Map[K comparable, V any] struct {
	inner sync.Map
}

func (m *Map[K, V]) Delete(key K) {
	m.inner.Delete(key)
}

func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	val, ok := m.inner.Load(key)
	if ok {
		return val.(V), ok
	}
	return value, ok
}

// LoadAndDelete 删除并返回旧值，loaded表示key是否存在
func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	val, loaded := m.inner.LoadAndDelete(key)
	if loaded {
		return val.(V), loaded
	}
	return value, loaded
}

// LoadOrStore 存在返回旧值，否则写入
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	val, loaded := m.inner.LoadOrStore(key, value)
	return val.(V), loaded
}

// Range f返回false时停止遍历，遍历期间的修改不保证可见
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.inner.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

func (m *Map[K, V]) Store(key K, value V) {
	m.inner.Store(key, value)
}

// Size O(n)，只用于统计
func (m *Map[K, V]) Size() int {
	n := 0
	m.inner.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
