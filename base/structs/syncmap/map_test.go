package syncmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	var m Map[string, int]
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Store(string(rune('a'+i)), i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, m.Size())

	v, ok := m.Load("c")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	actual, loaded := m.LoadOrStore("c", 100)
	assert.True(t, loaded)
	assert.Equal(t, 2, actual)

	v, loaded = m.LoadAndDelete("c")
	assert.True(t, loaded)
	assert.Equal(t, 2, v)
	_, ok = m.Load("c")
	assert.False(t, ok)

	count := 0
	m.Range(func(_ string, _ int) bool {
		count++
		return count < 3
	})
	assert.Equal(t, 3, count)
}
