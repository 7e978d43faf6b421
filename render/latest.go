package render

import "sync/atomic"

// Versioned 带版本号的快照
type Versioned[T any] struct {
	Version uint64
	Value   T
}

// Latest 模拟循环发布、渲染循环读取的最新快照。
// 发布方唯一；读取方只拿到已完整发布的值。
type Latest[T any] struct {
	cur     atomic.Pointer[Versioned[T]]
	version atomic.Uint64
}

// Publish 发布新快照并返回其版本号
func (l *Latest[T]) Publish(v T) uint64 {
	ver := l.version.Add(1)
	l.cur.Store(&Versioned[T]{Version: ver, Value: v})
	return ver
}

// Load 读取最新快照；尚未发布时 ok 为 false
func (l *Latest[T]) Load() (Versioned[T], bool) {
	p := l.cur.Load()
	if p == nil {
		return Versioned[T]{}, false
	}
	return *p, true
}
