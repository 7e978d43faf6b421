// Package render 负责表现层：在渲染帧上对复制来的规范状态做变化检测，
// 并把连续量按墙钟时间平滑逼近目标值。渲染层只读快照，从不写规范状态。
package render

// Detector 保存每个被观察字段的上一次观测值，逐帧比较并产生一次性变化事件
type Detector[S any] struct {
	names  []string
	reads  []func(S) any
	last   []any
	primed bool
}

// Watch 注册被观察字段。T 必须可比较
func Watch[S any, T comparable](d *Detector[S], name string, read func(S) T) {
	d.names = append(d.names, name)
	d.reads = append(d.reads, func(s S) any { return read(s) })
	d.last = append(d.last, nil)
}

// Prime 以 s 作为初始观测值，不产生事件（对应实体刚生成时）
func (d *Detector[S]) Prime(s S) {
	for i, read := range d.reads {
		d.last[i] = read(s)
	}
	d.primed = true
}

// DetectChanges 返回与上次观测不同的字段名，并更新观测值。
// 未 Prime 时第一次调用只记录初值。
func (d *Detector[S]) DetectChanges(s S) []string {
	if !d.primed {
		d.Prime(s)
		return nil
	}
	var changed []string
	for i, read := range d.reads {
		v := read(s)
		if v != d.last[i] {
			changed = append(changed, d.names[i])
			d.last[i] = v
		}
	}
	return changed
}
