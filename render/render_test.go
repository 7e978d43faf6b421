package render

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"tickhost/sim"
)

type sample struct {
	Toggle bool
	Count  int
}

func newSampleDetector() *Detector[sample] {
	d := &Detector[sample]{}
	Watch(d, "toggle", func(s sample) bool { return s.Toggle })
	Watch(d, "count", func(s sample) int { return s.Count })
	return d
}

func TestDetectorFiresOncePerTransition(t *testing.T) {
	d := newSampleDetector()
	d.Prime(sample{})

	seq := []sample{
		{},
		{Toggle: true},
		{Toggle: true},
		{Toggle: true},
		{Toggle: false, Count: 1},
		{Toggle: false, Count: 1},
	}
	want := [][]string{nil, {"toggle"}, nil, nil, {"toggle", "count"}, nil}
	for i, s := range seq {
		got := d.DetectChanges(s)
		if len(got) != len(want[i]) {
			t.Fatalf("frame %d: changes = %v, want %v", i, got, want[i])
		}
		for j := range got {
			if got[j] != want[i][j] {
				t.Fatalf("frame %d: changes = %v, want %v", i, got, want[i])
			}
		}
	}
}

func TestDetectorFirstObservationPrimes(t *testing.T) {
	d := newSampleDetector()
	if got := d.DetectChanges(sample{Toggle: true, Count: 3}); got != nil {
		t.Fatalf("first observation fired %v", got)
	}
	if got := d.DetectChanges(sample{Toggle: true, Count: 3}); got != nil {
		t.Fatalf("repeat observation fired %v", got)
	}
}

func TestColorFaderApproachesTarget(t *testing.T) {
	f := NewColorFader(RestColor)
	f.Reset(FlashColor)

	prev := colorDistance(f.Current, RestColor)
	for i := 0; i < 10; i++ {
		c := f.Advance(100 * time.Millisecond)
		d := colorDistance(c, RestColor)
		if d >= prev {
			t.Fatalf("step %d: distance %f did not shrink from %f", i, d, prev)
		}
		prev = d
	}

	// 一个超长帧直接到达目标，不越过
	c := f.Advance(10 * time.Second)
	if colorDistance(c, RestColor) > 1e-9 {
		t.Fatalf("long frame should land on target, got %v", c)
	}
}

func TestColorFaderScalesWithElapsedTime(t *testing.T) {
	a := NewColorFader(RestColor)
	b := NewColorFader(RestColor)
	a.Reset(FlashColor)
	b.Reset(FlashColor)

	a.Advance(50 * time.Millisecond)
	b.Advance(200 * time.Millisecond)
	if colorDistance(b.Current, RestColor) >= colorDistance(a.Current, RestColor) {
		t.Fatalf("longer frame should move further toward target")
	}
}

func TestPresenterFlashesOnToggle(t *testing.T) {
	sc := NewScene()
	st := sim.ActorState{ID: "a1", Facing: sim.Forward}

	frames := sc.Frame([]sim.ActorState{st}, 16*time.Millisecond)
	if frames[0].Flashed {
		t.Fatalf("first frame must not flash")
	}

	st.AbilityToggle = true
	frames = sc.Frame([]sim.ActorState{st}, 16*time.Millisecond)
	if !frames[0].Flashed {
		t.Fatalf("toggle flip should flash")
	}
	// 重置为白色后已经按本帧 dt 向蓝色逼近了一点
	if frames[0].Color.R >= 1 || frames[0].Color.R < 0.9 {
		t.Fatalf("color after flash = %v", frames[0].Color)
	}

	frames = sc.Frame([]sim.ActorState{st}, 16*time.Millisecond)
	if frames[0].Flashed {
		t.Fatalf("unchanged toggle must not flash again")
	}
}

func TestPresenterSmoothsPosition(t *testing.T) {
	sc := NewScene()
	st := sim.ActorState{ID: "a1"}
	sc.Frame([]sim.ActorState{st}, 16*time.Millisecond)

	st.Position = mgl64.Vec3{10, 0, 0}
	f := sc.Frame([]sim.ActorState{st}, 16*time.Millisecond)[0]
	if f.Position.X() <= 0 || f.Position.X() >= 10 {
		t.Fatalf("position should move part way toward target, got %v", f.Position)
	}
}

func TestSceneDropsDepartedActors(t *testing.T) {
	sc := NewScene()
	sc.Frame([]sim.ActorState{{ID: "a1"}, {ID: "a2"}}, time.Millisecond)
	frames := sc.Frame([]sim.ActorState{{ID: "a2"}}, time.Millisecond)
	if len(frames) != 1 || len(sc.presenters) != 1 {
		t.Fatalf("expected only a2 to remain, frames=%d presenters=%d", len(frames), len(sc.presenters))
	}
}

func TestLatestPublishesVersions(t *testing.T) {
	var l Latest[int]
	if _, ok := l.Load(); ok {
		t.Fatalf("empty holder reported a value")
	}
	l.Publish(7)
	v2 := l.Publish(9)
	got, ok := l.Load()
	if !ok || got.Value != 9 || got.Version != v2 || v2 != 2 {
		t.Fatalf("Load = %+v, %v", got, ok)
	}
}

func colorDistance(a, b colorful.Color) float64 {
	return math.Sqrt((a.R-b.R)*(a.R-b.R) + (a.G-b.G)*(a.G-b.G) + (a.B-b.B)*(a.B-b.B))
}
