package batch

import "github.com/RoaringBitmap/roaring"

// registry is the registration set: builders pending commit, in registration
// order. Membership is tracked in a bitmap keyed by builder serial.
type registry struct {
	members *roaring.Bitmap
	order   []*Builder
}

func newRegistry() *registry {
	return &registry{members: roaring.New()}
}

func (r *registry) add(b *Builder) bool {
	if r.members.Contains(b.serial) {
		return false
	}
	r.members.Add(b.serial)
	r.order = append(r.order, b)
	return true
}

func (r *registry) remove(b *Builder) bool {
	if !r.members.CheckedRemove(b.serial) {
		return false
	}
	kept := r.order[:0]
	for _, o := range r.order {
		if o != b {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	return true
}

func (r *registry) contains(b *Builder) bool {
	return r.members.Contains(b.serial)
}

func (r *registry) len() int {
	return len(r.order)
}

// list returns a copy of the registered builders in registration order.
func (r *registry) list() []*Builder {
	return append([]*Builder(nil), r.order...)
}

func (r *registry) clear() {
	r.members.Clear()
	r.order = nil
}
