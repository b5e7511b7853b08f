package graph

import (
	"maps"
	"slices"
	"strconv"

	"github.com/ardnew/fxc/effect"
)

// Interval is the range of pass indices over which a texture is live.
type Interval struct {
	First int
	Last  int
}

// Allocation assigns every transient virtual texture to a physical slot.
type Allocation struct {
	// Slots maps a virtual id to its slot index.
	Slots map[string]int
	// Specs holds the texture spec of each slot.
	Specs     []effect.TextureSpec
	Intervals map[string]Interval
}

// SlotName returns the backend id of slot i.
func SlotName(i int) string { return "slot_" + strconv.Itoa(i) }

// Physical returns the backend id of a transient virtual texture.
func (a *Allocation) Physical(id string) (string, bool) {
	i, ok := a.Slots[id]
	if !ok {
		return "", false
	}

	return SlotName(i), true
}

// Len returns the number of physical slots.
func (a *Allocation) Len() int { return len(a.Specs) }

type freeSlot struct {
	slot           int
	availableAfter int
}

// Allocate assigns slots to the transient textures of g. Persistent
// textures are excluded. A slot is released after the last pass that
// touches its texture and may be reused, by a texture of the same spec,
// from the following pass on.
func Allocate(g *Graph) *Allocation {
	a := &Allocation{
		Slots:     make(map[string]int),
		Intervals: liveness(g.Passes),
	}

	free := make(map[string][]freeSlot)

	for i, p := range g.Passes {
		ids := p.Textures()

		for _, id := range ids {
			if IsPersistent(id) {
				continue
			}

			if _, ok := a.Slots[id]; ok {
				continue
			}

			spec, ok := g.Textures[id]
			if !ok {
				spec = effect.Surface2D()
			}

			key := spec.Key()
			pool := free[key]

			j := slices.IndexFunc(pool, func(f freeSlot) bool { return f.availableAfter < i })
			if j >= 0 {
				a.Slots[id] = pool[j].slot
				free[key] = slices.Delete(pool, j, j+1)

				continue
			}

			a.Slots[id] = len(a.Specs)
			a.Specs = append(a.Specs, spec)
		}

		for _, id := range ids {
			slot, ok := a.Slots[id]
			if !ok || a.Intervals[id].Last != i {
				continue
			}

			key := a.Specs[slot].Key()
			free[key] = append(free[key], freeSlot{slot: slot, availableAfter: i})
		}
	}

	return a
}

func liveness(passes []Pass) map[string]Interval {
	live := make(map[string]Interval)

	for i, p := range passes {
		for _, id := range p.Textures() {
			if IsPersistent(id) {
				continue
			}

			iv, ok := live[id]
			if !ok {
				iv.First = i
			}

			iv.Last = i
			live[id] = iv
		}
	}

	return live
}

// Shared returns, for each slot, the sorted virtual ids assigned to it.
func (a *Allocation) Shared() map[int][]string {
	out := make(map[int][]string, len(a.Specs))
	for _, id := range slices.Sorted(maps.Keys(a.Slots)) {
		out[a.Slots[id]] = append(out[a.Slots[id]], id)
	}

	return out
}
