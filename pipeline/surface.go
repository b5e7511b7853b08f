package pipeline

import (
	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/graph"
)

// Surface is a persistent, double-buffered texture.
type Surface struct {
	ID   string
	Spec effect.TextureSpec
	// Read and Write are backend texture ids. A source surface has a
	// single buffer and Read equals Write.
	Read  string
	Write string
	// Dirty marks a feedback surface written during the current frame.
	Dirty bool
}

func newSurface(id string, spec effect.TextureSpec) *Surface {
	s := &Surface{ID: id, Spec: spec, Read: id + "#0", Write: id + "#1"}
	if graph.IsSource(id) {
		s.Write = s.Read
	}

	return s
}

// Feedback reports whether s reads the previous frame throughout a frame.
func (s *Surface) Feedback() bool { return graph.IsFeedback(s.ID) }

// Swap exchanges the read and write buffers.
func (s *Surface) Swap() { s.Read, s.Write = s.Write, s.Read }

func (s *Surface) buffers() []string {
	if s.Read == s.Write {
		return []string{s.Read}
	}

	return []string{s.Read, s.Write}
}
