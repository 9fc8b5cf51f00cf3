package store

import (
	"cmp"
	"slices"

	"github.com/gogpu/sprite/render"
)

// Store is growable parallel-array storage for sprites of type S with
// per-sprite data of type D.
type Store[S, D any] struct {
	sprites  []S
	data     []D
	textures []render.Texture
	count    int

	// Valid only while sorted is true.
	order         []int
	sortedSprites []S
	sortedData    []D
	sorted        bool
}

// New returns a store with room for capacity sprites.
func New[S, D any](capacity int) *Store[S, D] {
	capacity = max(capacity, 1)
	return &Store[S, D]{
		sprites:  make([]S, capacity),
		data:     make([]D, capacity),
		textures: make([]render.Texture, capacity),
	}
}

// Count returns the number of reserved sprites.
func (s *Store[S, D]) Count() int { return s.count }

// Cap returns the number of sprites the store holds before growing.
func (s *Store[S, D]) Cap() int { return len(s.sprites) }

// Reserve appends a slot for a sprite drawn with tex and returns its index.
// The record at the index is zeroed; fill it through Sprite. When the store
// is full every array doubles, keeping existing entries unchanged.
func (s *Store[S, D]) Reserve(tex render.Texture, data D) int {
	if s.count == len(s.sprites) {
		s.grow(2 * len(s.sprites))
	}
	i := s.count
	var zero S
	s.sprites[i] = zero
	s.data[i] = data
	s.textures[i] = tex
	s.count++
	s.sorted = false
	return i
}

func (s *Store[S, D]) grow(n int) {
	sprites := make([]S, n)
	copy(sprites, s.sprites[:s.count])
	data := make([]D, n)
	copy(data, s.data[:s.count])
	textures := make([]render.Texture, n)
	copy(textures, s.textures[:s.count])
	s.sprites, s.data, s.textures = sprites, data, textures
}

// Sprite returns the record at reservation index i.
func (s *Store[S, D]) Sprite(i int) *S { return &s.sprites[i] }

// Clear drops all sprites and the sort order. Capacity is kept.
func (s *Store[S, D]) Clear() {
	clear(s.textures[:s.count])
	s.count = 0
	s.sorted = false
}

// SortByTexture orders sprites by texture ID so sprites sharing a texture
// are contiguous. Ties keep reservation order.
func (s *Store[S, D]) SortByTexture() {
	s.sortBy(func(a, b int) int {
		return cmp.Compare(s.textures[a].ID(), s.textures[b].ID())
	})
}

// SortByKey orders sprites by key, ascending or descending. Ties keep
// reservation order.
func (s *Store[S, D]) SortByKey(key func(*S) float32, descending bool) {
	s.sortBy(func(a, b int) int {
		c := cmp.Compare(key(&s.sprites[a]), key(&s.sprites[b]))
		if descending {
			return -c
		}
		return c
	})
}

func (s *Store[S, D]) sortBy(compare func(a, b int) int) {
	n := s.count
	if cap(s.order) < n {
		s.order = make([]int, n, len(s.sprites))
	}
	s.order = s.order[:n]
	for i := range s.order {
		s.order[i] = i
	}
	slices.SortStableFunc(s.order, compare)

	if cap(s.sortedSprites) < n {
		s.sortedSprites = make([]S, n, len(s.sprites))
		s.sortedData = make([]D, n, len(s.sprites))
	}
	s.sortedSprites = s.sortedSprites[:n]
	s.sortedData = s.sortedData[:n]
	for i, o := range s.order {
		s.sortedSprites[i] = s.sprites[o]
		s.sortedData[i] = s.data[o]
	}
	s.sorted = true
}

// Unsort drops the sort order; Sorted and Texture return reservation order
// again.
func (s *Store[S, D]) Unsort() { s.sorted = false }

// Sorted returns the sprites and data in the current order: the last sort
// if one is in effect, reservation order otherwise. The slices alias the
// store and are valid until the next Reserve, sort or Clear.
func (s *Store[S, D]) Sorted() ([]S, []D) {
	if s.sorted {
		return s.sortedSprites, s.sortedData
	}
	return s.sprites[:s.count], s.data[:s.count]
}

// Texture returns the texture of the i-th sprite in the current order.
// Sorted lookups go through the permutation.
func (s *Store[S, D]) Texture(i int) render.Texture {
	if s.sorted {
		return s.textures[s.order[i]]
	}
	return s.textures[i]
}
