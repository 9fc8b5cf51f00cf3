package store

import (
	"testing"
)

type testTexture uint64

func (t testTexture) ID() uint64  { return uint64(t) }
func (t testTexture) Width() int  { return 1 }
func (t testTexture) Height() int { return 1 }

type testSprite struct {
	Depth float32
	Tag   int
}

func fill(s *Store[testSprite, int], textures []uint64, depths []float32) {
	for i, tex := range textures {
		idx := s.Reserve(testTexture(tex), i*10)
		*s.Sprite(idx) = testSprite{Depth: depths[i], Tag: i}
	}
}

func tags(sprites []testSprite) []int {
	out := make([]int, len(sprites))
	for i, sp := range sprites {
		out[i] = sp.Tag
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReserveGrowsAndPreserves(t *testing.T) {
	s := New[testSprite, int](2)
	fill(s, []uint64{1, 2}, []float32{0.5, 0.25})
	before := append([]testSprite(nil), s.sprites[:2]...)

	fill(s, []uint64{3}, []float32{0.75})
	if got := s.Cap(); got != 4 {
		t.Fatalf("Cap = %d, want 4", got)
	}
	if len(s.data) != 4 || len(s.textures) != 4 {
		t.Fatalf("parallel arrays not doubled: data %d, textures %d", len(s.data), len(s.textures))
	}
	for i, sp := range before {
		if s.sprites[i] != sp {
			t.Errorf("sprite %d = %+v after growth, want %+v", i, s.sprites[i], sp)
		}
		if s.data[i] != i*10 {
			t.Errorf("data %d = %d after growth, want %d", i, s.data[i], i*10)
		}
		if s.textures[i].ID() != uint64(i+1) {
			t.Errorf("texture %d = %d after growth, want %d", i, s.textures[i].ID(), i+1)
		}
	}
	if got := s.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestReserveZeroesRecycledSlot(t *testing.T) {
	s := New[testSprite, int](2)
	fill(s, []uint64{1}, []float32{0.5})
	s.Clear()
	i := s.Reserve(testTexture(2), 0)
	if got := *s.Sprite(i); got != (testSprite{}) {
		t.Errorf("recycled slot = %+v, want zero", got)
	}
}

func TestClearKeepsCapacity(t *testing.T) {
	s := New[testSprite, int](1)
	fill(s, []uint64{1, 1, 1}, []float32{0, 0, 0})
	capBefore := s.Cap()
	s.SortByTexture()
	s.Clear()

	if s.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", s.Count())
	}
	if s.Cap() != capBefore {
		t.Errorf("Cap after Clear = %d, want %d", s.Cap(), capBefore)
	}
	if sprites, _ := s.Sorted(); len(sprites) != 0 {
		t.Errorf("Sorted after Clear returned %d sprites", len(sprites))
	}
}

func TestSortByTexture(t *testing.T) {
	s := New[testSprite, int](8)
	fill(s, []uint64{3, 1, 3, 2, 1}, []float32{0, 0, 0, 0, 0})
	s.SortByTexture()

	sprites, data := s.Sorted()
	// Stable: equal textures keep reservation order.
	want := []int{1, 4, 3, 0, 2}
	if got := tags(sprites); !equalInts(got, want) {
		t.Errorf("sorted order = %v, want %v", got, want)
	}
	for i, tag := range want {
		if data[i] != tag*10 {
			t.Errorf("data[%d] = %d, want %d", i, data[i], tag*10)
		}
	}
	wantTex := []uint64{1, 1, 2, 3, 3}
	for i, id := range wantTex {
		if got := s.Texture(i).ID(); got != id {
			t.Errorf("Texture(%d) = %d, want %d", i, got, id)
		}
	}

	// Reservation order is untouched.
	if got := tags(s.sprites[:s.count]); !equalInts(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("reservation order = %v after sort", got)
	}
}

func TestSortByKey(t *testing.T) {
	tests := []struct {
		name       string
		descending bool
		want       []int
	}{
		{"front to back", false, []int{1, 0, 3, 2}},
		{"back to front", true, []int{2, 0, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New[testSprite, int](4)
			fill(s, []uint64{1, 1, 1, 1}, []float32{0.5, 0.1, 0.9, 0.5})
			s.SortByKey(func(sp *testSprite) float32 { return sp.Depth }, tt.descending)
			sprites, _ := s.Sorted()
			got := tags(sprites)
			// Ties (sprites 0 and 3) keep reservation order in both
			// directions.
			if !equalInts(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnsort(t *testing.T) {
	s := New[testSprite, int](4)
	fill(s, []uint64{2, 1}, []float32{0, 0})
	s.SortByTexture()
	if s.Texture(0).ID() != 1 {
		t.Fatalf("Texture(0) = %d after sort, want 1", s.Texture(0).ID())
	}
	s.Unsort()
	if s.Texture(0).ID() != 2 {
		t.Errorf("Texture(0) = %d after Unsort, want 2", s.Texture(0).ID())
	}
	sprites, _ := s.Sorted()
	if got := tags(sprites); !equalInts(got, []int{0, 1}) {
		t.Errorf("Sorted after Unsort = %v, want [0 1]", got)
	}
}

func TestReserveInvalidatesSort(t *testing.T) {
	s := New[testSprite, int](4)
	fill(s, []uint64{2, 1}, []float32{0, 0})
	s.SortByTexture()
	fill(s, []uint64{0}, []float32{0})

	sprites, _ := s.Sorted()
	if len(sprites) != 3 {
		t.Fatalf("Sorted returned %d sprites, want 3", len(sprites))
	}
	if s.Texture(0).ID() != 2 {
		t.Errorf("Texture(0) = %d, want reservation order after Reserve", s.Texture(0).ID())
	}
}
