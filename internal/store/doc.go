// Package store holds the sprites of one batch between Begin and End.
//
// A Store keeps three parallel slices indexed by reservation order: sprite
// records, per-sprite user data and textures. Sorting never moves entries.
// It builds an index permutation and copies records and data into sorted
// slices, so the reservation order stays intact underneath.
//
//	s := store.New[Record, NoData](256)
//	i := s.Reserve(tex, NoData{})
//	*s.Sprite(i) = rec
//	s.SortByTexture()
//	sprites, data := s.Sorted()
//
// A Store is not safe for concurrent use.
package store
