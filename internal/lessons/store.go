package lessons

import (
	"context"
	"io/fs"
	"sync/atomic"
)

// Store holds the current Index snapshot. Readers always see a complete
// snapshot; Swap replaces it atomically.
type Store struct {
	current atomic.Pointer[Index]
}

// NewStore returns a store seeded with idx.
func NewStore(idx *Index) *Store {
	s := &Store{}
	s.current.Store(idx)
	return s
}

// Index returns the current snapshot.
func (s *Store) Index() *Index {
	return s.current.Load()
}

// Swap installs idx and returns the previous snapshot.
func (s *Store) Swap(idx *Index) *Index {
	return s.current.Swap(idx)
}

// Reloader rebuilds the index from a content tree and installs it into a
// Store. A failed build leaves the current snapshot in place.
type Reloader struct {
	store *Store
	fsys  fs.FS
	opts  BuildOptions
}

// NewReloader binds a Store to the content tree it is built from.
func NewReloader(store *Store, fsys fs.FS, opts BuildOptions) *Reloader {
	return &Reloader{store: store, fsys: fsys, opts: opts}
}

// Reindex builds a fresh snapshot and swaps it in.
func (r *Reloader) Reindex(ctx context.Context) (*Index, error) {
	idx, err := Build(ctx, r.fsys, r.opts)
	if err != nil {
		return nil, err
	}
	r.store.Swap(idx)
	return idx, nil
}
