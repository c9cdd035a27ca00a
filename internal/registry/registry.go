// Package registry owns the in-memory set of mint records and keeps the
// persisted snapshot in step with it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"sync"
	"time"

	"music.mint/internal/logging"
	"music.mint/internal/models"
	"music.mint/internal/store"
)

var (
	ErrNotFound         = errors.New("mint not found")
	ErrExists           = errors.New("mint already exists")
	ErrAlreadyMinted    = errors.New("already minted")
	ErrMissingSignature = errors.New("transaction signature is required")
)

// Registry maps mint ids to records. Every mutation rewrites the full
// snapshot through the store before it returns.
type Registry struct {
	store  store.Store
	logger *slog.Logger

	mu       sync.RWMutex
	mints    map[string]*models.Mint
	order    []string            // creation order
	assets   map[string][]string // asset file name -> owning mint ids
	pages    map[string][]string // page image file name -> mint ids
	reserved map[string]struct{}
}

// New loads the last snapshot from st. A corrupt snapshot is moved aside
// and the registry keeps whatever records were readable; any other load
// failure is logged and the registry starts empty.
func New(ctx context.Context, st store.Store, logger *slog.Logger) *Registry {
	r := &Registry{
		store:    st,
		logger:   logging.NewComponentLogger(logger, "registry"),
		mints:    make(map[string]*models.Mint),
		assets:   make(map[string][]string),
		pages:    make(map[string][]string),
		reserved: make(map[string]struct{}),
	}

	loaded, err := st.Load(ctx)
	switch {
	case errors.Is(err, store.ErrCorrupt):
		// The original bytes go aside before anything can overwrite them.
		moved, qerr := st.Quarantine(ctx)
		if qerr != nil {
			r.logger.Error("could not move corrupt snapshot aside", logging.Error(qerr))
		}
		r.logger.Warn("corrupt mint snapshot, keeping readable records",
			logging.Error(err),
			logging.String("moved_to", moved),
			logging.Int("readable", len(loaded)),
		)
	case err != nil:
		r.logger.Warn("no usable mint snapshot, starting fresh", logging.Error(err))
		return r
	}

	for _, m := range loaded {
		if m == nil || m.ID == "" {
			continue
		}
		if _, dup := r.mints[m.ID]; dup {
			r.logger.Warn("duplicate mint id in snapshot", logging.String("mint_id", m.ID))
			continue
		}
		r.insert(m)
	}
	if errors.Is(err, store.ErrCorrupt) && len(r.order) > 0 {
		r.mu.Lock()
		perr := r.persist(ctx)
		r.mu.Unlock()
		if perr != nil {
			r.logger.Error("rewriting recovered snapshot failed", logging.Error(perr))
		}
	}
	r.logger.Info("loaded mints", logging.Int("count", len(r.order)))
	return r
}

// AllocateID reserves a timestamp-derived id that no existing or pending
// mint uses. Callers must Create or Release it.
func (r *Registry) AllocateID(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		_, taken := r.mints[id]
		_, pending := r.reserved[id]
		if !taken && !pending {
			r.reserved[id] = struct{}{}
			return id
		}
		ms++
	}
}

// Release drops an id reservation that will not be used.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, id)
}

func (r *Registry) Create(ctx context.Context, m *models.Mint) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("create mint: missing id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mints[m.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, m.ID)
	}

	rec := m.Clone()
	r.insert(rec)
	if err := r.persist(ctx); err != nil {
		r.remove(rec.ID)
		return fmt.Errorf("create mint %s: %w", rec.ID, err)
	}
	delete(r.reserved, rec.ID)

	r.logger.Info("mint created", logging.String("mint_id", rec.ID))
	return nil
}

// Get returns a copy of the record, keypair included.
func (r *Registry) Get(id string) (*models.Mint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

// Detail returns the single-mint public view.
func (r *Registry) Detail(id string) (models.Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mints[id]
	if !ok {
		return models.Detail{}, ErrNotFound
	}
	return m.Detail(), nil
}

// ListPublic returns every mint, newest first, without secrets or gated
// asset fields.
func (r *Registry) ListPublic() []models.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Summary, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.mints[r.order[i]].Summary())
	}
	return out
}

func (r *Registry) MarkMinted(ctx context.Context, id, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[id]
	if !ok {
		return ErrNotFound
	}
	if m.Minted {
		return ErrAlreadyMinted
	}

	m.Minted = true
	m.TxSignature = signature
	if err := r.persist(ctx); err != nil {
		m.Minted = false
		m.TxSignature = ""
		return fmt.Errorf("mark minted %s: %w", id, err)
	}

	r.logger.Info("mint marked minted", logging.String("mint_id", id))
	return nil
}

// OwnerOf returns the first mint, in creation order, whose image, audio or
// video is stored under file.
func (r *Registry) OwnerOf(file string) (*models.Mint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.assets[file]
	if len(ids) == 0 {
		return nil, false
	}
	return r.mints[ids[0]].Clone(), true
}

// IsPageImage reports whether any mint uses file as its landing page image.
func (r *Registry) IsPageImage(file string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages[file]) > 0
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// persist must be called with mu held.
func (r *Registry) persist(ctx context.Context) error {
	snapshot := make([]*models.Mint, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.mints[id])
	}
	return r.store.Save(ctx, snapshot)
}

func (r *Registry) insert(m *models.Mint) {
	r.mints[m.ID] = m
	r.order = append(r.order, m.ID)
	for _, ref := range []string{m.ImageURL, m.MusicURL, m.VideoURL} {
		if name := fileName(ref); name != "" {
			r.assets[name] = append(r.assets[name], m.ID)
		}
	}
	if name := fileName(m.PageImageURL); name != "" {
		r.pages[name] = append(r.pages[name], m.ID)
	}
}

func (r *Registry) remove(id string) {
	m, ok := r.mints[id]
	if !ok {
		return
	}
	delete(r.mints, id)
	r.order = without(r.order, id)
	for _, ref := range []string{m.ImageURL, m.MusicURL, m.VideoURL} {
		if name := fileName(ref); name != "" {
			dropIndex(r.assets, name, id)
		}
	}
	if name := fileName(m.PageImageURL); name != "" {
		dropIndex(r.pages, name, id)
	}
}

func dropIndex(index map[string][]string, name, id string) {
	ids := without(index[name], id)
	if len(ids) == 0 {
		delete(index, name)
		return
	}
	index[name] = ids
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// fileName reduces a stored reference such as "/uploads/x.jpg" to "x.jpg".
func fileName(ref string) string {
	if ref == "" {
		return ""
	}
	name := path.Base(ref)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
