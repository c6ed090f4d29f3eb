// Package memory implementa el ledger de stock en proceso, con las mismas garantías transaccionales
// que el adaptador de PostgreSQL: bloqueo por fila, escrituras confirmadas todas o ninguna
// y lecturas que solo observan estado comprometido.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

type row struct {
	quantity  int64
	updatedAt time.Time
}

// Store estado comprometido del ledger más los candados por fila.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	locations map[string]*entity.Location
	stock     map[entity.StockKey]row
	movements []*entity.Movement
	byKey     map[string]*entity.Movement
	byID      map[string]*entity.Movement

	locksMu sync.Mutex
	locks   map[entity.StockKey]chan struct{}

	now func() time.Time
}

// NewStore construye un ledger vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		locations: make(map[string]*entity.Location),
		stock:     make(map[entity.StockKey]row),
		byKey:     make(map[string]*entity.Movement),
		byID:      make(map[string]*entity.Movement),
		locks:     make(map[entity.StockKey]chan struct{}),
		now:       time.Now,
	}
}

// PutProduct registra o reemplaza un producto del catálogo.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

// PutLocation registra o reemplaza una ubicación del catálogo.
func (s *Store) PutLocation(l entity.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := l
	s.locations[l.ID] = &cp
}

// CreateProduct agrega un producto; ErrDuplicate si el id o el SKU ya existen.
func (s *Store) CreateProduct(_ context.Context, p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

// CreateLocation agrega una ubicación; ErrDuplicate si el id ya existe.
func (s *Store) CreateLocation(_ context.Context, l *entity.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[l.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *l
	s.locations[l.ID] = &cp
	return nil
}

// Stock vista de lectura del stock comprometido. GetForUpdate y ApplyDelta exigen transacción.
func (s *Store) Stock() repository.StockRepository { return &stockReader{s: s} }

// Movements vista de lectura del historial comprometido.
func (s *Store) Movements() repository.MovementRepository { return &movementReader{s: s} }

// Products catálogo de productos.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Locations catálogo de ubicaciones.
func (s *Store) Locations() repository.LocationRepository { return &locationRepo{s: s} }

// LowStock consulta de productos en o bajo su umbral.
func (s *Store) LowStock() repository.LowStockRepository { return &lowStockRepo{s: s} }

// lock adquiere el candado de la fila o falla si el ctx termina antes.
func (s *Store) lock(ctx context.Context, key entity.StockKey) error {
	s.locksMu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("esperando bloqueo de fila %s/%s: %w", key.LocationID, key.ProductID, ctx.Err())
	}
}

func (s *Store) unlock(key entity.StockKey) {
	s.locksMu.Lock()
	ch := s.locks[key]
	s.locksMu.Unlock()
	<-ch
}

func (s *Store) committedQuantity(key entity.StockKey) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock[key].quantity
}

func (s *Store) references(productID, locationID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.products[productID]; !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrUnknownReference, productID)
	}
	if _, ok := s.locations[locationID]; !ok {
		return fmt.Errorf("%w: ubicación %s", domain.ErrUnknownReference, locationID)
	}
	return nil
}

// Run ejecuta fn con repositorios atados a una transacción. Las escrituras quedan en staging hasta
// que fn termina sin error; entonces se aplican bajo un único candado. Los candados de fila se
// liberan al final en cualquier caso.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
) error) error {
	tx := &tx{
		s:      s,
		held:   make(map[entity.StockKey]bool),
		staged: make(map[entity.StockKey]int64),
	}
	defer tx.release()

	if err := fn(&txMovements{tx: tx}, &txStock{tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transacción cancelada: %w", err)
	}
	return tx.commit()
}

type tx struct {
	s         *Store
	held      map[entity.StockKey]bool
	staged    map[entity.StockKey]int64
	movements []*entity.Movement
}

func (t *tx) acquire(ctx context.Context, key entity.StockKey) error {
	if t.held[key] {
		return nil
	}
	if err := t.s.lock(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	return nil
}

func (t *tx) release() {
	for key := range t.held {
		t.s.unlock(key)
	}
	t.held = nil
}

func (t *tx) quantity(key entity.StockKey) int64 {
	if q, ok := t.staged[key]; ok {
		return q
	}
	return t.s.committedQuantity(key)
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range t.movements {
		if m.IdempotencyKey == "" {
			continue
		}
		if _, dup := s.byKey[m.IdempotencyKey]; dup {
			return fmt.Errorf("%w: idempotency_key %s", domain.ErrDuplicate, m.IdempotencyKey)
		}
	}

	now := s.now().UTC()
	for key, q := range t.staged {
		s.stock[key] = row{quantity: q, updatedAt: now}
	}
	for _, m := range t.movements {
		s.movements = append(s.movements, m)
		s.byID[m.ID] = m
		if m.IdempotencyKey != "" {
			s.byKey[m.IdempotencyKey] = m
		}
	}
	return nil
}

type txStock struct{ tx *tx }

func (r *txStock) Get(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	key := entity.StockKey{ProductID: productID, LocationID: locationID}
	return &entity.StockEntry{ProductID: productID, LocationID: locationID, Quantity: r.tx.quantity(key)}, nil
}

func (r *txStock) GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	if err := r.tx.s.references(productID, locationID); err != nil {
		return nil, err
	}
	key := entity.StockKey{ProductID: productID, LocationID: locationID}
	if err := r.tx.acquire(ctx, key); err != nil {
		return nil, err
	}
	return &entity.StockEntry{ProductID: productID, LocationID: locationID, Quantity: r.tx.quantity(key)}, nil
}

func (r *txStock) ApplyDelta(ctx context.Context, productID, locationID string, delta int64) (int64, error) {
	if err := r.tx.s.references(productID, locationID); err != nil {
		return 0, err
	}
	key := entity.StockKey{ProductID: productID, LocationID: locationID}
	if err := r.tx.acquire(ctx, key); err != nil {
		return 0, err
	}
	current := r.tx.quantity(key)
	next := current + delta
	if next < 0 {
		return 0, domain.NewStockError(productID, locationID, -delta, current)
	}
	r.tx.staged[key] = next
	return next, nil
}

func (r *txStock) ListByProduct(ctx context.Context, productID string) ([]*entity.StockEntry, error) {
	entries, err := r.tx.s.Stock().ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	byLoc := make(map[string]*entity.StockEntry, len(entries))
	for _, e := range entries {
		byLoc[e.LocationID] = e
	}
	for key, q := range r.tx.staged {
		if key.ProductID != productID {
			continue
		}
		if e, ok := byLoc[key.LocationID]; ok {
			e.Quantity = q
			continue
		}
		e := &entity.StockEntry{ProductID: productID, LocationID: key.LocationID, Quantity: q}
		byLoc[key.LocationID] = e
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

func (r *txStock) TotalByProduct(ctx context.Context, productID string) (int64, error) {
	entries, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return sumEntries(entries), nil
}

type txMovements struct{ tx *tx }

func (r *txMovements) Create(ctx context.Context, m *entity.Movement) error {
	if m.IdempotencyKey != "" {
		for _, staged := range r.tx.movements {
			if staged.IdempotencyKey == m.IdempotencyKey {
				return fmt.Errorf("%w: idempotency_key %s", domain.ErrDuplicate, m.IdempotencyKey)
			}
		}
	}
	cp := *m
	r.tx.movements = append(r.tx.movements, &cp)
	return nil
}

func (r *txMovements) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	for _, m := range r.tx.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return r.tx.s.Movements().GetByID(ctx, id)
}

func (r *txMovements) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	for _, m := range r.tx.movements {
		if m.IdempotencyKey == key {
			return m, nil
		}
	}
	return r.tx.s.Movements().GetByIdempotencyKey(ctx, key)
}

func (r *txMovements) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	r.tx.s.mu.RLock()
	all := append(append([]*entity.Movement(nil), r.tx.s.movements...), r.tx.movements...)
	r.tx.s.mu.RUnlock()
	return filterMovements(all, filter), nil
}

func (r *txMovements) Count(ctx context.Context, filter repository.MovementFilter) (int, error) {
	filter.Limit, filter.Offset = 0, 0
	list, err := r.List(ctx, filter)
	return len(list), err
}

type stockReader struct{ s *Store }

func (r *stockReader) Get(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cur := r.s.stock[entity.StockKey{ProductID: productID, LocationID: locationID}]
	return &entity.StockEntry{
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   cur.quantity,
		UpdatedAt:  cur.updatedAt,
	}, nil
}

var errNeedsTx = errors.New("operación de escritura requiere transacción")

func (r *stockReader) GetForUpdate(context.Context, string, string) (*entity.StockEntry, error) {
	return nil, errNeedsTx
}

func (r *stockReader) ApplyDelta(context.Context, string, string, int64) (int64, error) {
	return 0, errNeedsTx
}

func (r *stockReader) ListByProduct(ctx context.Context, productID string) ([]*entity.StockEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockEntry
	for key, cur := range r.s.stock {
		if key.ProductID != productID {
			continue
		}
		out = append(out, &entity.StockEntry{
			ProductID:  key.ProductID,
			LocationID: key.LocationID,
			Quantity:   cur.quantity,
			UpdatedAt:  cur.updatedAt,
		})
	}
	sortEntries(out)
	return out, nil
}

func (r *stockReader) TotalByProduct(ctx context.Context, productID string) (int64, error) {
	entries, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return sumEntries(entries), nil
}

type movementReader struct{ s *Store }

func (r *movementReader) Create(context.Context, *entity.Movement) error {
	return errNeedsTx
}

func (r *movementReader) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (r *movementReader) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.byKey[key], nil
}

func (r *movementReader) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	r.s.mu.RLock()
	all := append([]*entity.Movement(nil), r.s.movements...)
	r.s.mu.RUnlock()
	return filterMovements(all, filter), nil
}

func (r *movementReader) Count(ctx context.Context, filter repository.MovementFilter) (int, error) {
	filter.Limit, filter.Offset = 0, 0
	list, err := r.List(ctx, filter)
	return len(list), err
}

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type locationRepo struct{ s *Store }

func (r *locationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

type lowStockRepo struct{ s *Store }

func (r *lowStockRepo) ListAtOrBelowThreshold(ctx context.Context, locationID string) ([]repository.LowStockItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := make(map[string]int64, len(r.s.products))
	for key, cur := range r.s.stock {
		if locationID != "" && key.LocationID != locationID {
			continue
		}
		totals[key.ProductID] += cur.quantity
	}

	var out []repository.LowStockItem
	for _, p := range r.s.products {
		if totals[p.ID] > p.MinQuantity {
			continue
		}
		out = append(out, repository.LowStockItem{
			ProductID:    p.ID,
			SKU:          p.SKU,
			ProductName:  p.Name,
			CurrentStock: totals[p.ID],
			MinQuantity:  p.MinQuantity,
			UnitCost:     p.Cost,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// filterMovements aplica el filtro y devuelve del más reciente al más antiguo.
func filterMovements(all []*entity.Movement, f repository.MovementFilter) []*entity.Movement {
	out := make([]*entity.Movement, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.LocationID != "" && !m.Touches(f.LocationID) {
			continue
		}
		if f.From != nil && m.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && m.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.Movement{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

func sortEntries(entries []*entity.StockEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].LocationID < entries[j].LocationID })
}

func sumEntries(entries []*entity.StockEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
