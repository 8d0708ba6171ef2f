package helpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/catalog"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// MemoryStateRepository is an in-memory automation.StateRepository
type MemoryStateRepository struct {
	mu      sync.Mutex
	records map[string]automation.Record
	saves   int
	saveErr error
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{records: make(map[string]automation.Record)}
}

// FailSaves makes every Save return err until called with nil
func (r *MemoryStateRepository) FailSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// SaveCount is the number of successful saves
func (r *MemoryStateRepository) SaveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *MemoryStateRepository) Save(ctx context.Context, record automation.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.records[record.ShipSymbol] = cloneRecord(record)
	return nil
}

func (r *MemoryStateRepository) Load(ctx context.Context, shipSymbol string) (*automation.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[shipSymbol]
	if !ok {
		return nil, automation.ErrRecordNotFound
	}
	out := cloneRecord(record)
	return &out, nil
}

func (r *MemoryStateRepository) LoadAll(ctx context.Context) ([]automation.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]automation.Record, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, cloneRecord(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShipSymbol < out[j].ShipSymbol })
	return out, nil
}

func cloneRecord(record automation.Record) automation.Record {
	out := automation.Record{State: *record.State.Clone()}
	out.Queue = append([]automation.ActionStep{}, record.Queue...)
	return out
}

// MemoryWaypointStore is an in-memory catalog.WaypointStore
type MemoryWaypointStore struct {
	mu        sync.Mutex
	waypoints map[string]*shared.Waypoint
}

func NewMemoryWaypointStore() *MemoryWaypointStore {
	return &MemoryWaypointStore{waypoints: make(map[string]*shared.Waypoint)}
}

func (s *MemoryWaypointStore) SaveAll(ctx context.Context, waypoints []*shared.Waypoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wp := range waypoints {
		c := *wp
		s.waypoints[wp.Symbol] = &c
	}
	return nil
}

func (s *MemoryWaypointStore) FindBySymbol(ctx context.Context, symbol string) (*shared.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", automation.ErrUnknownWaypoint, symbol)
	}
	c := *wp
	return &c, nil
}

func (s *MemoryWaypointStore) ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*shared.Waypoint
	for _, wp := range s.waypoints {
		if wp.SystemSymbol == systemSymbol {
			c := *wp
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// MemoryMarketStore is an in-memory catalog.MarketStore
type MemoryMarketStore struct {
	mu      sync.Mutex
	markets map[string][]automation.MarketGood
}

func NewMemoryMarketStore() *MemoryMarketStore {
	return &MemoryMarketStore{markets: make(map[string][]automation.MarketGood)}
}

func (s *MemoryMarketStore) ReplaceMarket(ctx context.Context, waypoint string, goods []automation.MarketGood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[waypoint] = append([]automation.MarketGood(nil), goods...)
	return nil
}

func (s *MemoryMarketStore) ListBySystem(ctx context.Context, systemSymbol string) ([]automation.MarketGood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []automation.MarketGood
	for waypoint, goods := range s.markets {
		if shared.ExtractSystemSymbol(waypoint) == systemSymbol {
			out = append(out, goods...)
		}
	}
	return out, nil
}

// StaticWorld is a catalog.WorldSource serving fixed waypoints and markets
type StaticWorld struct {
	mu          sync.Mutex
	waypoints   map[string][]*shared.Waypoint // system -> waypoints
	markets     map[string][]automation.MarketGood
	listCalls   int
	marketCalls int
}

func NewStaticWorld() *StaticWorld {
	return &StaticWorld{
		waypoints: make(map[string][]*shared.Waypoint),
		markets:   make(map[string][]automation.MarketGood),
	}
}

func (w *StaticWorld) AddWaypoint(wp *shared.Waypoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waypoints[wp.SystemSymbol] = append(w.waypoints[wp.SystemSymbol], wp)
}

// SetMarketPrice lists good at a market with the given sell price
func (w *StaticWorld) SetMarketPrice(waypoint, good string, sellPrice int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markets[waypoint] = append(w.markets[waypoint], automation.MarketGood{
		Waypoint:  waypoint,
		Good:      good,
		SellPrice: sellPrice,
	})
}

// ListCalls counts ListWaypoints calls
func (w *StaticWorld) ListCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listCalls
}

func (w *StaticWorld) ListWaypoints(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listCalls++
	return append([]*shared.Waypoint(nil), w.waypoints[systemSymbol]...), nil
}

func (w *StaticWorld) GetMarket(ctx context.Context, systemSymbol, waypoint string) ([]automation.MarketGood, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marketCalls++
	return append([]automation.MarketGood(nil), w.markets[waypoint]...), nil
}

// NewMemoryCatalog builds a catalog service over in-memory stores fed by world
func NewMemoryCatalog(world catalog.WorldSource) *catalog.Service {
	return catalog.NewService(NewMemoryWaypointStore(), NewMemoryMarketStore(), world)
}
