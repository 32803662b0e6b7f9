package ecs

/*
 * Entity-Component-System Substrate
 *
 * Carries tokens, cells, and validators as first-class entities.
 *
 * Storage layout:
 * - Entity ids are dense uint32s; destroyed ids go to a free stack and
 *   are reused before any new id is handed out
 * - Each component type owns a densely packed row vector plus two index
 *   maps (entity to row, row to entity); removal swaps the last row in
 * - Per-entity bitmasks answer "has component" and drive queries
 *
 * Worlds may be tied to a backing region so that tearing the world down
 * reclaims every parse-scoped allocation in one pass.
 */

import (
	"sort"

	"github.com/gofrs/uuid"

	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/region"
)

var ecsLog = log.NamedLogger("ecs", "world")

// EntityID identifies an entity within one world
type EntityID uint32

// TypeID identifies a registered component type within one world
type TypeID uint8

// ComponentTypeDesc describes a component type at registration time.
// New must return a fresh zeroed component (conventionally a pointer so
// rows stay mutable in place); Destroy, when set, runs on every live row
// during removal and teardown.
type ComponentTypeDesc struct {
	Name    string
	New     func() any
	Destroy func(any)
}

// componentStore is the dense row storage for one component type
type componentStore struct {
	desc          ComponentTypeDesc
	data          []any
	entityToIndex map[EntityID]int
	indexToEntity []EntityID
}

func newComponentStore(desc ComponentTypeDesc) *componentStore {
	return &componentStore{
		desc:          desc,
		data:          make([]any, 0, 16),
		entityToIndex: make(map[EntityID]int, 16),
		indexToEntity: make([]EntityID, 0, 16),
	}
}

// add appends a zeroed row for the entity and returns it
func (s *componentStore) add(e EntityID) any {
	comp := s.desc.New()
	s.entityToIndex[e] = len(s.data)
	s.data = append(s.data, comp)
	s.indexToEntity = append(s.indexToEntity, e)
	return comp
}

// remove swaps the last row into the removed slot and updates both maps
func (s *componentStore) remove(e EntityID) {
	idx, ok := s.entityToIndex[e]
	if !ok {
		return
	}
	if s.desc.Destroy != nil {
		s.desc.Destroy(s.data[idx])
	}

	last := len(s.data) - 1
	if idx != last {
		s.data[idx] = s.data[last]
		moved := s.indexToEntity[last]
		s.indexToEntity[idx] = moved
		s.entityToIndex[moved] = idx
	}
	s.data = s.data[:last]
	s.indexToEntity = s.indexToEntity[:last]
	delete(s.entityToIndex, e)
}

func (s *componentStore) get(e EntityID) any {
	if idx, ok := s.entityToIndex[e]; ok {
		return s.data[idx]
	}
	return nil
}

// destroy runs the destructor over every live row and drops storage
func (s *componentStore) destroy() {
	if s.desc.Destroy != nil {
		for _, comp := range s.data {
			s.desc.Destroy(comp)
		}
	}
	s.data = nil
	s.entityToIndex = nil
	s.indexToEntity = nil
}

// System is a unit of per-update behaviour registered with a world
type System interface {
	Name() string
	Update(w *World, dt float64)
}

// SystemTeardown is implemented by systems that need teardown before the
// world's component arrays are destroyed
type SystemTeardown interface {
	Teardown(w *World)
}

// WorldConfig controls world sizing
type WorldConfig struct {
	EntityCapacity    int
	MaxComponentTypes int
}

// DefaultWorldConfig returns sensible defaults
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		EntityCapacity:    1024,
		MaxComponentTypes: 64,
	}
}

// World owns entities, component stores, and systems
type World struct {
	ID uuid.UUID

	nextEntityID EntityID
	freeEntities []EntityID // LIFO reuse stack
	masks        []Bitmask
	alive        []bool

	stores      []*componentStore
	typesByName map[string]TypeID
	maxTypes    int

	systems []System

	arena     *region.Region // optional, reset on Destroy
	destroyed bool
}

// NewWorld creates a world with the given configuration
func NewWorld(cfg WorldConfig) *World {
	if cfg.EntityCapacity <= 0 {
		cfg.EntityCapacity = 1
	}
	if cfg.MaxComponentTypes <= 0 || cfg.MaxComponentTypes > MaxComponentTypes {
		cfg.MaxComponentTypes = MaxComponentTypes
	}
	id, _ := uuid.NewV4()
	return &World{
		ID:           id,
		freeEntities: make([]EntityID, 0, 16),
		masks:        make([]Bitmask, 0, cfg.EntityCapacity),
		alive:        make([]bool, 0, cfg.EntityCapacity),
		stores:       make([]*componentStore, 0, 8),
		typesByName:  make(map[string]TypeID, 8),
		maxTypes:     cfg.MaxComponentTypes,
		systems:      make([]System, 0, 4),
	}
}

// NewWorldInRegion creates a world whose lifetime is tied to a backing
// region: destroying the world resets the region, reclaiming every
// parse-scoped allocation at once
func NewWorldInRegion(cfg WorldConfig, r *region.Region) *World {
	w := NewWorld(cfg)
	w.arena = r
	return w
}

// Arena returns the backing region, or nil for heap-scoped worlds
func (w *World) Arena() *region.Region {
	return w.arena
}

// RegisterComponentType registers a component type and returns its id.
// Fails once the configured maximum is reached.
func (w *World) RegisterComponentType(desc ComponentTypeDesc) (TypeID, error) {
	if desc.New == nil {
		return 0, ErrNilConstructor
	}
	if id, ok := w.typesByName[desc.Name]; ok {
		return id, ErrDuplicateComponentType
	}
	if len(w.stores) >= w.maxTypes {
		return 0, ErrTooManyComponentTypes
	}
	id := TypeID(len(w.stores))
	w.stores = append(w.stores, newComponentStore(desc))
	w.typesByName[desc.Name] = id
	return id, nil
}

// ComponentTypeByName looks up a registered type id
func (w *World) ComponentTypeByName(name string) (TypeID, bool) {
	id, ok := w.typesByName[name]
	return id, ok
}

// CreateEntity returns a fresh or recycled entity id
func (w *World) CreateEntity() EntityID {
	if n := len(w.freeEntities); n > 0 {
		e := w.freeEntities[n-1]
		w.freeEntities = w.freeEntities[:n-1]
		w.masks[e] = Bitmask{}
		w.alive[e] = true
		return e
	}

	e := w.nextEntityID
	w.nextEntityID++
	if int(e) >= len(w.masks) {
		w.growTo(int(e) + 1)
	}
	w.masks[e] = Bitmask{}
	w.alive[e] = true
	return e
}

// growTo extends the mask and liveness arrays, doubling capacity
func (w *World) growTo(n int) {
	newCap := cap(w.masks)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	masks := make([]Bitmask, n, newCap)
	copy(masks, w.masks)
	w.masks = masks

	alive := make([]bool, n, newCap)
	copy(alive, w.alive)
	w.alive = alive
}

// DestroyEntity removes every component the entity carries, clears its
// mask, and pushes its id onto the free stack
func (w *World) DestroyEntity(e EntityID) {
	if !w.valid(e) {
		return
	}
	mask := w.masks[e]
	for t := 0; t < len(w.stores); t++ {
		if mask.Has(TypeID(t)) {
			w.stores[t].remove(e)
		}
	}
	w.masks[e] = Bitmask{}
	w.alive[e] = false
	w.freeEntities = append(w.freeEntities, e)
}

// IsAlive reports whether the entity id is live
func (w *World) IsAlive(e EntityID) bool {
	return w.valid(e)
}

func (w *World) valid(e EntityID) bool {
	return int(e) < len(w.alive) && w.alive[e]
}

// AddComponent attaches a zeroed component of the given type and returns
// it. The returned component stays valid until the component is removed
// or the entity destroyed. Adding twice returns the existing component.
func (w *World) AddComponent(e EntityID, t TypeID) any {
	if !w.valid(e) || int(t) >= len(w.stores) {
		return nil
	}
	if w.masks[e].Has(t) {
		return w.stores[t].get(e)
	}
	comp := w.stores[t].add(e)
	w.masks[e].Set(t)
	return comp
}

// RemoveComponent detaches a component, swap-removing its dense row
func (w *World) RemoveComponent(e EntityID, t TypeID) {
	if !w.valid(e) || int(t) >= len(w.stores) {
		return
	}
	if !w.masks[e].Has(t) {
		return
	}
	w.stores[t].remove(e)
	w.masks[e].Clear(t)
}

// GetComponent returns the entity's component of the given type, or nil
func (w *World) GetComponent(e EntityID, t TypeID) any {
	if !w.valid(e) || int(t) >= len(w.stores) {
		return nil
	}
	if !w.masks[e].Has(t) {
		return nil
	}
	return w.stores[t].get(e)
}

// HasComponent reports whether the entity carries the component type
func (w *World) HasComponent(e EntityID, t TypeID) bool {
	return w.valid(e) && int(t) < len(w.stores) && w.masks[e].Has(t)
}

// Query returns the ids of every live entity whose mask contains the
// query mask, in ascending id order. The world must not be mutated while
// the result is being consumed.
func (w *World) Query(mask Bitmask) []EntityID {
	// Walk the smallest component store when the mask names one; fall
	// back to a mask scan for empty masks
	var smallest *componentStore
	for t := 0; t < len(w.stores); t++ {
		if mask.Has(TypeID(t)) {
			s := w.stores[t]
			if smallest == nil || len(s.data) < len(smallest.data) {
				smallest = s
			}
		}
	}

	result := make([]EntityID, 0, 16)
	if smallest == nil {
		for e := EntityID(0); int(e) < len(w.masks); e++ {
			if w.alive[e] && w.masks[e].ContainsAll(mask) {
				result = append(result, e)
			}
		}
		return result
	}

	for _, e := range smallest.indexToEntity {
		if w.alive[e] && w.masks[e].ContainsAll(mask) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// RegisterSystem appends a system; Update runs systems in registration
// order
func (w *World) RegisterSystem(sys System) {
	w.systems = append(w.systems, sys)
}

// Update runs every registered system once
func (w *World) Update(dt float64) {
	for _, sys := range w.systems {
		sys.Update(w, dt)
	}
}

// UpdateSystem runs a single system explicitly
func (w *World) UpdateSystem(sys System, dt float64) {
	sys.Update(w, dt)
}

// EntityCount returns the number of live entities
func (w *World) EntityCount() int {
	count := 0
	for _, a := range w.alive {
		if a {
			count++
		}
	}
	return count
}

// Destroy tears the world down: systems first, then component arrays
// (running destructors on every live row), then the backing region if
// one is attached. Repeated destroys are logged no-ops.
func (w *World) Destroy() {
	if w.destroyed {
		ecsLog.Warnf("Double destroy of world %s detected, ignoring", w.ID)
		return
	}
	w.destroyed = true

	for _, sys := range w.systems {
		if td, ok := sys.(SystemTeardown); ok {
			td.Teardown(w)
		}
	}
	w.systems = nil

	for _, s := range w.stores {
		s.destroy()
	}
	w.stores = nil
	w.masks = nil
	w.alive = nil
	w.freeEntities = nil

	if w.arena != nil {
		w.arena.Reset()
	}
}
