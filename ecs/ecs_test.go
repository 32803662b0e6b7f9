package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IreGaddr/braggi/region"
)

type position struct {
	X, Y int
}

type velocity struct {
	DX, DY int
}

func registerTestTypes(t *testing.T, w *World) (TypeID, TypeID) {
	t.Helper()
	posType, err := w.RegisterComponentType(ComponentTypeDesc{
		Name: "position",
		New:  func() any { return &position{} },
	})
	require.NoError(t, err)
	velType, err := w.RegisterComponentType(ComponentTypeDesc{
		Name: "velocity",
		New:  func() any { return &velocity{} },
	})
	require.NoError(t, err)
	return posType, velType
}

func TestEntityLifecycle(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()

	e0 := w.CreateEntity()
	e1 := w.CreateEntity()
	assert.Equal(t, EntityID(0), e0)
	assert.Equal(t, EntityID(1), e1)
	assert.True(t, w.IsAlive(e0))

	w.DestroyEntity(e0)
	assert.False(t, w.IsAlive(e0))

	// Freed id must come back before any new id is allocated
	e2 := w.CreateEntity()
	assert.Equal(t, e0, e2)
	e3 := w.CreateEntity()
	assert.Equal(t, EntityID(2), e3)
}

func TestComponentAddGetRemove(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, velType := registerTestTypes(t, w)

	e := w.CreateEntity()
	comp := w.AddComponent(e, posType)
	require.NotNil(t, comp)

	pos := comp.(*position)
	pos.X = 7

	got := w.GetComponent(e, posType)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.(*position).X, "component must stay stable in place")

	assert.True(t, w.HasComponent(e, posType))
	assert.False(t, w.HasComponent(e, velType))
	assert.Nil(t, w.GetComponent(e, velType))

	w.RemoveComponent(e, posType)
	assert.False(t, w.HasComponent(e, posType))
	assert.Nil(t, w.GetComponent(e, posType))
}

func TestAddComponentTwiceReturnsExisting(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, _ := registerTestTypes(t, w)

	e := w.CreateEntity()
	first := w.AddComponent(e, posType).(*position)
	first.X = 3
	second := w.AddComponent(e, posType).(*position)
	assert.Same(t, first, second)
}

func TestDestroyEntityClearsComponents(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, velType := registerTestTypes(t, w)

	e := w.CreateEntity()
	w.AddComponent(e, posType)
	w.AddComponent(e, velType)

	w.DestroyEntity(e)
	assert.False(t, w.HasComponent(e, posType))
	assert.False(t, w.HasComponent(e, velType))
	assert.Nil(t, w.GetComponent(e, posType))
}

func TestSwapWithLastKeepsRowsDense(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, _ := registerTestTypes(t, w)

	entities := make([]EntityID, 5)
	for i := range entities {
		entities[i] = w.CreateEntity()
		p := w.AddComponent(entities[i], posType).(*position)
		p.X = i
	}

	// Remove a middle row; the last row is swapped in
	w.RemoveComponent(entities[1], posType)

	for i, e := range entities {
		if i == 1 {
			continue
		}
		got := w.GetComponent(e, posType)
		require.NotNil(t, got, "entity %d lost its component", e)
		assert.Equal(t, i, got.(*position).X, "entity %d row corrupted", e)
	}
}

// Query stability scenario: 10 entities, first 5 carry A, entities 3..7
// carry B; the A∧B intersection is {3,4} and shrinks to {3} after
// removing A from 4
func TestQueryIntersection(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	aType, bType := registerTestTypes(t, w)

	entities := make([]EntityID, 10)
	for i := range entities {
		entities[i] = w.CreateEntity()
	}
	for i := 0; i < 5; i++ {
		w.AddComponent(entities[i], aType)
	}
	for i := 3; i <= 7; i++ {
		w.AddComponent(entities[i], bType)
	}

	got := w.Query(MaskOf(aType, bType))
	require.Equal(t, []EntityID{3, 4}, got)

	w.RemoveComponent(entities[4], aType)
	got = w.Query(MaskOf(aType, bType))
	require.Equal(t, []EntityID{3}, got)
}

func TestQueryAscendingOrder(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, _ := registerTestTypes(t, w)

	// Attach in reverse so store order differs from id order
	entities := make([]EntityID, 8)
	for i := range entities {
		entities[i] = w.CreateEntity()
	}
	for i := len(entities) - 1; i >= 0; i-- {
		w.AddComponent(entities[i], posType)
	}

	got := w.Query(MaskOf(posType))
	require.Len(t, got, len(entities))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "query order must be ascending")
	}
}

func TestRegisterComponentTypeLimit(t *testing.T) {
	w := NewWorld(WorldConfig{EntityCapacity: 8, MaxComponentTypes: 2})
	defer w.Destroy()

	_, err := w.RegisterComponentType(ComponentTypeDesc{Name: "a", New: func() any { return new(int) }})
	require.NoError(t, err)
	_, err = w.RegisterComponentType(ComponentTypeDesc{Name: "b", New: func() any { return new(int) }})
	require.NoError(t, err)
	_, err = w.RegisterComponentType(ComponentTypeDesc{Name: "c", New: func() any { return new(int) }})
	assert.ErrorIs(t, err, ErrTooManyComponentTypes)
}

func TestDestructorsRunOnTeardown(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())

	destroyed := 0
	dtorType, err := w.RegisterComponentType(ComponentTypeDesc{
		Name:    "tracked",
		New:     func() any { return new(int) },
		Destroy: func(any) { destroyed++ },
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		e := w.CreateEntity()
		w.AddComponent(e, dtorType)
	}

	w.Destroy()
	assert.Equal(t, 3, destroyed)

	// Second destroy is a logged no-op, destructors do not rerun
	w.Destroy()
	assert.Equal(t, 3, destroyed)
}

type countingSystem struct {
	updates   int
	teardowns int
}

func (s *countingSystem) Name() string               { return "counting" }
func (s *countingSystem) Update(_ *World, _ float64) { s.updates++ }
func (s *countingSystem) Teardown(_ *World)          { s.teardowns++ }

func TestSystems(t *testing.T) {
	w := NewWorld(DefaultWorldConfig())

	sysA := &countingSystem{}
	sysB := &countingSystem{}
	w.RegisterSystem(sysA)
	w.RegisterSystem(sysB)

	w.Update(0.1)
	w.Update(0.1)
	assert.Equal(t, 2, sysA.updates)
	assert.Equal(t, 2, sysB.updates)

	w.UpdateSystem(sysA, 0.1)
	assert.Equal(t, 3, sysA.updates)
	assert.Equal(t, 2, sysB.updates)

	w.Destroy()
	assert.Equal(t, 1, sysA.teardowns, "systems torn down before component arrays")
}

func TestWorldInRegion(t *testing.T) {
	r, err := region.Create(4096, region.SEQ)
	require.NoError(t, err)

	w := NewWorldInRegion(DefaultWorldConfig(), r)
	require.Same(t, r, w.Arena())

	if _, err := r.Alloc(128); err != nil {
		t.Fatalf("arena alloc failed: %v", err)
	}
	require.Equal(t, 128, r.Used())

	w.Destroy()
	assert.Equal(t, 0, r.Used(), "world teardown resets the backing region")
}

func BenchmarkCreateDestroyEntity(b *testing.B) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	for i := 0; i < b.N; i++ {
		e := w.CreateEntity()
		w.DestroyEntity(e)
	}
}

func BenchmarkQuery(b *testing.B) {
	w := NewWorld(DefaultWorldConfig())
	defer w.Destroy()
	posType, _ := w.RegisterComponentType(ComponentTypeDesc{Name: "position", New: func() any { return &position{} }})
	velType, _ := w.RegisterComponentType(ComponentTypeDesc{Name: "velocity", New: func() any { return &velocity{} }})
	for i := 0; i < 1000; i++ {
		e := w.CreateEntity()
		w.AddComponent(e, posType)
		if i%2 == 0 {
			w.AddComponent(e, velType)
		}
	}
	mask := MaskOf(posType, velType)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Query(mask)
	}
}
