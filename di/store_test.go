package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Grandparent interface {
	Generation() int
}

type Parent interface {
	Grandparent
	ParentName() string
}

type Child interface {
	Parent
	ChildName() string
}

type grandparent struct {
	Name string
}

func (*grandparent) Generation() int { return 0 }

type parent struct {
	Grandparent *grandparent `di:""`
}

func (*parent) Generation() int    { return 1 }
func (*parent) ParentName() string { return "parent" }

type child struct {
	Parent *parent `di:""`
}

func (*child) Generation() int    { return 2 }
func (*child) ParentName() string { return "child" }
func (*child) ChildName() string  { return "child" }

type childWithNoInjection struct {
	Name string
}

func (*childWithNoInjection) Generation() int { return 2 }

type storeConsumer struct {
	Family SingletonStore[Grandparent] `di:""`
}

func buildFamily(t *testing.T) (Injector, []any) {
	t.Helper()
	inj := NewInjector()
	gp := MustGet[*grandparent](inj)
	p := MustGet[*parent](inj)
	c := MustGet[*child](inj)
	n := MustGet[*childWithNoInjection](inj)
	return inj, []any{gp, p, c, n}
}

func TestSingletonStore_RetrieveAll(t *testing.T) {
	inj, family := buildFamily(t)
	store := NewSingletonStore[Grandparent](inj)

	all, err := store.RetrieveAll()
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, member := range all {
		assert.Same(t, family[i], member)
	}

	parents, err := store.RetrieveAllOfType(TypeOf[Parent]())
	require.NoError(t, err)
	require.Len(t, parents, 2)
	assert.Same(t, family[1], parents[0])
	assert.Same(t, family[2], parents[1])

	children, err := StoreRetrieveAll[Child](store)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Same(t, family[2], children[0])
}

func TestSingletonStore_Empty(t *testing.T) {
	store := NewSingletonStore[Grandparent](NewInjector())
	all, err := store.RetrieveAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSingletonStore_GetSingleton(t *testing.T) {
	inj := NewInjector()
	store := NewSingletonStore[Grandparent](inj)

	got, err := store.GetSingleton(TypeOf[*child]())
	require.NoError(t, err)
	assert.Same(t, MustGet[*child](inj), got)

	p, err := StoreGet[*parent](store)
	require.NoError(t, err)
	assert.Same(t, got.(*child).Parent, p)
}

func TestSingletonStore_BoundViolation(t *testing.T) {
	inj := NewInjector()
	store := NewSingletonStore[Parent](inj)

	_, err := store.GetSingleton(TypeOf[*childWithNoInjection]())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeBound)

	var bound *BoundError
	require.ErrorAs(t, err, &bound)
	assert.Equal(t, TypeOf[*childWithNoInjection](), bound.Type)
	assert.Equal(t, TypeOf[Parent](), bound.Bound)
	assert.Contains(t, err.Error(), "*di.childWithNoInjection")
	assert.Contains(t, err.Error(), "di.Parent")

	// 越界请求不会触发构造
	_, ok := IfAvailable[*childWithNoInjection](inj)
	assert.False(t, ok)

	_, err = store.RetrieveAllOfType(TypeOf[Grandparent]())
	assert.ErrorIs(t, err, ErrTypeBound)

	_, err = StoreGet[*grandparent](store)
	assert.ErrorIs(t, err, ErrTypeBound)
}

func TestSingletonStore_Injected(t *testing.T) {
	inj, family := buildFamily(t)

	consumer, err := Get[*storeConsumer](inj)
	require.NoError(t, err)
	assert.Equal(t, TypeOf[Grandparent](), consumer.Family.Bound())
	assert.Equal(t, TypeOf[Grandparent](), consumer.Family.TypeParam())

	all, err := consumer.Family.RetrieveAll()
	require.NoError(t, err)
	assert.Len(t, all, len(family))
}

func TestSingletonStore_Unbound(t *testing.T) {
	var store SingletonStore[Grandparent]
	_, err := store.RetrieveAll()
	assert.Error(t, err)
}
