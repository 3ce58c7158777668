package di

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Config struct {
	DSN string
}

type Database struct {
	Config *Config `di:""`
}

type Repository interface {
	Find() string
}

type userRepository struct {
	DB *Database `di:""`
}

func (r *userRepository) Find() string { return "user" }

type UserService struct {
	Repo *userRepository `di:""`
	DB   *Database       `di:""`
}

type cycleA struct {
	B *cycleB `di:""`
}

type cycleB struct {
	A *cycleA `di:""`
}

type selfCycle struct {
	Repo Repository `di:""`
}

func (s *selfCycle) Find() string { return "self" }

type namedConsumer struct {
	Primary *Database `di:"primary"`
}

// countingInstantiation 记录被询问的次数，从不处理
type countingInstantiation struct {
	calls atomic.Int32
}

func (c *countingInstantiation) Instantiation(*ResolutionContext, reflect.Type) (Resolution, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestInjector_SingletonIdentity(t *testing.T) {
	inj := NewInjector()

	a, err := Get[*Database](inj)
	require.NoError(t, err)
	b, err := Get[*Database](inj)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotNil(t, a.Config)
}

func TestInjector_TransientTopLevelOnly(t *testing.T) {
	inj := NewInjector()

	first, err := New[*UserService](inj)
	require.NoError(t, err)
	second, err := New[*UserService](inj)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	db, err := Get[*Database](inj)
	require.NoError(t, err)
	assert.Same(t, db, first.DB)
	assert.Same(t, db, second.DB)
	assert.Same(t, first.Repo, second.Repo)

	_, ok := IfAvailable[*UserService](inj)
	assert.False(t, ok, "transient instance must not be cached")
}

func TestInjector_Cycle(t *testing.T) {
	inj := NewInjector()

	_, err := Get[*cycleA](inj)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCyclicDependency)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []reflect.Type{TypeOf[*cycleA](), TypeOf[*cycleB](), TypeOf[*cycleA]()}, cycle.Chain)
	assert.Contains(t, err.Error(), "*di.cycleA -> *di.cycleB -> *di.cycleA")

	_, okA := IfAvailable[*cycleA](inj)
	_, okB := IfAvailable[*cycleB](inj)
	assert.False(t, okA)
	assert.False(t, okB)

	// 失败后再次请求得到同样的错误而不是死锁
	_, err = Get[*cycleB](inj)
	assert.ErrorIs(t, err, ErrCyclicDependency)
}

func TestInjector_CycleThroughSubstitution(t *testing.T) {
	inj := NewBuilder().
		AddPreConstruct(PreConstructFunc(func(t reflect.Type) (reflect.Type, error) {
			if t == TypeOf[Repository]() {
				return TypeOf[*selfCycle](), nil
			}
			return t, nil
		})).
		MustBuild()

	_, err := Get[Repository](inj)
	assert.ErrorIs(t, err, ErrCyclicDependency)
}

func TestInjector_Register(t *testing.T) {
	counter := &countingInstantiation{}
	inj := NewBuilder().AddInstantiation(counter).MustBuild()

	cfg := &Config{DSN: "sqlite://memory"}
	require.NoError(t, Register(inj, cfg))

	got, err := Get[*Config](inj)
	require.NoError(t, err)
	assert.Same(t, cfg, got)
	assert.Zero(t, counter.calls.Load())

	err = Register(inj, &Config{})
	assert.ErrorIs(t, err, ErrDuplicateSingleton)

	err = inj.Register(TypeOf[*Database](), &Config{})
	assert.ErrorIs(t, err, ErrNotAssignable)

	var nilCfg *Config
	err = inj.Register(TypeOf[*Config](), nilCfg)
	assert.ErrorIs(t, err, ErrNotAssignable)
}

func TestInjector_RegisterInterface(t *testing.T) {
	inj := NewInjector()
	repo := &userRepository{}
	require.NoError(t, Register[Repository](inj, repo))

	got, err := Get[Repository](inj)
	require.NoError(t, err)
	assert.Same(t, repo, got)
}

func TestInjector_GetIfAvailableNeverConstructs(t *testing.T) {
	inj := NewInjector()

	_, ok := inj.GetIfAvailable(TypeOf[*Database]())
	assert.False(t, ok)
	_, ok = inj.GetIfAvailable(TypeOf[*Database]())
	assert.False(t, ok)

	db := MustGet[*Database](inj)
	v, ok := inj.GetIfAvailable(TypeOf[*Database]())
	require.True(t, ok)
	assert.Same(t, db, v)
}

func TestInjector_GetIfAvailableSkipsHandlers(t *testing.T) {
	var accepted atomic.Int32
	inj := NewBuilder().
		AddPreConstruct(PreConstructFunc(func(t reflect.Type) (reflect.Type, error) {
			accepted.Add(1)
			if t == TypeOf[Repository]() {
				return TypeOf[*userRepository](), nil
			}
			return t, nil
		})).
		MustBuild()

	_, ok := IfAvailable[Repository](inj)
	assert.False(t, ok)
	_, ok = IfAvailable[*userRepository](inj)
	assert.False(t, ok)
	assert.Zero(t, accepted.Load())

	repo := MustGet[Repository](inj)
	before := accepted.Load()

	available, ok := IfAvailable[Repository](inj)
	require.True(t, ok)
	assert.Same(t, repo, available)
	assert.Equal(t, before, accepted.Load())
}

func TestInjector_RegistersItself(t *testing.T) {
	inj := NewInjector()
	self, err := Get[Injector](inj)
	require.NoError(t, err)
	assert.Same(t, inj, self)
}

func TestInjector_RetrieveAllOfTypeInsertionOrder(t *testing.T) {
	inj := NewInjector()
	MustGet[*UserService](inj)

	all := inj.RetrieveAllOfType(TypeOf[any]())
	// 依赖先于使用者完成构造
	require.Len(t, all, 5)
	assert.Same(t, inj, all[0])
	assert.IsType(t, &Config{}, all[1])
	assert.IsType(t, &Database{}, all[2])
	assert.IsType(t, &userRepository{}, all[3])
	assert.IsType(t, &UserService{}, all[4])

	repos := RetrieveAll[Repository](inj)
	require.Len(t, repos, 1)
	assert.Equal(t, "user", repos[0].Find())
}

func TestInjector_ProvideNamed(t *testing.T) {
	inj := NewInjector()
	primary := &Database{Config: &Config{DSN: "primary"}}
	require.NoError(t, inj.Provide(Named("primary"), primary))

	consumer, err := Get[*namedConsumer](inj)
	require.NoError(t, err)
	assert.Same(t, primary, consumer.Primary)

	got, err := GetNamed[*Database](inj, "primary")
	require.NoError(t, err)
	assert.Same(t, primary, got)

	// 命名值不会满足未命名的请求
	_, ok := IfAvailable[*Database](inj)
	assert.False(t, ok)

	err = inj.Provide(Named("primary"), &Database{})
	assert.ErrorIs(t, err, ErrDuplicateSingleton)

	// 同一标签下不同类型的值可以共存
	require.NoError(t, inj.Provide(Named("primary"), &Config{DSN: "other"}))
	cfg, err := GetNamed[*Config](inj, "primary")
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.DSN)
}

func TestInjector_NamedWithoutValue(t *testing.T) {
	inj := NewInjector()

	_, err := Get[*namedConsumer](inj)
	assert.ErrorIs(t, err, ErrNotProvided)

	_, ok := IfAvailable[*namedConsumer](inj)
	assert.False(t, ok)
}

func TestInjector_PostConstructOnlyForInstantiations(t *testing.T) {
	var seen []reflect.Type
	inj := NewBuilder().
		AddPostConstruct(PostConstructFunc(func(_ *ResolutionContext, instance any) error {
			seen = append(seen, reflect.TypeOf(instance))
			return nil
		})).
		MustBuild()

	require.NoError(t, Register(inj, &Config{}))
	require.NoError(t, inj.Provide(Named("primary"), &Database{}))

	MustGet[*Database](inj)
	_, err := Get[*namedConsumer](inj)
	require.NoError(t, err)

	assert.Equal(t, []reflect.Type{TypeOf[*Database](), TypeOf[*namedConsumer]()}, seen)
}

func TestInjector_PostConstructErrorAborts(t *testing.T) {
	boom := errors.New("init failed")
	inj := NewBuilder().
		AddPostConstruct(PostConstructFunc(func(_ *ResolutionContext, instance any) error {
			if _, ok := instance.(*Database); ok {
				return boom
			}
			return nil
		})).
		MustBuild()

	_, err := Get[*UserService](inj)
	assert.ErrorIs(t, err, boom)

	_, ok := IfAvailable[*Database](inj)
	assert.False(t, ok)
	_, ok = IfAvailable[*Config](inj)
	assert.True(t, ok, "dependencies finished before the failure stay cached")
}

func TestInjector_OverrideErrorAborts(t *testing.T) {
	boom := errors.New("no config")
	inj := NewBuilder().
		AddDependencyHandler(DependencyHandlerFunc(func(_ *ResolutionContext, id Identifier) (any, bool, error) {
			if id.Type() == TypeOf[*Config]() {
				return nil, false, boom
			}
			return nil, false, nil
		})).
		MustBuild()

	_, err := Get[*UserService](inj)
	assert.ErrorIs(t, err, boom)
	_, ok := IfAvailable[*UserService](inj)
	assert.False(t, ok)
}

func TestInjector_OverrideValue(t *testing.T) {
	cfg := &Config{DSN: "override"}
	inj := NewBuilder().
		AddDependencyHandler(DependencyHandlerFunc(func(ctx *ResolutionContext, id Identifier) (any, bool, error) {
			if id.Type() == TypeOf[*Config]() {
				assert.Equal(t, TypeOf[*Database](), ctx.Requester())
				return cfg, true, nil
			}
			return nil, false, nil
		})).
		MustBuild()

	db := MustGet[*Database](inj)
	assert.Same(t, cfg, db.Config)
}

type depA struct{}
type depB struct{}
type depC struct{}

type orderedService struct {
	B *depB `di:""`
	C *depC `di:""`
}

func TestInjector_DependencyOrder(t *testing.T) {
	var order []reflect.Type
	inj := NewBuilder().
		AddDependencyHandler(DependencyHandlerFunc(func(ctx *ResolutionContext, id Identifier) (any, bool, error) {
			if ctx.Requester() == TypeOf[*orderedService]() {
				order = append(order, id.Type())
			}
			return nil, false, nil
		})).
		Constructor(func(a *depA) *orderedService { return &orderedService{} }).
		MustBuild()

	svc, err := Get[*orderedService](inj)
	require.NoError(t, err)
	assert.NotNil(t, svc.B)
	assert.NotNil(t, svc.C)
	assert.Equal(t, []reflect.Type{TypeOf[*depA](), TypeOf[*depB](), TypeOf[*depC]()}, order)
}

func TestInjector_Substitution(t *testing.T) {
	inj := NewBuilder().
		AddPreConstruct(PreConstructFunc(func(t reflect.Type) (reflect.Type, error) {
			if t == TypeOf[Repository]() {
				return TypeOf[*userRepository](), nil
			}
			return t, nil
		})).
		MustBuild()

	repo, err := Get[Repository](inj)
	require.NoError(t, err)
	impl := MustGet[*userRepository](inj)
	assert.Same(t, impl, repo)

	available, ok := IfAvailable[Repository](inj)
	require.True(t, ok)
	assert.Same(t, impl, available)
}

func TestInjector_InvalidSubstitution(t *testing.T) {
	inj := NewBuilder().
		AddPreConstruct(PreConstructFunc(func(t reflect.Type) (reflect.Type, error) {
			if t == TypeOf[Repository]() {
				return TypeOf[*Database](), nil
			}
			return t, nil
		})).
		MustBuild()

	_, err := Get[Repository](inj)
	assert.ErrorIs(t, err, ErrInvalidSubstitution)
}

type finderA interface{ Find() string }
type finderB interface{ Find() string }

func TestInjector_SubstitutionDepth(t *testing.T) {
	inj := NewBuilder(WithMaxSubstitutionDepth(4)).
		AddPreConstruct(PreConstructFunc(func(t reflect.Type) (reflect.Type, error) {
			switch t {
			case TypeOf[finderA]():
				return TypeOf[finderB](), nil
			case TypeOf[finderB]():
				return TypeOf[finderA](), nil
			}
			return t, nil
		})).
		MustBuild()

	_, err := Get[finderA](inj)
	assert.ErrorIs(t, err, ErrSubstitutionDepth)
}

func TestInjector_NoInstantiation(t *testing.T) {
	inj := NewInjector()
	_, err := Get[Repository](inj)
	assert.ErrorIs(t, err, ErrNoInstantiation)

	_, err = Get[int](inj)
	assert.ErrorIs(t, err, ErrNoInstantiation)
}

type openGeneric struct{}

func (openGeneric) TypeParam() reflect.Type { return nil }

func TestInjector_UnresolvedGeneric(t *testing.T) {
	counter := &countingInstantiation{}
	inj := NewBuilder().AddInstantiation(counter).MustBuild()

	_, err := Get[AnySingletonStore](inj)
	assert.ErrorIs(t, err, ErrUnresolvedGeneric)

	_, err = Get[openGeneric](inj)
	assert.ErrorIs(t, err, ErrUnresolvedGeneric)

	type holder struct {
		Store AnySingletonStore `di:""`
	}
	_, err = Get[*holder](inj)
	assert.ErrorIs(t, err, ErrUnresolvedGeneric)

	// 只有 *holder 自身询问过实例化策略
	assert.Equal(t, int32(1), counter.calls.Load())
}

type slowService struct{}

func TestInjector_ConcurrentFirstRequest(t *testing.T) {
	var built atomic.Int32
	inj := NewBuilder().
		Constructor(func() *slowService {
			built.Add(1)
			time.Sleep(10 * time.Millisecond)
			return &slowService{}
		}).
		MustBuild()

	const n = 32
	results := make([]*slowService, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = MustGet[*slowService](inj)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestInjector_ConcurrentCycle(t *testing.T) {
	// 两个 goroutine 各自持有环上一个类型的构造锁后再继续解析依赖
	var arrived sync.WaitGroup
	arrived.Add(2)
	barrier := InstantiationFunc(func(ctx *ResolutionContext, t reflect.Type) (Resolution, error) {
		if ctx.Requester() == nil && (t == TypeOf[*cycleA]() || t == TypeOf[*cycleB]()) {
			arrived.Done()
			arrived.Wait()
		}
		return nil, nil
	})
	inj := NewBuilder().AddInstantiation(barrier).MustBuild()

	errs := make(chan error, 2)
	go func() {
		_, err := Get[*cycleA](inj)
		errs <- err
	}()
	go func() {
		_, err := Get[*cycleB](inj)
		errs <- err
	}()

	for n := 0; n < 2; n++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrCyclicDependency)
		case <-time.After(3 * time.Second):
			t.Fatal("concurrent cyclic resolution did not finish")
		}
	}

	_, okA := IfAvailable[*cycleA](inj)
	_, okB := IfAvailable[*cycleB](inj)
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestInject(t *testing.T) {
	inj := NewInjector()
	var db *Database
	require.NoError(t, Inject(inj, &db))
	assert.Same(t, MustGet[*Database](inj), db)

	assert.Error(t, Inject(inj, Database{}))
	var nilTarget **Database
	assert.Error(t, Inject(inj, nilTarget))
}
