// Package ditest 在测试中用 mock 替身组装被测对象。
//
// 夹具是一个结构体指针：带 `mock:""` 标签的字段保存预先创建好的替身（通常是 testify/mock），
// 带 `inject:"delayed"` 标签的字段必须为 nil，在容器创建后由单例填充。
//
//	type userServiceTest struct {
//		Repo    Repository   `mock:""`
//		Service *UserService `inject:"delayed"`
//	}
//
//	func TestUserService(t *testing.T) {
//		repo := new(mockRepository)
//		repo.On("Find", 1).Return("alice")
//		f := &userServiceTest{Repo: repo}
//		ditest.Inject(t, f)
//		...
//	}
package ditest

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/di/handlers"
	"github.com/stretchr/testify/require"
)

const (
	mockTagName   = "mock"
	injectTagName = "inject"
	delayedValue  = "delayed"
)

// ErrNoMock 依赖既不是 mock 字段也不是 delayed 字段
var ErrNoMock = errors.New("ditest: 依赖没有对应的 mock 字段")

// Option 调整测试容器的构建
type Option func(*di.Builder)

// WithHandlers 追加处理器
func WithHandlers(h ...any) Option {
	return func(b *di.Builder) { b.AddHandlers(h...) }
}

// WithInjectorOptions 追加容器选项
func WithInjectorOptions(opts ...di.Option) Option {
	return func(b *di.Builder) { b.Apply(opts...) }
}

type fixtureField struct {
	index int
	name  string
	typ   reflect.Type
}

type fixtureFields struct {
	mocks   []fixtureField
	delayed []fixtureField
}

func scanFixture(fixture any) (reflect.Value, fixtureFields, error) {
	var fields fixtureFields

	v := reflect.ValueOf(fixture)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fields, fmt.Errorf("ditest: 夹具必须是非 nil 的结构体指针，得到 %T", fixture)
	}
	st := v.Elem().Type()

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		_, isMock := field.Tag.Lookup(mockTagName)
		isDelayed := field.Tag.Get(injectTagName) == delayedValue
		if !isMock && !isDelayed {
			continue
		}
		if isMock && isDelayed {
			return reflect.Value{}, fields, fmt.Errorf("ditest: 字段 %s 不能同时是 mock 与 delayed", field.Name)
		}
		if !field.IsExported() {
			return reflect.Value{}, fields, fmt.Errorf("ditest: 字段 %s 未导出", field.Name)
		}

		f := fixtureField{index: i, name: field.Name, typ: field.Type}
		if isMock {
			fields.mocks = append(fields.mocks, f)
		} else {
			fields.delayed = append(fields.delayed, f)
		}
	}
	return v.Elem(), fields, nil
}

// MockHandler 依赖覆盖处理器：首次调用时把所有 mock 字段注册为单例，
// 之后 mock 类型直接返回替身，delayed 字段的类型交给后续策略构造，
// 其他类型返回 ErrNoMock。
type MockHandler struct {
	fixture reflect.Value
	fields  fixtureFields
	delayed map[reflect.Type]struct{}

	once        sync.Once
	registerErr error
}

// NewMockHandler 基于夹具创建处理器
func NewMockHandler(fixture any) (*MockHandler, error) {
	v, fields, err := scanFixture(fixture)
	if err != nil {
		return nil, err
	}
	delayed := make(map[reflect.Type]struct{}, len(fields.delayed))
	for _, f := range fields.delayed {
		delayed[f.typ] = struct{}{}
	}
	return &MockHandler{fixture: v, fields: fields, delayed: delayed}, nil
}

func (h *MockHandler) registerMocks(inj di.Injector) error {
	h.once.Do(func() {
		for _, f := range h.fields.mocks {
			if err := inj.Register(f.typ, h.fixture.Field(f.index).Interface()); err != nil {
				h.registerErr = fmt.Errorf("ditest: 注册 mock 字段 %s 失败: %w", f.name, err)
				return
			}
		}
	})
	return h.registerErr
}

// ResolveValue 实现 di.DependencyHandler
func (h *MockHandler) ResolveValue(ctx *di.ResolutionContext, id di.Identifier) (any, bool, error) {
	inj := ctx.Injector()
	if err := h.registerMocks(inj); err != nil {
		return nil, false, err
	}

	t := id.Type()
	if v, ok := inj.GetIfAvailable(t); ok {
		return v, true, nil
	}
	if _, ok := h.delayed[t]; ok {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%w: %v（delayed 字段的依赖必须声明为 mock 或 delayed 字段）", ErrNoMock, t)
}

// Inject 为夹具创建测试容器并填充 delayed 字段，任何错误都会终止测试
func Inject(t testing.TB, fixture any, opts ...Option) di.Injector {
	t.Helper()

	h, err := NewMockHandler(fixture)
	require.NoError(t, err)

	b := di.NewBuilder().AddHandlers(h, handlers.PostConstructInvoker{})
	for _, opt := range opts {
		opt(b)
	}
	inj, err := b.Build()
	require.NoError(t, err)

	for _, f := range h.fields.delayed {
		field := h.fixture.Field(f.index)
		require.True(t, field.IsZero(), "ditest: delayed 字段 %s 在注入前必须为 nil", f.name)

		v, err := inj.GetSingleton(f.typ)
		require.NoError(t, err, "ditest: 无法构造 delayed 字段 %s", f.name)
		field.Set(reflect.ValueOf(v))
	}

	// 没有 delayed 字段时也要让 mock 可以通过容器获取
	require.NoError(t, h.registerMocks(inj))
	return inj
}

// Reset 把夹具的 delayed 字段清零，用于在同一个夹具上重复注入
func Reset(fixture any) error {
	v, fields, err := scanFixture(fixture)
	if err != nil {
		return err
	}
	for _, f := range fields.delayed {
		field := v.Field(f.index)
		field.Set(reflect.Zero(field.Type()))
	}
	return nil
}
