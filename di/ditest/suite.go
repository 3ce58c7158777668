package ditest

import (
	"github.com/gocrud/inject/di"
	"github.com/stretchr/testify/suite"
)

// Suite 在每个测试前为夹具创建新的容器。
//
// 外层套件在 SetupSuite 中调用 Use(s) 指定夹具；自定义 SetupTest 时
// 先重建 mock，再调用 s.Suite.SetupTest()。
type Suite struct {
	suite.Suite

	Injector di.Injector

	fixture any
	opts    []Option
}

// Use 指定 SetupTest 中注入的夹具
func (s *Suite) Use(fixture any, opts ...Option) {
	s.fixture = fixture
	s.opts = opts
}

// SetupTest 实现 suite.SetupTestSuite
func (s *Suite) SetupTest() {
	if s.fixture == nil {
		s.Injector = nil
		return
	}
	s.Require().NoError(Reset(s.fixture))
	s.Injector = Inject(s.T(), s.fixture, s.opts...)
}
