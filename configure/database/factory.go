package database

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"gorm.io/gorm"
)

// DatabaseFactory 按名称管理 *gorm.DB
type DatabaseFactory struct {
	dbs   map[string]*gorm.DB
	names []string
	mu    sync.RWMutex
}

// NewDatabaseFactory 创建数据库工厂
func NewDatabaseFactory() *DatabaseFactory {
	return &DatabaseFactory{dbs: make(map[string]*gorm.DB)}
}

// Open 打开连接、配置连接池并执行自动迁移
func (f *DatabaseFactory) Open(opts DatabaseOptions) (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.dbs[opts.Name]; exists {
		return nil, fmt.Errorf("数据库 %q 已注册", opts.Name)
	}

	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return nil, fmt.Errorf("打开数据库 %q 失败: %w", opts.Name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库 %q 的连接池失败: %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("数据库 %q 自动迁移失败: %w", opts.Name, err)
		}
	}

	f.dbs[opts.Name] = db
	f.names = append(f.names, opts.Name)
	return db, nil
}

// Get 获取指定名称的数据库
func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("数据库 %q 不存在", name)
	}
	return db, nil
}

// Names 按注册顺序返回所有名称
func (f *DatabaseFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.names)
}

// Close 关闭所有数据库连接
func (f *DatabaseFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, name := range f.names {
		sqlDB, err := f.dbs[name].DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("获取数据库 %q 的连接池失败: %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭数据库 %q 失败: %w", name, err))
		}
	}
	f.dbs = make(map[string]*gorm.DB)
	f.names = nil
	return errors.Join(errs...)
}
