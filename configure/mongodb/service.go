package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocrud/inject/configure/internal/named"
	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Name        string        `json:"-"`
	Uri         string        `json:"uri"`
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	AuthSource  string        `json:"authSource"`
	Database    string        `json:"database"`
	MaxPoolSize uint64        `json:"maxPoolSize"`
	MinPoolSize uint64        `json:"minPoolSize"`
	Timeout     time.Duration `json:"timeout"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("客户端名称不能为空")
	case o.Uri == "":
		return errors.New("uri 不能为空")
	case !strings.HasPrefix(o.Uri, "mongodb://") && !strings.HasPrefix(o.Uri, "mongodb+srv://"):
		return fmt.Errorf("uri %q 必须以 mongodb:// 或 mongodb+srv:// 开头", o.Uri)
	case o.MinPoolSize > o.MaxPoolSize && o.MaxPoolSize > 0:
		return errors.New("minPoolSize 不能大于 maxPoolSize")
	}
	return nil
}

// clientOptions 在 base 上应用认证、连接池与超时设置
func (o *MongoOptions) clientOptions(base *options.ClientOptions) *options.ClientOptions {
	if o.Username != "" || o.Password != "" {
		base.SetAuth(options.Credential{
			Username:   o.Username,
			Password:   o.Password,
			AuthSource: o.AuthSource,
		})
	}
	if o.MaxPoolSize > 0 {
		base.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		base.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		base.SetConnectTimeout(o.Timeout)
		base.SetServerSelectionTimeout(o.Timeout)
	}
	return base
}

func (o *MongoOptions) connectTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return 10 * time.Second
}

// MongoFactory MongoDB 客户端工厂。
//
// 每个名称对应一个 *mgo.Client；配置了 Database 的名称另有一个驱动客户端，
// 只用于提供 *mongo.Database
type MongoFactory struct {
	clients   *named.Registry[*mgo.Client]
	drivers   *named.Registry[*mongo.Client]
	databases *named.Registry[*mongo.Database]
}

// NewMongoFactory 创建客户端工厂
func NewMongoFactory() *MongoFactory {
	return &MongoFactory{
		clients:   named.New[*mgo.Client]("mongo 客户端"),
		drivers:   named.New[*mongo.Client]("mongo 驱动客户端"),
		databases: named.New[*mongo.Database]("mongo 数据库"),
	}
}

// Register 创建客户端。连接在后台建立，这里不等待服务端响应
func (f *MongoFactory) Register(opts MongoOptions) (*mgo.Client, error) {
	if f.clients.Has(opts.Name) {
		return nil, fmt.Errorf("mongo 客户端 %q 已注册", opts.Name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.connectTimeout())
	defer cancel()

	client, err := mgo.NewClient(ctx, opts.Uri, opts.clientOptions(options.Client()))
	if err != nil {
		return nil, fmt.Errorf("创建 mongo 客户端 %q 失败: %w", opts.Name, err)
	}

	var driver *mongo.Client
	if opts.Database != "" {
		driver, err = mongo.Connect(opts.clientOptions(options.Client().ApplyURI(opts.Uri)))
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("创建 mongo 客户端 %q 的数据库连接失败: %w", opts.Name, err)
		}
	}

	if err := f.clients.Add(opts.Name, client); err != nil {
		_ = client.Disconnect(ctx)
		if driver != nil {
			_ = driver.Disconnect(ctx)
		}
		return nil, err
	}
	if driver != nil {
		_ = f.drivers.Add(opts.Name, driver)
		_ = f.databases.Add(opts.Name, driver.Database(opts.Database))
	}
	return client, nil
}

// Get 获取指定名称的客户端
func (f *MongoFactory) Get(name string) (*mgo.Client, error) {
	return f.clients.Get(name)
}

// Database 获取客户端配置的默认数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	return f.databases.Get(name)
}

// Each 按注册顺序遍历所有客户端
func (f *MongoFactory) Each(fn func(name string, client *mgo.Client)) {
	f.clients.Each(fn)
}

// Names 按注册顺序返回客户端名称
func (f *MongoFactory) Names() []string {
	return f.clients.Names()
}

// Close 断开所有客户端
func (f *MongoFactory) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_ = f.databases.CloseAll(func(*mongo.Database) error { return nil })
	return errors.Join(
		f.drivers.CloseAll(func(c *mongo.Client) error { return c.Disconnect(ctx) }),
		f.clients.CloseAll(func(c *mgo.Client) error { return c.Disconnect(ctx) }),
	)
}
