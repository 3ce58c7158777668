// Package mongodb 配置命名的 MongoDB 客户端并发布到容器。
package mongodb

import (
	"context"
	"fmt"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/logging"
	"github.com/gocrud/mgo"
)

// Configure 返回 MongoDB 配置器。
// *mgo.Client 以名称发布；配置了 Database 的客户端同时发布同名的 *mongo.Database
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.Logger())
		if err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		if factory == nil {
			return nil
		}

		if err := core.Register(ctx, factory); err != nil {
			return err
		}

		var publishErr error
		factory.Each(func(name string, client *mgo.Client) {
			if publishErr != nil {
				return
			}
			if publishErr = core.Publish(ctx, name, client); publishErr != nil {
				return
			}
			if db, err := factory.Database(name); err == nil {
				publishErr = core.Publish(ctx, name, db)
			}
			ctx.Logger().Debug("mongo 客户端已发布", logging.Field{Key: "name", Value: name})
		})
		if publishErr != nil {
			return publishErr
		}

		ctx.OnStop(func(stopCtx context.Context) error {
			ctx.Logger().Info("关闭 mongo 客户端")
			return factory.Close(stopCtx)
		})
		return nil
	}
}
