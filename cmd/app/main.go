package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gowenong/where-in-the-world/internal/config"
	"github.com/gowenong/where-in-the-world/internal/db"
	"github.com/gowenong/where-in-the-world/internal/service"
	"github.com/gowenong/where-in-the-world/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			NewLogger,
			config.NewConfig,
			db.NewGormClient,
			service.NewNormalizer,
			service.NewMutation,
			service.NewQuery,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

func NewLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
