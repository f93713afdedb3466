package main

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/logger"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/migration"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/server"
	"github.com/Intuitive-Solution/neibrPay-sub000/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
