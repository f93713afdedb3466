package expense

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/repository"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/service"
	"go.uber.org/fx"
)

var Module = fx.Module("expense",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
