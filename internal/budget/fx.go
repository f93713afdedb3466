package budget

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/repository"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/service"
	"go.uber.org/fx"
)

var Module = fx.Module("budget",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
