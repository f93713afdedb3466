package invoice

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/repository"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
