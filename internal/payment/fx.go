package payment

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/repository"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/service"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(
		repository.Provide,
		service.NewService,
		webhook.NewService,
	),
)
