package audit

import (
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/repository"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
