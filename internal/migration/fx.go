package migration

import (
	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	budgetdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	expensedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// The SQL migrations target postgres. The sqlite path exists for
		// local runs without a database server and derives its schema from
		// the models instead.
		if conn.Dialector.Name() == "sqlite" {
			return conn.AutoMigrate(
				&invoicedomain.Invoice{},
				&invoicedomain.LineItem{},
				&invoicedomain.Schedule{},
				&paymentdomain.Payment{},
				&paymentdomain.EventRecord{},
				&budgetdomain.Category{},
				&budgetdomain.Entry{},
				&auditdomain.AuditLog{},
				&expensedomain.Expense{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
