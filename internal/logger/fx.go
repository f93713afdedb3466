package logger

import (
	"context"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig builds the application logger with the standard service
// fields attached.
func NewFromConfig(appCfg config.Config) (*zap.Logger, error) {
	base, err := New(appCfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return base.With(
		zap.String("service", appCfg.AppName),
		zap.String("env", appCfg.Environment),
		zap.String("version", appCfg.AppVersion),
	), nil
}

func flushOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
}

var Module = fx.Module("logger",
	fx.Provide(NewFromConfig),
	fx.Invoke(flushOnStop),
)
