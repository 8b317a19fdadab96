package observability

import (
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/observability/logger"
	"github.com/lumenis/lumenis/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		provideRegistry,
		metrics.NewHTTPMetrics,
		metrics.NewFlowMetrics,
	),
)

func provideLoggerConfig(cfg config.Config) logger.Config {
	debug := cfg.Environment != "production"
	format := "json"
	if debug {
		format = "console"
	}
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               "info",
		Format:              format,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func provideRegistry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}
