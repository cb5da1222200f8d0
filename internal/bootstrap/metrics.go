package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/stockcam/config"
	"github.com/target/stockcam/internal/observability/statsd"
)

// BuildMetrics creates the statsd client. A disabled configuration yields a
// client that drops every metric.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, service string, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled:    cfg.IsEnabled(),
		Address:    cfg.StatsdAddress,
		Prefix:     cfg.Prefix,
		Logger:     logger,
		GlobalTags: map[string]string{"service": service},
	})
	if err != nil {
		return nil, fmt.Errorf("build metrics client: %w", err)
	}
	if logger != nil && client.Enabled() {
		logger.Info("statsd metrics enabled", "address", cfg.StatsdAddress, "prefix", cfg.Prefix)
	}
	return client, nil
}
