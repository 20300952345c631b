package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"userload/internal/config"
	"userload/internal/metrics"
	"userload/internal/metrics/datadog"
	"userload/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend. The returned func
// flushes it and is safe to call when metrics are disabled.
func setupMetrics(p config.Pipeline, log logrus.FieldLogger) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(p.Metrics.Backend) {
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}, nil
	case "prometheus", "prom", "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			GlobalTags: []string{"job:" + p.Job},
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", p.Metrics.Backend)
	}
	if err != nil {
		return nil, err
	}
	metrics.SetBackend(b)
	log.WithField("backend", p.Metrics.Backend).Info("metrics: enabled")

	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush failed")
		}
	}, nil
}
