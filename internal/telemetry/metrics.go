// Package telemetry exports run metrics through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"evoforge/internal/evo"
)

const ScopeName = "evoforge/engine"

// InitPrometheus builds a meter provider whose metrics are served by the
// returned handler. The registry is private, so repeated calls do not clash.
func InitPrometheus(serviceName string) (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdkmetric.WithReader(exporter),
	)
	return provider, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// MetricsObserver records generation counters and the best fitness gauge.
type MetricsObserver struct {
	generations metric.Int64Counter
	mutations   metric.Int64Counter
	crossovers  metric.Int64Counter
	evaluations metric.Int64Counter
	runs        metric.Int64Counter
	best        metric.Float64Gauge

	problem        attribute.KeyValue
	lastEvaluation int
}

func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	o := &MetricsObserver{problem: attribute.String("problem", "")}
	var err error
	if o.generations, err = meter.Int64Counter("evoforge.generations",
		metric.WithDescription("Generations completed"), metric.WithUnit("1")); err != nil {
		return nil, err
	}
	if o.mutations, err = meter.Int64Counter("evoforge.mutations",
		metric.WithDescription("Mutations applied to offspring"), metric.WithUnit("1")); err != nil {
		return nil, err
	}
	if o.crossovers, err = meter.Int64Counter("evoforge.crossovers",
		metric.WithDescription("Two-parent crossovers performed"), metric.WithUnit("1")); err != nil {
		return nil, err
	}
	if o.evaluations, err = meter.Int64Counter("evoforge.evaluations",
		metric.WithDescription("Fitness function invocations"), metric.WithUnit("1")); err != nil {
		return nil, err
	}
	if o.runs, err = meter.Int64Counter("evoforge.runs",
		metric.WithDescription("Finished runs by termination reason"), metric.WithUnit("1")); err != nil {
		return nil, err
	}
	if o.best, err = meter.Float64Gauge("evoforge.best_fitness",
		metric.WithDescription("Fitness of the current best individual")); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *MetricsObserver) Started(info evo.RunInfo) {
	o.problem = attribute.String("problem", info.Problem)
	o.lastEvaluation = 0
}

func (o *MetricsObserver) Generation(snapshot evo.Snapshot) {
	ctx := context.Background()
	attrs := metric.WithAttributes(o.problem)
	s := snapshot.Stats
	o.generations.Add(ctx, 1, attrs)
	o.mutations.Add(ctx, int64(s.Mutations), attrs)
	o.crossovers.Add(ctx, int64(s.Crossovers), attrs)
	o.evaluations.Add(ctx, int64(s.TotalEvaluations-o.lastEvaluation), attrs)
	o.lastEvaluation = s.TotalEvaluations
	o.best.Record(ctx, s.BestFitness, attrs)
}

func (o *MetricsObserver) Finished(report evo.Report) {
	o.runs.Add(context.Background(), 1, metric.WithAttributes(
		o.problem,
		attribute.String("reason", string(report.Reason)),
	))
}
