package otel

import (
	"context"
	"errors"
	"fmt"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/MrEthical07/goWallet/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goWallet.MetricsSnapshot
	AuditDropped() uint64
}

// sessionSource is implemented by *goWallet.Client.
type sessionSource interface {
	Session() goWallet.Session
}

type sessionGauges struct {
	source        sessionSource
	authenticated metric.Int64ObservableGauge
	degraded      metric.Int64ObservableGauge
	simulated     metric.Int64ObservableGauge
}

type observedCounter struct {
	id         goWallet.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      goWallet.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes client metrics through observable OTel instruments.
// One callback reads a snapshot per collection cycle.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	session      *sessionGauges
}

func NewExporter(meter metric.Meter, client *goWallet.Client) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, client)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative login latency bucket count."), metric.WithUnit("{login}"))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"gowallet_audit_dropped_total",
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	if ss, ok := source.(sessionSource); ok {
		g, err := newSessionGauges(meter, ss)
		if err != nil {
			return nil, err
		}
		exporter.session = g
		observables = append(observables, g.authenticated, g.degraded, g.simulated)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		for _, h := range exporter.histograms {
			nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
			cumulative := internaldefs.CumulativeBuckets(nonCumulative)
			for i := 0; i < len(cumulative); i++ {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		if g := exporter.session; g != nil {
			s := g.source.Session()
			observer.ObserveInt64(g.authenticated, boolValue(s.Authenticated))
			observer.ObserveInt64(g.degraded, boolValue(s.Degraded))
			observer.ObserveInt64(g.simulated, boolValue(s.Mode == goWallet.ModeSimulated))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func newSessionGauges(meter metric.Meter, source sessionSource) (*sessionGauges, error) {
	g := &sessionGauges{source: source}
	var err error
	if g.authenticated, err = meter.Int64ObservableGauge("gowallet_session_authenticated",
		metric.WithDescription("1 when a session is established.")); err != nil {
		return nil, fmt.Errorf("create session authenticated gauge: %w", err)
	}
	if g.degraded, err = meter.Int64ObservableGauge("gowallet_session_degraded",
		metric.WithDescription("1 when the session carries a placeholder identity.")); err != nil {
		return nil, fmt.Errorf("create session degraded gauge: %w", err)
	}
	if g.simulated, err = meter.Int64ObservableGauge("gowallet_mode_simulated",
		metric.WithDescription("1 when the simulated gateway is active.")); err != nil {
		return nil, fmt.Errorf("create mode gauge: %w", err)
	}
	return g, nil
}

func boolValue(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// Close unregisters the callback. The instruments stay with the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
