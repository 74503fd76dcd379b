package main

import (
	"context"
	"errors"

	"github.com/criyle/go-runner/worker"
	"github.com/criyle/go-runner/workspace"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace   = "gorunner"
	workspaceSubsystem = "workspace"
)

var (
	// 10ms -> 20s
	timeBuckets = []float64{
		0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 1.5, 2, 3, 5, 8, 10, 15, 20,
	}

	metricsSummaryQuantile = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

	execTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "time_seconds",
		Help:      "Histogram for the execution time",
		Buckets:   timeBuckets,
	}, []string{"mode", "outcome"})

	execTimeSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  metricsNamespace,
		Name:       "time",
		Help:       "Summary for the execution time",
		Objectives: metricsSummaryQuantile,
	}, []string{"mode", "outcome"})

	execInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "in_flight",
		Help:      "Number of requests submitted to the worker and not yet answered",
	})

	wsMaterialized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: workspaceSubsystem,
		Name:      "materialized_total",
		Help:      "Number of workspaces materialized",
	}, []string{"mode"})

	wsError = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: workspaceSubsystem,
		Name:      "error_total",
		Help:      "Number of workspaces failed to materialize",
	})

	wsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: workspaceSubsystem,
		Name:      "swept_total",
		Help:      "Number of orphan workspaces removed by the sweeper",
	})
)

func init() {
	prometheus.MustRegister(execTimeHist, execTimeSummary, execInFlight)
	prometheus.MustRegister(wsMaterialized, wsError, wsSwept)
}

func execObserve(res worker.Response) {
	kind := "unknown"
	if res.Outcome != nil {
		kind = res.Outcome.Kind()
	}
	mode := res.Mode.String()
	ob := res.Time.Seconds()
	execTimeHist.WithLabelValues(mode, kind).Observe(ob)
	execTimeSummary.WithLabelValues(mode, kind).Observe(ob)
}

func sweepObserve(removed []string) {
	wsSwept.Add(float64(len(removed)))
}

var _ worker.Worker = &metricsWorker{}

type metricsWorker struct {
	worker.Worker
}

func newMetricsWorker(w worker.Worker) worker.Worker {
	return &metricsWorker{Worker: w}
}

func (w *metricsWorker) Submit(ctx context.Context, req *worker.Request) <-chan worker.Response {
	execInFlight.Inc()
	rtCh := w.Worker.Submit(ctx, req)
	ch := make(chan worker.Response, 1)
	go func() {
		rt := <-rtCh
		execInFlight.Dec()
		ch <- rt
	}()
	return ch
}

var _ workspace.Store = &metricsStore{}

type metricsStore struct {
	workspace.Store
}

func newMetricsStore(s workspace.Store) workspace.Store {
	prometheus.MustRegister(newWorkspaceCollector(s))
	return &metricsStore{Store: s}
}

func (m *metricsStore) Materialize(ctx context.Context, spec workspace.Spec) (*workspace.Workspace, error) {
	w, err := m.Store.Materialize(ctx, spec)
	if err != nil {
		var werr *workspace.Error
		if errors.As(err, &werr) {
			wsError.Inc()
		}
		return nil, err
	}
	wsMaterialized.WithLabelValues(spec.Mode.String()).Inc()
	return w, nil
}

var _ prometheus.Collector = &workspaceCollector{}

// workspaceCollector reports the workspaces currently on disk at scrape time
type workspaceCollector struct {
	store   workspace.Store
	current *prometheus.Desc
}

func newWorkspaceCollector(s workspace.Store) *workspaceCollector {
	return &workspaceCollector{
		store: s,
		current: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, workspaceSubsystem, "current_total"),
			"Number of workspaces currently under the root", nil, nil,
		),
	}
}

// Collect implements prometheus.Collector.
func (c *workspaceCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.current, prometheus.GaugeValue, float64(len(c.store.List())),
	)
}

// Describe implements prometheus.Collector.
func (c *workspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}
