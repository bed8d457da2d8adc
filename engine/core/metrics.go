package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsState holds the pipeline counters. All counters live on a private
// registry so embedding applications decide whether to expose them.
type MetricsState struct {
	Registry *prometheus.Registry

	ArtifactsWritten *prometheus.CounterVec
	ArtifactsFailed  *prometheus.CounterVec
	ArtifactsSkipped *prometheus.CounterVec

	MaterialCacheHits   prometheus.Counter
	MaterialCacheMisses prometheus.Counter

	ChunksSent   prometheus.Counter
	ChunkRetries prometheus.Counter

	Batches *prometheus.CounterVec

	PayloadsReceived prometheus.Counter
	PayloadsDropped  prometheus.Counter
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func newMetricsState() *MetricsState {
	m := &MetricsState{
		Registry: prometheus.NewRegistry(),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "artifacts_written_total",
			Help:      "Artifacts written to disk by kind.",
		}, []string{"kind"}),
		ArtifactsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "artifacts_failed_total",
			Help:      "Artifact writes that failed by kind.",
		}, []string{"kind"}),
		ArtifactsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "artifacts_skipped_total",
			Help:      "Artifact writes skipped because the output already existed or was in flight.",
		}, []string{"kind"}),
		MaterialCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "material_cache_hits_total",
			Help:      "Material resolutions answered from the batch cache.",
		}),
		MaterialCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "material_cache_misses_total",
			Help:      "Material resolutions that walked the parent chain.",
		}),
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "transport_chunks_sent_total",
			Help:      "Manifest chunks acknowledged by a receiver.",
		}),
		ChunkRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "transport_chunk_retries_total",
			Help:      "Manifest chunks resent after a failed probe.",
		}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "batches_total",
			Help:      "Export batches by target and result.",
		}, []string{"target", "result"}),
		PayloadsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "receiver_payloads_total",
			Help:      "Manifests reassembled by the reference receiver.",
		}),
		PayloadsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "porter",
			Name:      "receiver_payloads_dropped_total",
			Help:      "Unread manifests evicted from a full receiver backlog.",
		}),
	}
	m.Registry.MustRegister(
		m.ArtifactsWritten,
		m.ArtifactsFailed,
		m.ArtifactsSkipped,
		m.MaterialCacheHits,
		m.MaterialCacheMisses,
		m.ChunksSent,
		m.ChunkRetries,
		m.Batches,
		m.PayloadsReceived,
		m.PayloadsDropped,
	)
	return m
}

// Metrics returns the process wide metrics, creating them on first use.
func Metrics() *MetricsState {
	onceMetrics.Do(func() {
		metricsState = newMetricsState()
	})
	return metricsState
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsState) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

/**
 * @brief Serves the metrics under /metrics on addr until ctx is done.
 * @return The address actually bound, useful with port 0.
 */
func ServeMetrics(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Metrics().Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			LogError("metrics server on %s: %s", ln.Addr(), err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	LogInfo("serving metrics on http://%s/metrics", ln.Addr())
	return ln.Addr(), nil
}

// WriteSummary prints every counter that was touched, one per line, sorted by name.
func (m *MetricsState) WriteSummary(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			counter := metric.GetCounter()
			if counter == nil {
				continue
			}
			var labels []string
			for _, pair := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%-60s %g", name, counter.GetValue()))
		}
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
