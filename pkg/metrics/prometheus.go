package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promCollector implements Collector on a Prometheus registry.
type promCollector struct {
	fillBytes   prometheus.Counter
	readBytes   prometheus.Counter
	rewinds     prometheus.Counter
	seeks       *prometheus.CounterVec
	waitSeconds prometheus.Histogram
	cachedBytes prometheus.Gauge
	streamSize  prometheus.Gauge
}

// NewPrometheus creates a Collector registered on reg. Metric names are
// prefixed "membuf_".
func NewPrometheus(reg prometheus.Registerer) Collector {
	c := &promCollector{
		fillBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "membuf_fill_bytes_total",
			Help: "Bytes pulled from the source into the buffer.",
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "membuf_read_bytes_total",
			Help: "Bytes delivered to the reader.",
		}),
		rewinds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "membuf_rewinds_total",
			Help: "Producer restarts caused by seeks into unbuffered data.",
		}),
		seeks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membuf_seeks_total",
			Help: "Seek requests by how they were satisfied.",
		}, []string{"kind"}),
		waitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "membuf_reader_wait_seconds",
			Help:    "Time readers spent blocked waiting for data.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		cachedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "membuf_cached_bytes",
			Help: "Current prebuffer frontier in bytes.",
		}),
		streamSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "membuf_stream_size_bytes",
			Help: "Total size of the stream being buffered.",
		}),
	}
	reg.MustRegister(
		c.fillBytes, c.readBytes, c.rewinds, c.seeks,
		c.waitSeconds, c.cachedBytes, c.streamSize,
	)
	return c
}

func (c *promCollector) ObserveFill(bytes int) { c.fillBytes.Add(float64(bytes)) }

func (c *promCollector) ObserveRead(bytes int) { c.readBytes.Add(float64(bytes)) }

func (c *promCollector) ObserveWait(d time.Duration) { c.waitSeconds.Observe(d.Seconds()) }

func (c *promCollector) ObserveSeek(kind SeekKind) { c.seeks.WithLabelValues(string(kind)).Inc() }

func (c *promCollector) ObserveRewind() { c.rewinds.Inc() }

func (c *promCollector) SetCachedBytes(n uint64) { c.cachedBytes.Set(float64(n)) }

func (c *promCollector) SetStreamSize(n uint64) { c.streamSize.Set(float64(n)) }
