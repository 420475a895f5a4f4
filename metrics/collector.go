// Package metrics exports tiercache statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unkn0wn-root/tiercache"
)

// StatsSource is satisfied by *tiercache.Cache[V] for any V.
type StatsSource interface {
	Stats() tiercache.Stats
}

// Collector reads a fresh snapshot on every scrape; it keeps no state of its own.
type Collector struct {
	src StatsSource

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	sets        *prometheus.Desc
	deletes     *prometheus.Desc
	evictions   *prometheus.Desc
	errors      *prometheus.Desc
	slowOps     *prometheus.Desc
	compressed  *prometheus.Desc
	bytes       *prometheus.Desc
	hitRate     *prometheus.Desc
	ratio       *prometheus.Desc
	l1Entries   *prometheus.Desc
	l1Bytes     *prometheus.Desc
	trackedTags *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds descriptors under namespace (e.g. "myapp"); constLabels
// are attached to every series, typically {"cache": "users"}.
func NewCollector(src StatsSource, namespace string, constLabels prometheus.Labels) *Collector {
	d := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "tiercache", name), help, labels, constLabels)
	}
	return &Collector{
		src:         src,
		hits:        d("hits_total", "Cache hits by tier.", "tier"),
		misses:      d("misses_total", "Cache misses by tier; tier=\"all\" counts reads that missed every tier.", "tier"),
		sets:        d("sets_total", "Successful writes."),
		deletes:     d("deletes_total", "Keys removed by delete and invalidation."),
		evictions:   d("evictions_total", "L1 entries evicted by capacity pressure."),
		errors:      d("errors_total", "Swallowed runtime failures."),
		slowOps:     d("slow_operations_total", "Operations slower than the configured threshold."),
		compressed:  d("compressed_entries_total", "Shared-tier writes stored compressed."),
		bytes:       d("compression_bytes_total", "Payload bytes of compressed writes, before and after compression.", "stage"),
		hitRate:     d("hit_rate_percent", "Hit rate by tier.", "tier"),
		ratio:       d("compression_ratio", "Compressed bytes over uncompressed bytes; 1 when nothing was compressed."),
		l1Entries:   d("l1_entries", "Entries resident in L1."),
		l1Bytes:     d("l1_bytes", "Estimated bytes resident in L1."),
		trackedTags: d("tags", "Tags tracked by the local tag index."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.hits, c.misses, c.sets, c.deletes, c.evictions, c.errors, c.slowOps,
		c.compressed, c.bytes, c.hitRate, c.ratio, c.l1Entries, c.l1Bytes, c.trackedTags,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.hits, s.L1Hits, "l1")
	counter(c.hits, s.L2Hits, "shared")
	counter(c.misses, s.L1Misses, "l1")
	counter(c.misses, s.L2Misses, "shared")
	counter(c.misses, s.Misses, "all")
	counter(c.sets, s.Sets)
	counter(c.deletes, s.Deletes)
	counter(c.evictions, s.Evictions)
	counter(c.errors, s.Errors)
	counter(c.slowOps, s.SlowOps)
	counter(c.compressed, s.CompressedEntries)
	counter(c.bytes, s.UncompressedBytes, "original")
	counter(c.bytes, s.CompressedBytes, "stored")

	gauge(c.hitRate, s.HitRate, "all")
	gauge(c.hitRate, s.L1HitRate, "l1")
	gauge(c.hitRate, s.L2HitRate, "shared")
	gauge(c.ratio, s.CompressionRatio)
	gauge(c.l1Entries, float64(s.L1Entries))
	gauge(c.l1Bytes, float64(s.L1Bytes))
	gauge(c.trackedTags, float64(s.Tags))
}

// Handler serves the given collectors on a private registry, for processes that
// do not already expose /metrics.
func Handler(cs ...prometheus.Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}
