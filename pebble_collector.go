package pyemma

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DBCollector surfaces the storage health of one open container:
// compaction backlog, memtable pressure and WAL volume.
type DBCollector struct {
	c *Container

	compactionCount *prometheus.Desc
	compactionDebt  *prometheus.Desc
	memtableSize    *prometheus.Desc
	memtableCount   *prometheus.Desc
	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
	diskUsage       *prometheus.Desc
}

func NewDBCollector(c *Container) *DBCollector {
	labels := prometheus.Labels{"path": c.path}
	return &DBCollector{
		c: c,
		compactionCount: prometheus.NewDesc(
			"pyemma_container_compaction_count_total",
			"Total number of compactions performed",
			nil, labels,
		),
		compactionDebt: prometheus.NewDesc(
			"pyemma_container_compaction_estimated_debt_bytes",
			"Bytes that need compacting to reach a stable state",
			nil, labels,
		),
		memtableSize: prometheus.NewDesc(
			"pyemma_container_memtable_size_bytes",
			"Current size of the memtables",
			nil, labels,
		),
		memtableCount: prometheus.NewDesc(
			"pyemma_container_memtable_count",
			"Current count of memtables",
			nil, labels,
		),
		walFiles: prometheus.NewDesc(
			"pyemma_container_wal_files",
			"Number of live WAL files",
			nil, labels,
		),
		walSize: prometheus.NewDesc(
			"pyemma_container_wal_size_bytes",
			"Size of live WAL data",
			nil, labels,
		),
		walBytesWritten: prometheus.NewDesc(
			"pyemma_container_wal_bytes_written_total",
			"Physical bytes written to the WAL",
			nil, labels,
		),
		diskUsage: prometheus.NewDesc(
			"pyemma_container_disk_usage_bytes",
			"Total disk space used by the container",
			nil, labels,
		),
	}
}

func (pc *DBCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.compactionCount
	ch <- pc.compactionDebt
	ch <- pc.memtableSize
	ch <- pc.memtableCount
	ch <- pc.walFiles
	ch <- pc.walSize
	ch <- pc.walBytesWritten
	ch <- pc.diskUsage
}

func (pc *DBCollector) Collect(ch chan<- prometheus.Metric) {
	if pc.c.db == nil {
		return
	}
	m := pc.c.db.Metrics()
	ch <- prometheus.MustNewConstMetric(pc.compactionCount, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(pc.compactionDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(pc.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(pc.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))
	ch <- prometheus.MustNewConstMetric(pc.walFiles, prometheus.GaugeValue, float64(m.WAL.Files))
	ch <- prometheus.MustNewConstMetric(pc.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(pc.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))
	ch <- prometheus.MustNewConstMetric(pc.diskUsage, prometheus.GaugeValue, float64(m.DiskSpaceUsage()))
}
