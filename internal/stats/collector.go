package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a Recorder to prometheus.Collector, following the
// Describe/Collect split used by runZeroInc-conniver's TCPInfoCollector:
// a fixed set of *prometheus.Desc built once, with Collect walking live
// state and emitting one metric per populated slot per field.
type Collector struct {
	recorder *Recorder

	sendCount           *prometheus.Desc
	receiveCount        *prometheus.Desc
	sendBytes           *prometheus.Desc
	receiveBytes        *prometheus.Desc
	sendBytesCompressed *prometheus.Desc
	receiveBytesComp    *prometheus.Desc
	minSize             *prometheus.Desc
	maxSize             *prometheus.Desc
}

// NewCollector wraps r so C9's promhttp handler can expose it.
func NewCollector(r *Recorder) *Collector {
	labels := []string{"packet_id"}
	return &Collector{
		recorder:            r,
		sendCount:           prometheus.NewDesc("voxelcore_packet_send_total", "Packets sent by packet id.", labels, nil),
		receiveCount:        prometheus.NewDesc("voxelcore_packet_receive_total", "Packets received by packet id.", labels, nil),
		sendBytes:           prometheus.NewDesc("voxelcore_packet_send_bytes_total", "Uncompressed bytes sent by packet id.", labels, nil),
		receiveBytes:        prometheus.NewDesc("voxelcore_packet_receive_bytes_total", "Uncompressed bytes received by packet id.", labels, nil),
		sendBytesCompressed: prometheus.NewDesc("voxelcore_packet_send_bytes_compressed_total", "Compressed bytes sent by packet id.", labels, nil),
		receiveBytesComp:    prometheus.NewDesc("voxelcore_packet_receive_bytes_compressed_total", "Compressed bytes received by packet id.", labels, nil),
		minSize:             prometheus.NewDesc("voxelcore_packet_min_size_bytes", "Smallest observed uncompressed size by packet id.", labels, nil),
		maxSize:             prometheus.NewDesc("voxelcore_packet_max_size_bytes", "Largest observed uncompressed size by packet id.", labels, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.sendCount
	descs <- c.receiveCount
	descs <- c.sendBytes
	descs <- c.receiveBytes
	descs <- c.sendBytesCompressed
	descs <- c.receiveBytesComp
	descs <- c.minSize
	descs <- c.maxSize
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	for _, s := range c.recorder.Snapshots() {
		label := packetIDLabel(s.PacketID)
		metrics <- prometheus.MustNewConstMetric(c.sendCount, prometheus.CounterValue, float64(s.SendCount), label)
		metrics <- prometheus.MustNewConstMetric(c.receiveCount, prometheus.CounterValue, float64(s.ReceiveCount), label)
		metrics <- prometheus.MustNewConstMetric(c.sendBytes, prometheus.CounterValue, float64(s.SendUncompressed), label)
		metrics <- prometheus.MustNewConstMetric(c.receiveBytes, prometheus.CounterValue, float64(s.ReceiveUncompressed), label)
		metrics <- prometheus.MustNewConstMetric(c.sendBytesCompressed, prometheus.CounterValue, float64(s.SendCompressed), label)
		metrics <- prometheus.MustNewConstMetric(c.receiveBytesComp, prometheus.CounterValue, float64(s.ReceiveCompressed), label)
		metrics <- prometheus.MustNewConstMetric(c.minSize, prometheus.GaugeValue, float64(s.MinSize), label)
		metrics <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(s.MaxSize), label)
	}
}

func packetIDLabel(id int32) string {
	return strconv.Itoa(int(id))
}
