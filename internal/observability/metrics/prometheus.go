//revive:disable:var-naming
//revive:disable:exported
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes application metrics and can be injected into the
// command, transport and node layers. It implements command.Metrics,
// clustergrpc.Metrics and service.Metrics through method set
// compatibility, without importing those packages.
type Prometheus struct {
	commandDuration     *prometheus.HistogramVec
	commandTotal        *prometheus.CounterVec
	clientRPCDuration   *prometheus.HistogramVec
	clientFailoverTotal *prometheus.CounterVec
	watchDatatypeSize   *prometheus.GaugeVec
	nodeRequestDuration *prometheus.HistogramVec
	nodeRequestTotal    *prometheus.CounterVec
	nodeStoreItems      *prometheus.GaugeVec
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "riakwire",
				Subsystem: "command",
				Name:      "duration_seconds",
				Help:      "End-to-end duration of client commands, including conversion of the reply.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
			},
			[]string{"command", "result"},
		),
		commandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "riakwire",
				Subsystem: "command",
				Name:      "total",
				Help:      "Client command outcomes (ok, error, type_mismatch).",
			},
			[]string{"command", "result"},
		),
		clientRPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "riakwire",
				Subsystem: "client",
				Name:      "rpc_duration_seconds",
				Help:      "Duration of outbound frame RPCs by node, operation and gRPC status code.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"target", "op", "code"},
		),
		clientFailoverTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "riakwire",
				Subsystem: "client",
				Name:      "failover_total",
				Help:      "Operations retried on another node after the previous one failed to answer.",
			},
			[]string{"target"},
		),
		watchDatatypeSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "riakwire",
				Subsystem: "watch",
				Name:      "datatype_size",
				Help:      "Last observed value of a watched counter, or element count of a watched set or map.",
			},
			[]string{"location", "datatype"},
		),
		nodeRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "riakwire",
				Subsystem: "node",
				Name:      "request_duration_seconds",
				Help:      "Time spent answering a request frame on the development node.",
				Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
			},
			[]string{"node_id", "message"},
		),
		nodeRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "riakwire",
				Subsystem: "node",
				Name:      "request_total",
				Help:      "Request frames answered by the development node, by message and result.",
			},
			[]string{"node_id", "message", "result"},
		),
		nodeStoreItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "riakwire",
				Subsystem: "node",
				Name:      "store_items",
				Help:      "Number of datatypes held by the development node.",
			},
			[]string{"node_id"},
		),
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	if err := registerOrReuseHistogramVec(reg, &m.commandDuration); err != nil {
		return fmt.Errorf("register command duration histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.commandTotal); err != nil {
		return fmt.Errorf("register command counter: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.clientRPCDuration); err != nil {
		return fmt.Errorf("register client rpc histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.clientFailoverTotal); err != nil {
		return fmt.Errorf("register client failover counter: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.watchDatatypeSize); err != nil {
		return fmt.Errorf("register watch size gauge: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.nodeRequestDuration); err != nil {
		return fmt.Errorf("register node request histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.nodeRequestTotal); err != nil {
		return fmt.Errorf("register node request counter: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.nodeStoreItems); err != nil {
		return fmt.Errorf("register node store gauge: %w", err)
	}
	return nil
}

func registerOrReuseHistogramVec(reg prometheus.Registerer, c **prometheus.HistogramVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseCounterVec(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseGaugeVec(reg prometheus.Registerer, c **prometheus.GaugeVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func (m *Prometheus) ObserveCommandDuration(command string, d time.Duration, ok bool) {
	m.commandDuration.WithLabelValues(command, resultString(ok)).Observe(d.Seconds())
}

func (m *Prometheus) IncCommandResult(command, result string) {
	m.commandTotal.WithLabelValues(command, result).Inc()
}

func (m *Prometheus) ObserveClientRPCDuration(target, op string, d time.Duration, code string) {
	m.clientRPCDuration.WithLabelValues(target, op, code).Observe(d.Seconds())
}

func (m *Prometheus) IncClientFailover(target string) {
	m.clientFailoverTotal.WithLabelValues(target).Inc()
}

func (m *Prometheus) SetWatchedSize(location, datatype string, size int64) {
	m.watchDatatypeSize.WithLabelValues(location, datatype).Set(float64(size))
}

func (m *Prometheus) ObserveNodeRequestDuration(nodeID, message string, d time.Duration) {
	m.nodeRequestDuration.WithLabelValues(nodeID, message).Observe(d.Seconds())
}

func (m *Prometheus) IncNodeRequest(nodeID, message, result string) {
	m.nodeRequestTotal.WithLabelValues(nodeID, message, result).Inc()
}

func (m *Prometheus) SetNodeStoreItems(nodeID string, n int) {
	m.nodeStoreItems.WithLabelValues(nodeID).Set(float64(n))
}

func resultString(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
