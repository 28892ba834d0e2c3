package updater

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the counters the manager increments as it drives
// reconciliation. They are purely observational; nothing in the session
// loop reads them back.
type Metrics struct {
	PollsSent       prometheus.Counter
	IBLTsSent       prometheus.Counter
	DecodeFailures  prometheus.Counter
	ContentAdded    prometheus.Counter
	ContentRejected prometheus.Counter
	PeersTimedOut   prometheus.Counter
}

// NewMetrics constructs a fresh, unregistered set of counters under the
// given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PollsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_sent_total",
			Help:      "Number of PollContent messages sent.",
		}),
		IBLTsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iblts_sent_total",
			Help:      "Number of IBLT messages sent.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iblt_decode_failures_total",
			Help:      "Number of reconciliation rounds abandoned due to IBLT decode failure.",
		}),
		ContentAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_added_total",
			Help:      "Number of content records accepted into the store.",
		}),
		ContentRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_rejected_total",
			Help:      "Number of content records rejected by the store.",
		}),
		PeersTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_expectations_timed_out_total",
			Help:      "Number of per-peer expectations that expired before a reply arrived.",
		}),
	}
}

// Register adds every counter to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PollsSent, m.IBLTsSent, m.DecodeFailures,
		m.ContentAdded, m.ContentRejected, m.PeersTimedOut,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
