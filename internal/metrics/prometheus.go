package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prometheus struct {
	plansConfirmed     *prometheus.CounterVec
	assignmentsCreated prometheus.Counter
	assignmentsUpdated prometheus.Counter
	assignmentsDeleted prometheus.Counter
	validationFailures *prometheus.CounterVec
	publishFailures    *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus 创建并注册指标，reg 为 nil 时使用默认的 Registerer
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "nexus"
	}

	p := &Prometheus{
		plansConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "plans_confirmed_total",
			Help:      "Distribution plans confirmed, by mode.",
		}, []string{"mode"}),
		assignmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "assignments_created_total",
			Help:      "Assignments materialized from confirmed plans.",
		}),
		assignmentsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "assignments_updated_total",
			Help:      "Assignments edited in place.",
		}),
		assignmentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "assignments_deleted_total",
			Help:      "Assignments deleted.",
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "validation_failures_total",
			Help:      "Rejected mutations, by operation.",
		}, []string{"op"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "publish_failures_total",
			Help:      "Assignment events that could not be published, by event.",
		}, []string{"event"}),
	}

	collectors := []prometheus.Collector{
		p.plansConfirmed,
		p.assignmentsCreated,
		p.assignmentsUpdated,
		p.assignmentsDeleted,
		p.validationFailures,
		p.publishFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Prometheus) PlanConfirmed(mode string) {
	p.plansConfirmed.WithLabelValues(mode).Inc()
}

func (p *Prometheus) AssignmentsCreated(n int) {
	p.assignmentsCreated.Add(float64(n))
}

func (p *Prometheus) AssignmentUpdated() {
	p.assignmentsUpdated.Inc()
}

func (p *Prometheus) AssignmentDeleted() {
	p.assignmentsDeleted.Inc()
}

func (p *Prometheus) ValidationFailed(op string) {
	p.validationFailures.WithLabelValues(op).Inc()
}

func (p *Prometheus) PublishFailed(event string) {
	p.publishFailures.WithLabelValues(event).Inc()
}
