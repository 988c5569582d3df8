package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider owns the domain-level counters that the generic HTTP middleware
// cannot derive, such as login outcomes.
type Provider struct {
	logins *prometheus.CounterVec
}

// Attach registers the domain metrics on reg; nil reg means the default
// registerer. Re-attaching to the same registerer reuses the existing
// collectors.
func Attach(reg prometheus.Registerer) (*Provider, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts partitioned by outcome",
	}, []string{"outcome"})

	if err := reg.Register(logins); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		logins = already.ExistingCollector.(*prometheus.CounterVec)
	}

	return &Provider{logins: logins}, nil
}

// ObserveLogin records one login attempt outcome (success, invalid, locked).
func (p *Provider) ObserveLogin(outcome string) {
	if p == nil || p.logins == nil {
		return
	}
	p.logins.WithLabelValues(outcome).Inc()
}
