package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from init; nothing is exported until MustRegister.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister adds every queued collector to the default registry. Safe to call repeatedly.
func MustRegister() {
	registerOnce.Do(func() {
		for _, c := range pending {
			prometheus.MustRegister(c)
		}
	})
}

// Handler serves the default registry, registering collectors first if needed.
func Handler() http.Handler {
	MustRegister()
	return promhttp.Handler()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
