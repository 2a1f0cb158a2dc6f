package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fermi_notifier_build_info",
		Help: "Always 1; labels carry the binary version, commit and Go toolchain.",
	},
	[]string{"version", "commit", "go_version"},
)

func init() { register(buildInfo) }

// SetBuildInfo publishes the build labels. Call once at startup.
func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
