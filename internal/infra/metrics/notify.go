package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal) }

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_publish_attempts_total",
		Help: "Notification publish attempts, labeled by outcome reason.",
	},
	[]string{"reason"}, // 'ok', 'notificationtransient', 'notificationrejected', ...
)

func IncPublishAttempt(reason string) {
	if reason == "" {
		reason = "ok"
	}
	notificationsTotal.WithLabelValues(norm(reason)).Inc()
}
