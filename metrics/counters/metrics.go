package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "station",
	Name:      "csms_connected",
	Help:      "1 while the websocket to the CSMS is up",
})

func ObserveConnected(connected bool) {
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
}

var callsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "calls_sent_total",
	Help:      "Outbound calls by action.",
}, []string{"action"})

var callRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "call_retries_total",
	Help:      "Outbound call retries by action.",
}, []string{"action"})

var callsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "calls_received_total",
	Help:      "Inbound calls by action.",
}, []string{"action"})

func CountCallSent(action string) {
	if len(action) == 0 {
		return
	}
	callsSent.With(prometheus.Labels{"action": action}).Inc()
}

func CountCallRetry(action string) {
	if len(action) == 0 {
		return
	}
	callRetries.With(prometheus.Labels{"action": action}).Inc()
}

func CountCallReceived(action string) {
	if len(action) == 0 {
		return
	}
	callsReceived.With(prometheus.Labels{"action": action}).Inc()
}

var activeTransactionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ocpp",
	Name:      "transactions_active",
	Help:      "Number of active transactions",
})

func ObserveTransactions(count int) {
	activeTransactionsGauge.Set(float64(count))
}

var queuedMessagesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ocpp",
	Name:      "queued_messages",
	Help:      "Messages waiting in the outbound queue.",
}, []string{"class"})

func ObserveQueued(class string, count int) {
	if len(class) == 0 {
		return
	}
	queuedMessagesGauge.With(prometheus.Labels{"class": class}).Set(float64(count))
}

var errorCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "station",
	Name:      "error_count",
	Help:      "Total number of errors by origin and type.",
}, []string{"origin", "type"})

var errorGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "station",
	Name:      "errors_today",
	Help:      "Errors observed today by origin and type.",
}, []string{"origin", "type"})

func ObserveError(origin, errorType string) {
	if len(origin) == 0 || len(errorType) == 0 {
		return
	}
	errorCounts.With(prometheus.Labels{"origin": origin, "type": errorType}).Inc()
}

func ErrorsToday(origin, errorType string, count int) {
	if len(origin) == 0 || len(errorType) == 0 {
		return
	}
	errorGauge.With(prometheus.Labels{"origin": origin, "type": errorType}).Set(float64(count))
}

var powerRateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ocpp",
	Name:      "current_power_rate",
	Help:      "Power rate on current transactions.",
}, []string{"evse_id"})

func ObservePowerRate(evseId string, power float64) {
	if len(evseId) == 0 {
		return
	}
	powerRateGauge.With(prometheus.Labels{"evse_id": evseId}).Set(power)
}
