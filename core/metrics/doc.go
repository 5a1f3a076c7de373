// Package metrics defines the recorder interfaces the engine reports
// through. Sinks such as the Prometheus and Influx implementations under
// infra/metrics register themselves with the factory here and can be
// combined with NewMultiSink; the NewSink helper returns a MultiSink
// automatically when more than one sink is configured. The cost subpackage
// holds the daily charging cost KPI store.
package metrics
