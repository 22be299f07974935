/*
Package metrics provides Prometheus metrics collection and exposition for
atomstore.

Metrics cover the commit pipeline (apply latency, outcome counts), the
query engine (per-strategy latency and volume), and authorization (denial
counts by right). Gauges for the two derived indexes' entry counts are
registered, but nothing in atomstore sets them. They're registered against the default Prometheus registry at
package init and exposed by whatever external HTTP layer embeds
metrics.Handler().

A HealthChecker is also provided for lightweight component liveness
tracking, independent of the Prometheus registry.
*/
package metrics
