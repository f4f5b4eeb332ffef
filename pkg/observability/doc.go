/*
Package observability exposes the bot's Prometheus metrics.

Metrics are registered on an injected prometheus.Registerer and fed by the
domain.LifecycleHooks of the machine, the session Manager and the dispatcher, and
by the instrumented store middleware.
*/
package observability
