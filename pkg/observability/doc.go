/*
Package observability exposes Prometheus metrics for machine execution.

Metrics plug into the engine through domain.LifecycleHooks, so every step and
halt is counted without the engine knowing about Prometheus. Service-level
operations (create, step, run, reset, delete) are counted separately with
their result.
*/
package observability
