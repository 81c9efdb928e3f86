/*
Package observability provides tools for monitoring the workspace layer.

It includes Prometheus metrics fed by domain.LifecycleHooks, structured
logging hooks, and a helper that fans one set of events out to several
hook sets.
*/
package observability
