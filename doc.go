/*
Package typebus routes events between loosely coupled parts of a program, based on the Go type of each event.

The [github.com/saylorsolutions/typebus/router] package has the router itself.
Routers can be configured from the environment with [github.com/saylorsolutions/typebus/config], and observed with Prometheus counters using [github.com/saylorsolutions/typebus/metrics].

The typebus command in cmd/typebus demonstrates routing, and stress tests a router from many goroutines.
*/
package typebus
