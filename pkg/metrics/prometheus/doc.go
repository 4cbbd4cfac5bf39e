// Package prometheus implements the Metrics interfaces declared by pkg/sharkclient,
// pkg/placement, and pkg/fanout using prometheus/client_golang, registering each
// constructor with pkg/metrics on import so that importing this package for its
// side effect (a blank import from pkg/registry) is enough to wire every collector.
package prometheus
