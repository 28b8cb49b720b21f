package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so that components can be tested for the
// reports they make.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way that should be addressed.
	//
	// The `id` names the **component** that broke, not the line of code. A failed request
	// while reading a film's stats fragment is reported as `client.film-stats`, the http
	// detail goes into the params or a wrapped error.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	//
	// Ids are short, ScopedAPI carries the package level namespace.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not necessarily broken but may deserve a look,
	// like a poster entry without a film id.
	ReportWarning(id string, params ...any)

	// ReportDebug reports debug information that is dropped unless verbose output is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the count of an event at the current time. Counts are points of
	// data over time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI attaches a namespace to every report made through it, like a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
