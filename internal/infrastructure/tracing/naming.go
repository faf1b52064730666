package tracing

import (
	"fmt"
	"sort"
	"strings"
)

// RouteParam is one key/value pair of the matched route's metadata.
type RouteParam struct {
	Key   string
	Value string
}

// Route parameter keys with special meaning for naming.
const (
	routeKeyController = "controller"
	routeKeyAction     = "action"
	routeKeyPage       = "page"
	// area groups routes internally and never appears in transaction names
	routeKeyArea = "area"
)

// RouteName derives a transaction name from route metadata.
//
//	{controller: Order, action: Get, id: 5} -> "Order/Get {id}"
//	{controller: Order}                     -> "Order"
//	{page: /Index}                          -> "/Index"
//	{}                                      -> ""
//
// Only parameter keys beyond controller/action are listed, never their
// values, sorted alphabetically without regard to case.
func RouteName(params []RouteParam) string {
	if len(params) == 0 {
		return ""
	}

	var controller, action, page string
	extras := make([]string, 0, len(params))
	for _, p := range params {
		switch p.Key {
		case routeKeyController:
			controller = p.Value
		case routeKeyAction:
			action = p.Value
		case routeKeyPage:
			page = p.Value
		case routeKeyArea:
		default:
			extras = append(extras, p.Key)
		}
	}

	if controller == "" {
		return page
	}

	name := controller
	if action != "" {
		name += "/" + action
	}
	if len(params) > 2 && len(extras) > 0 {
		sort.Slice(extras, func(i, j int) bool {
			return strings.ToLower(extras[i]) < strings.ToLower(extras[j])
		})
		name += " {" + strings.Join(extras, "/") + "}"
	}
	return name
}

// NormalizeProtocol maps a raw protocol string to its canonical family name.
// All HTTP variants collapse to "HTTP"; anything else passes through.
func NormalizeProtocol(proto string) string {
	if proto == "" {
		return ""
	}
	if strings.HasPrefix(proto, "HTTP") {
		return "HTTP"
	}
	return proto
}

// HTTPVersion extracts the version string from a raw protocol value.
func HTTPVersion(proto string) string {
	switch proto {
	case "":
		return "unknown"
	case "HTTP/1.0":
		return "1.0"
	case "HTTP/1.1":
		return "1.1"
	case "HTTP/2.0":
		return "2.0"
	default:
		return strings.TrimPrefix(proto, "HTTP/")
	}
}

// ResultForStatus maps a normalized protocol family and response status to
// the coarse transaction result, e.g. "HTTP 2xx".
func ResultForStatus(family string, status int) string {
	if family != "HTTP" || status < 100 {
		return ""
	}
	return fmt.Sprintf("HTTP %dxx", status/100)
}

// Outcome is the coarse success/failure classification of a transaction.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// OutcomeForStatus classifies a server-side response status. Only server
// errors count as failures; client errors are the caller's problem.
func OutcomeForStatus(status int) Outcome {
	switch {
	case status < 100:
		return OutcomeUnknown
	case status >= 500:
		return OutcomeFailure
	default:
		return OutcomeSuccess
	}
}
