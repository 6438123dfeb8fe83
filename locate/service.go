package locate

import (
	"fmt"
	"strings"
)

// ServiceType is a capability a cluster node may expose.
type ServiceType uint8

const (
	KeyValue ServiceType = iota
	View
	Query
	Search
	Analytics
	Manager
)

var serviceNames = [...]string{
	KeyValue:  "kv",
	View:      "views",
	Query:     "query",
	Search:    "search",
	Analytics: "analytics",
	Manager:   "mgmt",
}

func (s ServiceType) String() string {
	if int(s) < len(serviceNames) {
		return serviceNames[s]
	}
	return fmt.Sprintf("service(%d)", uint8(s))
}

// ParseServiceType accepts the names returned by String, case-insensitively.
func ParseServiceType(name string) (ServiceType, error) {
	for i, n := range serviceNames {
		if strings.EqualFold(n, name) {
			return ServiceType(i), nil
		}
	}
	return 0, fmt.Errorf("locate: unknown service %q", name)
}

// ServiceTypes lists every known service.
func ServiceTypes() []ServiceType {
	return []ServiceType{KeyValue, View, Query, Search, Analytics, Manager}
}

// Node is the view of a cluster member needed for routing.
type Node interface {
	ServiceEnabled(ServiceType) bool
}

// Predicate decides whether a node may serve a request.
type Predicate func(Node) bool

// ServiceEnabled returns the predicate accepting nodes that expose s.
func ServiceEnabled(s ServiceType) Predicate {
	return func(n Node) bool {
		return n.ServiceEnabled(s)
	}
}
