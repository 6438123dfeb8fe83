package couchbase

import (
	"strings"
	"sync/atomic"

	"github.com/pior/couchbase/locate"
)

// Node is a cluster member as seen by the dispatcher.
type Node interface {
	locate.Node

	// Hostname identifies the node; endpoints are pooled per hostname.
	Hostname() string
}

// ClusterNode is an immutable Node with a fixed set of services.
type ClusterNode struct {
	hostname string
	services uint32
}

var _ Node = (*ClusterNode)(nil)

func NewClusterNode(hostname string, services ...locate.ServiceType) *ClusterNode {
	n := &ClusterNode{hostname: hostname}
	for _, s := range services {
		n.services |= 1 << s
	}
	return n
}

func (n *ClusterNode) Hostname() string {
	return n.hostname
}

func (n *ClusterNode) ServiceEnabled(s locate.ServiceType) bool {
	return n.services&(1<<s) != 0
}

// Services lists the enabled services.
func (n *ClusterNode) Services() []locate.ServiceType {
	var out []locate.ServiceType
	for _, s := range locate.ServiceTypes() {
		if n.ServiceEnabled(s) {
			out = append(out, s)
		}
	}
	return out
}

func (n *ClusterNode) String() string {
	names := make([]string, 0, 6)
	for _, s := range n.Services() {
		names = append(names, s.String())
	}
	return n.hostname + "[" + strings.Join(names, ",") + "]"
}

// Topology hands out snapshots of the current cluster nodes. A snapshot must
// not be modified after it is returned.
type Topology interface {
	Nodes() []Node
}

// StaticTopology is a Topology replaced wholesale by Update.
type StaticTopology struct {
	nodes atomic.Pointer[[]Node]
}

var _ Topology = (*StaticTopology)(nil)

func NewStaticTopology(nodes ...Node) *StaticTopology {
	t := &StaticTopology{}
	t.Update(nodes...)
	return t
}

// TopologyFromSeeds builds one node per seed host with the given services,
// or key-value only when none are given.
func TopologyFromSeeds(seeds *SeedNodes, services ...locate.ServiceType) *StaticTopology {
	if len(services) == 0 {
		services = []locate.ServiceType{locate.KeyValue}
	}
	hosts := seeds.Hosts()
	nodes := make([]Node, len(hosts))
	for i, h := range hosts {
		nodes[i] = NewClusterNode(h, services...)
	}
	return NewStaticTopology(nodes...)
}

// Nodes returns the current snapshot.
func (t *StaticTopology) Nodes() []Node {
	if p := t.nodes.Load(); p != nil {
		return *p
	}
	return nil
}

// Update installs a new snapshot. Callers holding the previous one keep a
// consistent view.
func (t *StaticTopology) Update(nodes ...Node) {
	snapshot := make([]Node, len(nodes))
	copy(snapshot, nodes)
	t.nodes.Store(&snapshot)
}
