package couchbase

import (
	"testing"

	"github.com/pior/couchbase/locate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterNode(t *testing.T) {
	n := NewClusterNode("node1", locate.KeyValue, locate.Query)

	assert.Equal(t, "node1", n.Hostname())
	assert.True(t, n.ServiceEnabled(locate.KeyValue))
	assert.True(t, n.ServiceEnabled(locate.Query))
	assert.False(t, n.ServiceEnabled(locate.Analytics))
	assert.Equal(t, []locate.ServiceType{locate.KeyValue, locate.Query}, n.Services())
	assert.Equal(t, "node1[kv,query]", n.String())
}

func TestStaticTopology_Update(t *testing.T) {
	n1 := NewClusterNode("n1", locate.KeyValue)
	n2 := NewClusterNode("n2", locate.KeyValue)

	topo := NewStaticTopology(n1)
	before := topo.Nodes()
	require.Len(t, before, 1)

	topo.Update(n1, n2)

	assert.Len(t, before, 1, "earlier snapshot must not change")
	assert.Len(t, topo.Nodes(), 2)
}

func TestStaticTopology_Empty(t *testing.T) {
	assert.Empty(t, NewStaticTopology().Nodes())
	assert.Empty(t, (&StaticTopology{}).Nodes())
}

func TestTopologyFromSeeds(t *testing.T) {
	seeds, err := NewSeedNodes("b", "a")
	require.NoError(t, err)

	nodes := TopologyFromSeeds(seeds).Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Hostname())
	assert.True(t, nodes[0].ServiceEnabled(locate.KeyValue))
	assert.False(t, nodes[0].ServiceEnabled(locate.Query))

	nodes = TopologyFromSeeds(seeds, locate.Query).Nodes()
	assert.True(t, nodes[1].ServiceEnabled(locate.Query))
	assert.False(t, nodes[1].ServiceEnabled(locate.KeyValue))
}
