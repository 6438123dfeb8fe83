package couchbase_test

import (
	"errors"
	"fmt"

	"github.com/pior/couchbase"
	"github.com/pior/couchbase/buffer"
	"github.com/pior/couchbase/locate"
	"github.com/pior/couchbase/wire"
)

func ExampleNewMutationRequest() {
	req, err := couchbase.NewMutationRequest(wire.OpSubdocDictUpsert, "user::1", "default", "address.city",
		buffer.FromString(`"Montreal"`), couchbase.MutationOptions{CreatePath: true})
	if err != nil {
		panic(err)
	}
	defer req.Release()

	fmt.Println(req.PathLength(), req.Content().Len())
	// Output: 12 22
}

func ExampleNewSubdocRequest_missingPath() {
	value := buffer.FromString("1")

	_, err := couchbase.NewSubdocRequest(wire.OpSubdocCounter, "user::1", "default", nil, value)
	fmt.Println(errors.Is(err, couchbase.ErrMissingPath), value.RefCount())
	// Output: true 0
}

func ExampleParseConnectionString() {
	seeds, err := couchbase.ParseConnectionString("couchbase://node2,node1,node2")
	if err != nil {
		panic(err)
	}
	fmt.Println(seeds.Hosts())
	// Output: [node1 node2]
}

func ExampleDispatcher_Route() {
	topology := couchbase.NewStaticTopology(
		couchbase.NewClusterNode("node1", locate.KeyValue, locate.Query),
		couchbase.NewClusterNode("node2", locate.KeyValue, locate.Analytics),
	)

	dispatcher, err := couchbase.NewDispatcher(couchbase.Config{Topology: topology})
	if err != nil {
		panic(err)
	}
	defer dispatcher.Close()

	node, _ := dispatcher.Route(locate.Analytics, "")
	fmt.Println(node.Hostname())

	_, err = dispatcher.Route(locate.Search, "")
	fmt.Println(errors.Is(err, locate.ErrNoEligibleNode))
	// Output:
	// node2
	// true
}
