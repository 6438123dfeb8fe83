package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pior/couchbase"
	"github.com/pior/couchbase/buffer"
	"github.com/pior/couchbase/locate"
	"github.com/pior/couchbase/wire"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "YAML or JSON config file")
	connStr := flag.String("connect", "", "connection string, overrides the config file")
	flag.Parse()

	fileConfig := &couchbase.FileConfig{}
	if *configPath != "" {
		var err error
		fileConfig, err = couchbase.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *connStr != "" {
		fileConfig.ConnectionString = *connStr
		fileConfig.Nodes = nil
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(fileConfig.Level()).
		With().Timestamp().Logger()

	config, err := fileConfig.DispatcherConfig(&logger)
	if err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	dispatcher, err := couchbase.NewDispatcher(config)
	if err != nil {
		fmt.Printf("Failed to create dispatcher: %v\n", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	bucket := fileConfig.Bucket

	fmt.Println("Couchbase Sub-document CLI")
	fmt.Println("==========================")
	fmt.Println("Commands: nodes, route <service> [key], frame <key> <path>, get <key> <path>, set <key> <path> <json>, incr <key> <path> <delta>, delete <key> <path>, stats, quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(parts) == 0 {
			continue
		}

		command := strings.ToLower(parts[0])
		ctx := context.Background()

		switch command {
		case "nodes":
			handleNodes(config.Topology)

		case "route":
			if len(parts) < 2 || len(parts) > 3 {
				fmt.Println("Usage: route <service> [key]")
				continue
			}
			key := ""
			if len(parts) == 3 {
				key = parts[2]
			}
			handleRoute(dispatcher, parts[1], key)

		case "frame":
			if len(parts) != 3 {
				fmt.Println("Usage: frame <key> <path>")
				continue
			}
			handleFrame(bucket, parts[1], parts[2])

		case "get":
			if len(parts) != 3 {
				fmt.Println("Usage: get <key> <path>")
				continue
			}
			req, err := couchbase.NewGetRequest(parts[1], bucket, parts[2])
			handleDispatch(ctx, dispatcher, req, err)

		case "set":
			if len(parts) != 4 {
				fmt.Println("Usage: set <key> <path> <json>")
				continue
			}
			req, err := couchbase.NewMutationRequest(wire.OpSubdocDictUpsert, parts[1], bucket, parts[2],
				buffer.FromString(parts[3]), couchbase.MutationOptions{CreatePath: true})
			handleDispatch(ctx, dispatcher, req, err)

		case "incr":
			if len(parts) != 4 {
				fmt.Println("Usage: incr <key> <path> <delta>")
				continue
			}
			delta, err := strconv.ParseInt(parts[3], 10, 64)
			if err != nil {
				fmt.Printf("Invalid delta: %v\n", err)
				continue
			}
			req, err := couchbase.NewCounterRequest(parts[1], bucket, parts[2], delta, couchbase.MutationOptions{})
			handleDispatch(ctx, dispatcher, req, err)

		case "delete", "del":
			if len(parts) != 3 {
				fmt.Println("Usage: delete <key> <path>")
				continue
			}
			req, err := couchbase.NewDeleteRequest(parts[1], bucket, parts[2], couchbase.MutationOptions{})
			handleDispatch(ctx, dispatcher, req, err)

		case "stats":
			handleStats(dispatcher)

		case "help":
			fmt.Println("Commands:")
			fmt.Println("  nodes                      - List the topology")
			fmt.Println("  route <service> [key]      - Show the node chosen for a service")
			fmt.Println("  frame <key> <path>         - Hex dump a sub-document get frame")
			fmt.Println("  get <key> <path>           - Fetch a path")
			fmt.Println("  set <key> <path> <json>    - Upsert a path")
			fmt.Println("  incr <key> <path> <delta>  - Add delta to a counter")
			fmt.Println("  delete <key> <path>        - Remove a path")
			fmt.Println("  stats                      - Show dispatch statistics")
			fmt.Println("  quit                       - Exit the CLI")

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", command)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

func handleNodes(topology couchbase.Topology) {
	for _, n := range topology.Nodes() {
		fmt.Printf("  %v\n", n)
	}
}

func handleRoute(dispatcher *couchbase.Dispatcher, serviceName, key string) {
	service, err := locate.ParseServiceType(serviceName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	node, err := dispatcher.Route(service, key)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s -> %s\n", service, node.Hostname())
}

func handleFrame(bucket, key, path string) {
	req, err := couchbase.NewGetRequest(key, bucket, path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer req.Release()

	frame, err := req.Frame(0, 1)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	data, err := wire.AppendRequest(nil, frame)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Print(hex.Dump(data))
}

func handleDispatch(ctx context.Context, dispatcher *couchbase.Dispatcher, req *couchbase.SubdocRequest, err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	start := time.Now()
	resp, err := dispatcher.Dispatch(ctx, req)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}

	if len(resp.Value) > 0 {
		fmt.Printf("Value: %s (took %v)\n", string(resp.Value), duration)
	} else {
		fmt.Printf("OK cas=%d (took %v)\n", resp.CAS, duration)
	}
}

func handleStats(dispatcher *couchbase.Dispatcher) {
	s := dispatcher.Stats()
	fmt.Printf("Dispatched: %d  Completed: %d  Failed: %d  No eligible node: %d  Breaker open: %d\n",
		s.Dispatched, s.Completed, s.Failed, s.NoEligibleNode, s.BreakerOpen)

	for i, stat := range dispatcher.NodeStats() {
		fmt.Printf("Node %d (%s):\n", i+1, stat.Hostname)
		fmt.Printf("  Total Endpoints: %d\n", stat.TotalEndpoints)
		fmt.Printf("  Idle Endpoints: %d\n", stat.IdleEndpoints)
		fmt.Printf("  Acquired Endpoints: %d\n", stat.AcquiredEndpoints)
		fmt.Printf("  Circuit Breaker: %s\n", stat.CircuitBreakerState)
		fmt.Println()
	}
}
