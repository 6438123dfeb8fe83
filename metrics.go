package couchbase

import (
	"github.com/hashicorp/go-metrics"
)

var (
	MetricDispatchCount      = []string{"couchbase", "dispatch", "count"}
	MetricDispatchErrorCount = []string{"couchbase", "dispatch", "error", "count"}
	MetricDispatchLatency    = []string{"couchbase", "dispatch", "latency"}
	MetricLocateNoNodeCount  = []string{"couchbase", "locate", "no_node", "count"}
	MetricNodePoolCount      = []string{"couchbase", "node", "pool", "count"}
)

type TelemetryLabel string

var (
	LabelService TelemetryLabel = "service"
	LabelNode    TelemetryLabel = "node"
	LabelError   TelemetryLabel = "error"
	LabelOpcode  TelemetryLabel = "opcode"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}
