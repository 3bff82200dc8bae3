// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Collector
// =============================================================================

// Collector records workflow, graph node, tool and agent metrics.
type Collector struct {
	// Workflow runner metrics
	workflowRunsTotal   *prometheus.CounterVec
	workflowRunDuration *prometheus.HistogramVec

	// Graph node metrics
	nodeExecutionsTotal   *prometheus.CounterVec
	nodeExecutionDuration *prometheus.HistogramVec

	// Tool metrics
	toolExecutionsTotal   *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	// Agent metrics
	agentProcessTotal    *prometheus.CounterVec
	agentProcessDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

// NewCollector registers all metrics on reg. A nil reg gets a fresh registry so
// that several collectors can coexist in one process (tests, embedded runners).
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		registerer: reg,
		logger:     logger.With(zap.String("component", "metrics")),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}

	factory := promauto.With(reg)

	c.workflowRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"workflow", "status"},
	)

	c.workflowRunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"workflow"},
	)

	c.nodeExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_node_executions_total",
			Help:      "Total number of graph node executions",
		},
		[]string{"node", "status"},
	)

	c.nodeExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_node_duration_seconds",
			Help:      "Graph node execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	c.toolExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	c.toolExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	c.agentProcessTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_process_total",
			Help:      "Total number of agent process calls",
		},
		[]string{"agent", "status"},
	)

	c.agentProcessDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_process_duration_seconds",
			Help:      "Agent process duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 Recording
// =============================================================================

// RecordWorkflowRun records one Runner.Run call.
func (c *Collector) RecordWorkflowRun(workflow, status string, duration time.Duration) {
	c.workflowRunsTotal.WithLabelValues(workflow, status).Inc()
	c.workflowRunDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordNode records one graph node execution.
func (c *Collector) RecordNode(node, status string, duration time.Duration) {
	c.nodeExecutionsTotal.WithLabelValues(node, status).Inc()
	c.nodeExecutionDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordToolExecution records one tool execution.
func (c *Collector) RecordToolExecution(tool, status string, duration time.Duration) {
	c.toolExecutionsTotal.WithLabelValues(tool, status).Inc()
	c.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordAgentProcess records one agent Process call.
func (c *Collector) RecordAgentProcess(agent, status string, duration time.Duration) {
	c.agentProcessTotal.WithLabelValues(agent, status).Inc()
	c.agentProcessDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// Handler exposes the collector's registry in the Prometheus text format.
// Falls back to the default gatherer when the registerer cannot gather.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
