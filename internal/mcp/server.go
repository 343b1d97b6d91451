package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("hvault", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("hvault health data vault. Query normalized health metrics, sleep sessions, workouts, and the sync log."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetLatestMetrics, Handler: h.getLatestMetrics},
		server.ServerTool{Tool: toolGetMetricRange, Handler: h.getMetricRange},
		server.ServerTool{Tool: toolGetSleep, Handler: h.getSleep},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetSyncLog, Handler: h.getSyncLog},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resLatestMetrics, Handler: h.latestMetricsResource},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkoutsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resLatestMetrics = mcp.NewResource(
	"hvault://latest_metrics",
	"Latest Metrics",
	mcp.WithResourceDescription("Most recent reading of every stored health metric"),
	mcp.WithMIMEType("application/json"),
)

var resRecentWorkouts = mcp.NewResource(
	"hvault://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
