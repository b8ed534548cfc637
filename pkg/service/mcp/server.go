package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/server"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	serverName    = "lifesync"
	serverVersion = "0.1.0"
)

type listEntriesParams struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of entries, newest first. 0 returns all entries"`
	Type  string `json:"type,omitempty" jsonschema:"Only return entries of this type: entry or daily_report"`
}

type statsParams struct{}

type listGoalsParams struct {
	Status string `json:"status,omitempty" jsonschema:"Only return goals with this status: active, completed or dropped"`
}

type addGoalParams struct {
	Text     string `json:"text" jsonschema:"What the goal is about"`
	Deadline string `json:"deadline" jsonschema:"Deadline date in YYYY-MM-DD format"`
}

// NewServer exposes read access to the journal and goal creation as MCP tools
func NewServer(uc *journal.UseCase) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_entries",
		Description: "List journal entries and daily reports, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params listEntriesParams) (*mcp.CallToolResult, any, error) {
		if params.Type != "" {
			if err := model.EntryType(params.Type).Validate(); err != nil {
				return errorResult(err), nil, nil
			}
		}

		entries, err := uc.Timeline(ctx, 0)
		if err != nil {
			return errorResult(err), nil, nil
		}

		filtered := make([]*model.MemoryEntry, 0, len(entries))
		for _, e := range entries {
			if params.Type != "" && e.Type.Partition() != model.EntryType(params.Type).Partition() {
				continue
			}
			filtered = append(filtered, e)
			if params.Limit > 0 && len(filtered) >= params.Limit {
				break
			}
		}
		return jsonResult(map[string]any{"entries": filtered, "total": len(filtered)})
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "journal_stats",
		Description: "Aggregate statistics of the journal: mood distribution, top tags, streaks and goal counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params statsParams) (*mcp.CallToolResult, any, error) {
		stats, err := uc.Stats(ctx)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(stats)
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_goals",
		Description: "List goals ordered by deadline",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params listGoalsParams) (*mcp.CallToolResult, any, error) {
		goals, err := uc.ListGoals(ctx, model.GoalStatus(params.Status))
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(map[string]any{"goals": goals})
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_goal",
		Description: "Add a new active goal",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params addGoalParams) (*mcp.CallToolResult, any, error) {
		goal, err := uc.AddGoal(ctx, params.Text, params.Deadline)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(goal)
	})

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

// errorResult reports a failure to the model instead of the protocol layer
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// Handler serves the MCP server over streamable HTTP
func Handler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)
}

// Serve runs the MCP server on the given transport until ctx is done. addr is
// only used by the http transport.
func Serve(ctx context.Context, s *mcp.Server, transport, addr string) error {
	switch transport {
	case TransportStdio, "":
		logging.From(ctx).Info("serving MCP over stdio")
		if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil {
			return goerr.Wrap(err, "MCP stdio server failed")
		}
		return nil

	case TransportHTTP:
		return server.Serve(ctx, addr, Handler(s))

	default:
		return goerr.New("unsupported transport",
			goerr.V("transport", transport),
			goerr.V("supported", []string{TransportStdio, TransportHTTP}))
	}
}
