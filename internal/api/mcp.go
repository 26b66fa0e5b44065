package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/kabar/internal/corpus"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Corpus  *corpus.Service
	Model   ModelManager
	Version string
}

// NewMCPServer creates an MCP server with the kabar tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"kabar",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("kabar classifies Indonesian news articles into categories and learns from every labeled article."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("classify_news",
			mcp.WithDescription("Predict the category of a news article without storing it."),
			mcp.WithString("title", mcp.Description("Article title")),
			mcp.WithString("body", mcp.Description("Article body"), mcp.Required()),
		),
		mcpClassify(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_news",
			mcp.WithDescription("Classify a news article, store it with the predicted category, and retrain."),
			mcp.WithString("title", mcp.Description("Article title")),
			mcp.WithString("body", mcp.Description("Article body"), mcp.Required()),
		),
		mcpSubmit(deps),
	)

	s.AddTool(
		mcp.NewTool("add_labeled_news",
			mcp.WithDescription("Store a news article under a known category and retrain."),
			mcp.WithString("title", mcp.Description("Article title")),
			mcp.WithString("body", mcp.Description("Article body"), mcp.Required()),
			mcp.WithString("category", mcp.Description("One of the configured categories"), mcp.Required()),
		),
		mcpAddLabeled(deps),
	)

	s.AddTool(
		mcp.NewTool("category_stats",
			mcp.WithDescription("Count stored articles per category, including empty categories."),
		),
		mcpCategoryStats(deps),
	)

	s.AddTool(
		mcp.NewTool("retrain_model",
			mcp.WithDescription("Retrain the classifier from the full corpus."),
		),
		mcpRetrain(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"kabar://model",
			"Model Status",
			mcp.WithResourceDescription("Current model generation, corpus size and label counts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceModel(deps),
	)

	return s
}

func mcpClassify(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := req.RequireString("body")
		if err != nil {
			return mcpError("body is required"), nil
		}
		p, err := deps.Model.Classify(req.GetString("title", ""), body)
		if err != nil {
			return mcpError(fmt.Sprintf("classify failed: %v", err)), nil
		}
		return mcpJSON(ClassifyResponse{
			Category:   p.Label,
			Confidence: p.Confidence,
			Generation: p.Generation,
		})
	}
}

func mcpSubmit(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := req.RequireString("body")
		if err != nil {
			return mcpError("body is required"), nil
		}
		sub, err := deps.Corpus.Submit(ctx, corpus.SubmitInput{
			Title: req.GetString("title", ""),
			Body:  body,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("submit failed: %v", err)), nil
		}
		return mcpJSON(SubmitResponse{
			NewsResponse: newsResponse(sub.News),
			Generation:   sub.Generation,
		})
	}
}

func mcpAddLabeled(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := req.RequireString("body")
		if err != nil {
			return mcpError("body is required"), nil
		}
		label, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		n, err := deps.Corpus.AddLabeled(ctx, corpus.LabeledInput{
			Title: req.GetString("title", ""),
			Body:  body,
			Label: label,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("add failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored %s as %s", n.ID, n.Label)), nil
	}
}

func mcpCategoryStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Corpus.Stats(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		return mcpJSON(stats)
	}
}

func mcpRetrain(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := deps.Model.Retrain(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("retrain failed: %v", err)), nil
		}
		return mcpJSON(trainResponse(res))
	}
}

func mcpResourceModel(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(modelResponse(deps.Model.Status()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal model status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
