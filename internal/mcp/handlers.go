package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/filter"
	"github.com/hpungsan/sift/internal/logger"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *store.Store
	cfg   *config.Config
	log   *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s *store.Store, cfg *config.Config, log *zap.Logger) *Handlers {
	return &Handlers{store: s, cfg: cfg, log: log.With(zap.String(logger.FieldComponent, "mcp"))}
}

// Request types for each tool

// ValueRequest represents the arguments for tools addressed by value.
// Value is a pointer so a missing argument can be told apart from "".
type ValueRequest struct {
	Value *string `json:"value"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	IsPalindrome      *bool   `json:"is_palindrome,omitempty"`
	MinLength         *int    `json:"min_length,omitempty"`
	MaxLength         *int    `json:"max_length,omitempty"`
	WordCount         *int    `json:"word_count,omitempty"`
	ContainsCharacter *string `json:"contains_character,omitempty"`
}

// SearchRequest represents the arguments for search.
type SearchRequest struct {
	Query string `json:"query"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleAnalyze handles the analyze tool call.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, errRes := h.value(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	return successResult(ops.Analyze(ops.ValueInput{Value: value}))
}

// HandleCreate handles the create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, errRes := h.value(ctx, req)
	if errRes != nil {
		return errRes, nil
	}

	result, err := ops.Create(ctx, h.store, ops.ValueInput{Value: value})
	if err != nil {
		return h.errorResult(ctx, "create", err), nil
	}
	return successResult(result)
}

// HandleGet handles the get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, errRes := h.value(ctx, req)
	if errRes != nil {
		return errRes, nil
	}

	result, err := ops.Fetch(ctx, h.store, ops.ValueInput{Value: value})
	if err != nil {
		return h.errorResult(ctx, "get", err), nil
	}
	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return h.errorResult(ctx, "list", errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Filters: filter.Set{
			IsPalindrome:      input.IsPalindrome,
			MinLength:         input.MinLength,
			MaxLength:         input.MaxLength,
			WordCount:         input.WordCount,
			ContainsCharacter: input.ContainsCharacter,
		},
	})
	if err != nil {
		return h.errorResult(ctx, "list", err), nil
	}
	return successResult(result)
}

// HandleSearch handles the search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return h.errorResult(ctx, "search", errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.store, ops.SearchInput{Query: input.Query})
	if err != nil {
		return h.errorResult(ctx, "search", err), nil
	}
	return successResult(result)
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, errRes := h.value(ctx, req)
	if errRes != nil {
		return errRes, nil
	}

	result, err := ops.Delete(ctx, h.store, ops.ValueInput{Value: value})
	if err != nil {
		return h.errorResult(ctx, "delete", err), nil
	}
	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return h.errorResult(ctx, "export", errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return h.errorResult(ctx, "export", err), nil
	}
	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return h.errorResult(ctx, "import", errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return h.errorResult(ctx, "import", err), nil
	}
	return successResult(result)
}

// value decodes and requires the "value" argument. A missing or non-string
// value is INVALID_VALUE, matching POST /strings.
func (h *Handlers) value(ctx context.Context, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	input, err := decode[ValueRequest](req)
	if err != nil {
		return "", h.errorResult(ctx, "decode", errors.NewInvalidValue(`"value" must be a string`))
	}
	if input.Value == nil {
		return "", h.errorResult(ctx, "decode", errors.NewInvalidValue(`missing "value" field`))
	}
	return *input.Value, nil
}

// errorResult creates an MCP error result carrying the same error object
// the HTTP API returns. Details are included for client errors only.
func (h *Handlers) errorResult(ctx context.Context, op string, err error) *mcp.CallToolResult {
	sErr := errors.From(err)

	log := logger.FromContext(ctx, h.log).With(zap.String(logger.FieldOperation, op))
	if sErr.Code == errors.ErrInternal {
		log.Error("tool failed", zap.Error(err))
	} else {
		log.Debug("tool rejected", zap.String(logger.FieldErrorCode, string(sErr.Code)))
	}

	errorObj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if sErr.Code != errors.ErrInternal && sErr.Details != nil {
		errorObj["details"] = sErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
