package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var analyzeToolDef = mcp.NewTool("string_analyze",
	mcp.WithDescription("Compute the properties of a string (length, palindrome, unique characters, word count, SHA-256, character frequency) without storing it."),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("The string to analyze"),
	),
)

var createToolDef = mcp.NewTool("string_create",
	mcp.WithDescription("Analyze a string and store it. Each distinct string can be stored once; storing it again returns CONFLICT."),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("The string to store"),
	),
)

var getToolDef = mcp.NewTool("string_get",
	mcp.WithDescription("Fetch a stored string and its properties by its exact value."),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("The exact stored string"),
	),
)

var listToolDef = mcp.NewTool("string_list",
	mcp.WithDescription("List stored strings in insertion order. All given filters must match."),
	mcp.WithBoolean("is_palindrome",
		mcp.Description("Only palindromes (true) or only non-palindromes (false); case and whitespace are ignored"),
	),
	mcp.WithNumber("min_length",
		mcp.Description("Minimum length in characters (inclusive)"),
	),
	mcp.WithNumber("max_length",
		mcp.Description("Maximum length in characters (inclusive)"),
	),
	mcp.WithNumber("word_count",
		mcp.Description("Exact number of whitespace-separated words"),
	),
	mcp.WithString("contains_character",
		mcp.Description("A single character the string must contain (case-sensitive)"),
	),
)

var searchToolDef = mcp.NewTool("string_search",
	mcp.WithDescription(`List stored strings matching a natural-language query such as "single word palindromic strings", "strings longer than 10 characters" or "strings containing the letter z".`),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural-language description of the strings to find"),
	),
)

var deleteToolDef = mcp.NewTool("string_delete",
	mcp.WithDescription("Delete a stored string by its exact value."),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("The exact stored string"),
	),
)

var exportToolDef = mcp.NewTool("string_export",
	mcp.WithDescription("Export every stored string to a JSONL backup file."),
	mcp.WithString("path",
		mcp.Description("Destination .jsonl path (default: <base>/exports/sift-<timestamp>.jsonl)"),
	),
)

var importToolDef = mcp.NewTool("string_import",
	mcp.WithDescription("Import strings from a JSONL backup file. Properties are recomputed."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Source .jsonl path"),
	),
	mcp.WithString("mode",
		mcp.Description("error (default): import nothing if any string already exists; skip: keep existing strings"),
		mcp.Enum("error", "skip"),
	),
)
