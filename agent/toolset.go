package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DoneToolName is the sentinel tool the model calls to finish a task. The
// loop treats it specially: when a batch contains it, only the done call is
// executed and its Summary becomes the final answer.
const DoneToolName = "done"

// DiagnosticsProvider supplies editor diagnostics for a file. Hosts that
// have no language server integration leave it nil and get_diagnostics
// reports that.
type DiagnosticsProvider interface {
	Diagnostics(ctx context.Context, filePath string) (string, error)
}

// WebSearcher performs a web search. Optional, same as diagnostics.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// CodeSearcher answers semantic code searches over the workspace, typically
// backed by an embedding index. Optional.
type CodeSearcher interface {
	SearchCode(ctx context.Context, query string) (string, error)
}

// SymbolProvider answers symbol and code-action queries for a file,
// typically backed by a language server. Optional.
type SymbolProvider interface {
	SymbolInfo(ctx context.Context, filePath, symbol string) (string, error)
}

// Typed argument structs. Field names are deliberately PascalCase on the
// wire; the schemas the model sees use these exact keys.

type createFileArgs struct {
	FilePath string `json:"FilePath" jsonschema:"required,description=Path of the file to create"`
	Content  string `json:"Content" jsonschema:"description=Full content of the new file"`
}

type updateFileArgs struct {
	FilePath string `json:"FilePath" jsonschema:"required,description=Path of the file to overwrite"`
	Content  string `json:"Content" jsonschema:"required,description=Full replacement content"`
}

type createDirectoryArgs struct {
	DirectoryPath string `json:"DirectoryPath" jsonschema:"required,description=Path of the directory to create"`
}

type listDirArgs struct {
	DirectoryPath string `json:"DirectoryPath" jsonschema:"description=Directory to list; defaults to the workspace root"`
}

type fileTreeArgs struct {
	DirectoryPath string `json:"DirectoryPath" jsonschema:"description=Root of the tree; defaults to the workspace root"`
	Depth         int    `json:"Depth" jsonschema:"description=Maximum depth; defaults to 3"`
}

type grepSearchArgs struct {
	Query           string `json:"Query" jsonschema:"required,description=Regular expression to search for"`
	DirectoryPath   string `json:"DirectoryPath" jsonschema:"description=Directory to search; defaults to the workspace root"`
	GlobFilter      string `json:"GlobFilter" jsonschema:"description=Glob filter such as *.go"`
	CaseInsensitive bool   `json:"CaseInsensitive" jsonschema:"description=Case-insensitive match"`
}

type runCommandArgs struct {
	Command   string `json:"Command" jsonschema:"required,description=Shell command to run in the workspace root"`
	TimeoutMs int    `json:"TimeoutMs" jsonschema:"description=Timeout in milliseconds; defaults to 30000"`
}

type fetchURLArgs struct {
	URL string `json:"URL" jsonschema:"required,description=HTTP or HTTPS URL to fetch"`
}

type webSearchArgs struct {
	Query string `json:"Query" jsonschema:"required,description=Search query"`
}

type codeSearchArgs struct {
	Query string `json:"Query" jsonschema:"required,description=Natural-language description of the code to find"`
}

type symbolInfoArgs struct {
	FilePath string `json:"FilePath" jsonschema:"required,description=File the symbol appears in"`
	Symbol   string `json:"Symbol" jsonschema:"required,description=Name of the symbol to look up"`
}

type diagnosticsArgs struct {
	FilePath string `json:"FilePath" jsonschema:"required,description=File to get diagnostics for"`
}

type doneArgs struct {
	Summary string `json:"Summary" jsonschema:"required,description=One-sentence summary of what was accomplished"`
}

// CoreToolsConfig wires the workspace and optional integrations into the
// tool catalog.
type CoreToolsConfig struct {
	Workspace   Workspace
	Tracker     *ContextTracker
	Diagnostics DiagnosticsProvider
	Searcher    WebSearcher
	CodeSearch  CodeSearcher
	Symbols     SymbolProvider
	HTTPClient  *http.Client
}

// RegisterCoreTools installs the standard catalog into the registry.
func RegisterCoreTools(registry *Registry, cfg CoreToolsConfig) {
	ws := cfg.Workspace
	tracker := cfg.Tracker
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	track := func(paths ...string) {
		if tracker != nil {
			tracker.Add(paths...)
		}
	}

	registry.Register(RegisteredTool{
		Name:                 "create_file",
		Description:          "Create a new file with the given content. Fails if the file already exists.",
		Parameters:           SchemaFor(&createFileArgs{}),
		RequiresConfirmation: true,
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args createFileArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if ws.FileExists(args.FilePath) {
				return fmt.Sprintf("Error: File already exists at %s. Use update_file to modify it.", args.FilePath),
					fmt.Errorf("file already exists: %s", args.FilePath)
			}
			if err := ws.WriteFile(args.FilePath, args.Content); err != nil {
				return "", err
			}
			track(args.FilePath)
			return fmt.Sprintf("Created %s (%d bytes).", args.FilePath, len(args.Content)), nil
		},
	})

	registry.Register(RegisteredTool{
		Name:                 "update_file",
		Description:          "Overwrite an existing file with new content.",
		Parameters:           SchemaFor(&updateFileArgs{}),
		RequiresConfirmation: true,
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args updateFileArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if !ws.FileExists(args.FilePath) {
				return fmt.Sprintf("Error: No file exists at %s. Use create_file to create it.", args.FilePath),
					fmt.Errorf("no file at: %s", args.FilePath)
			}
			if err := ws.WriteFile(args.FilePath, args.Content); err != nil {
				return "", err
			}
			track(args.FilePath)
			return fmt.Sprintf("Updated %s (%d bytes).", args.FilePath, len(args.Content)), nil
		},
	})

	registry.Register(RegisteredTool{
		Name:                 "create_directory",
		Description:          "Create a directory, including any missing parents.",
		Parameters:           SchemaFor(&createDirectoryArgs{}),
		RequiresConfirmation: true,
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args createDirectoryArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if err := ws.MakeDir(args.DirectoryPath); err != nil {
				return "", err
			}
			return fmt.Sprintf("Created directory %s.", args.DirectoryPath), nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        "list_dir",
		Description: "List the entries of a directory.",
		Parameters:  SchemaFor(&listDirArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args listDirArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			path := args.DirectoryPath
			if path == "" {
				path = "."
			}
			entries, err := ws.ListDirectory(path)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "(empty directory)", nil
			}
			var sb strings.Builder
			for _, e := range entries {
				if e.IsDir {
					fmt.Fprintf(&sb, "%s/\n", e.Name)
				} else {
					fmt.Fprintf(&sb, "%s (%d bytes)\n", e.Name, e.Size)
				}
			}
			return sb.String(), nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        "file_tree",
		Description: "Show a recursive directory tree.",
		Parameters:  SchemaFor(&fileTreeArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args fileTreeArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			path := args.DirectoryPath
			if path == "" {
				path = "."
			}
			return ws.Tree(path, args.Depth)
		},
	})

	registry.Register(RegisteredTool{
		Name:        "grep_search",
		Description: "Search file contents with a regular expression.",
		Parameters:  SchemaFor(&grepSearchArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args grepSearchArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			out, err := ws.Grep(ctx, args.Query, args.DirectoryPath, GrepOptions{
				GlobFilter:      args.GlobFilter,
				CaseInsensitive: args.CaseInsensitive,
				MaxResults:      100,
			})
			if err != nil {
				return "", err
			}
			if out == "" {
				return "No matches found.", nil
			}
			return out, nil
		},
	})

	registry.Register(RegisteredTool{
		Name:                 "run_command",
		Description:          "Run a shell command in the workspace root and return its output.",
		Parameters:           SchemaFor(&runCommandArgs{}),
		RequiresConfirmation: true,
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args runCommandArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			timeout := args.TimeoutMs
			if timeout <= 0 {
				timeout = 30000
			}
			result, err := ws.ExecCommand(ctx, args.Command, timeout)
			if err != nil {
				return "", err
			}
			out := result.Output()
			if result.TimedOut {
				return fmt.Sprintf("Command timed out after %dms.\n%s", timeout, out), nil
			}
			if result.ExitCode != 0 {
				return fmt.Sprintf("Command exited with code %d.\n%s", result.ExitCode, out), nil
			}
			if out == "" {
				return "(no output)", nil
			}
			return out, nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        "fetch_url",
		Description: "Fetch the body of an HTTP or HTTPS URL.",
		Parameters:  SchemaFor(&fetchURLArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args fetchURLArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
				return "", fmt.Errorf("only http and https URLs are supported")
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
			if err != nil {
				return "", err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return "", err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Sprintf("HTTP %d from %s:\n%s", resp.StatusCode, args.URL, string(body)), nil
			}
			return string(body), nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        "web_search",
		Description: "Search the web for a query.",
		Parameters:  SchemaFor(&webSearchArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args webSearchArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if cfg.Searcher == nil {
				return "Web search is not configured in this environment.", nil
			}
			return cfg.Searcher.Search(ctx, args.Query)
		},
	})

	registry.Register(RegisteredTool{
		Name:        "code_search",
		Description: "Semantic search over the workspace's code by meaning rather than exact text.",
		Parameters:  SchemaFor(&codeSearchArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args codeSearchArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if cfg.CodeSearch == nil {
				return "Semantic code search is not configured; use grep_search instead.", nil
			}
			return cfg.CodeSearch.SearchCode(ctx, args.Query)
		},
	})

	registry.Register(RegisteredTool{
		Name:        "symbol_info",
		Description: "Look up a symbol's definition, references, and available code actions.",
		Parameters:  SchemaFor(&symbolInfoArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args symbolInfoArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if cfg.Symbols == nil {
				return "No symbol provider is available; use grep_search to locate the symbol.", nil
			}
			out, err := cfg.Symbols.SymbolInfo(ctx, args.FilePath, args.Symbol)
			if err != nil {
				return "", err
			}
			if out == "" {
				return fmt.Sprintf("No information found for symbol %q.", args.Symbol), nil
			}
			return out, nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        "get_diagnostics",
		Description: "Get compiler or language-server diagnostics for a file.",
		Parameters:  SchemaFor(&diagnosticsArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args diagnosticsArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			if cfg.Diagnostics == nil {
				return "No diagnostics provider is available.", nil
			}
			out, err := cfg.Diagnostics.Diagnostics(ctx, args.FilePath)
			if err != nil {
				return "", err
			}
			if out == "" {
				return "No diagnostics reported.", nil
			}
			return out, nil
		},
	})

	registry.Register(RegisteredTool{
		Name:        DoneToolName,
		Description: "Signal that the task is complete. Call this with a summary once the user's request is satisfied.",
		Parameters:  SchemaFor(&doneArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args doneArgs
			if err := DecodeArguments(raw, &args); err != nil {
				return "", err
			}
			return args.Summary, nil
		},
	})
}
