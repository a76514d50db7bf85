// Package agent implements the orchestration core of an editor-integrated
// conversational coding assistant.
//
// A user query is translated into a bounded sequence of tool invocations
// interleaved with chat-completion calls until the model signals completion
// or the iteration budget runs out. The package owns the conversation
// transcript and its structural invariants, dispatches tool calls under
// timeouts and confirmation gating, and recovers from malformed model output
// and protocol-level rejections.
//
// # Architecture
//
//   - Loop: the orchestrator driving iterations, failure recovery, and
//     terminal outcomes.
//   - Store: the transcript owner, enforcing the tool-call/response pairing
//     invariant through truncation, sanitize, and repair passes.
//   - Registry: the catalog of tools with JSON-schema signatures and
//     confirmation requirements.
//   - Executor and Processor: per-call dispatch under timeout, and batch
//     processing of a model turn's tool calls.
//   - ContextTracker: the deduplicated set of workspace paths touched while
//     answering the current query.
//   - EventEmitter: typed event stream for the host UI.
//
// # Quick start
//
//	ws := agent.NewLocalWorkspace("/path/to/project")
//	reg := agent.NewRegistry()
//	agent.RegisterCoreTools(reg, agent.CoreToolsConfig{Workspace: ws})
//	loop := agent.NewLoop(agent.LoopConfig{}, agent.LoopDeps{
//		Client:    client,
//		WireCfg:   cfg,
//		Workspace: ws,
//		Registry:  reg,
//	})
//	result, err := loop.ExecuteAgentLoop(ctx, "list the files in cmd/")
package agent
