package agent

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pairuplabs/pairup/chatwire"
)

// DefaultTranscriptLimit is the message count the store truncates toward
// after every append.
const DefaultTranscriptLimit = 10

// placeholderToolOutput is the content of a synthesized tool response
// inserted for a tool call whose real response is missing.
const placeholderToolOutput = "Tool execution failed or timed out."

// Store owns the ordered conversation transcript and enforces the
// structural invariants the chat-completion protocol requires: every
// tool-role message answers exactly one earlier assistant tool call, and
// every assistant tool call is answered by exactly one tool-role message
// before any non-tool message follows.
//
// All mutation goes through Append, Clear, Sanitize, and ValidateAndRepair.
type Store struct {
	mu       sync.Mutex
	messages []chatwire.Message
	maxLen   int
	logger   zerolog.Logger
}

// NewStore creates an empty transcript store. maxLen <= 0 selects
// DefaultTranscriptLimit.
func NewStore(maxLen int, logger zerolog.Logger) *Store {
	if maxLen <= 0 {
		maxLen = DefaultTranscriptLimit
	}
	return &Store{maxLen: maxLen, logger: logger}
}

// Append adds a message to the end of the transcript, then truncates the
// oldest exchanges if the transcript exceeds its configured maximum.
func (s *Store) Append(msg chatwire.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.truncateLocked()
}

// History returns a copy of the transcript.
func (s *Store) History() []chatwire.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chatwire.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current transcript length.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear empties the transcript. Context is lost; used after protocol-error
// recovery or explicit user reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// truncateLocked drops leading messages once the transcript exceeds maxLen.
// A cut is only taken at the start of a user message, and only when no
// assistant tool call in the dropped prefix has a response at or beyond the
// cut. When no valid cut removes enough, the transcript is left over-length:
// correctness beats the memory bound.
func (s *Store) truncateLocked() {
	n := len(s.messages)
	if n <= s.maxLen {
		return
	}
	need := n - s.maxLen

	for b := 1; b < n; b++ {
		if s.messages[b].Role != chatwire.RoleUser {
			continue
		}
		if b < need {
			continue // does not remove enough
		}
		if !cutIsSafe(s.messages, b) {
			continue
		}
		s.logger.Debug().Int("dropped", b).Int("remaining", n-b).Msg("Truncated transcript")
		s.messages = append([]chatwire.Message(nil), s.messages[b:]...)
		return
	}
}

// cutIsSafe reports whether dropping messages[:b] separates no surviving
// tool call from its responses and no surviving response from its call.
func cutIsSafe(messages []chatwire.Message, b int) bool {
	dropped := make(map[string]bool)
	for _, msg := range messages[:b] {
		for _, tc := range msg.ToolCalls {
			dropped[tc.ID] = true
		}
	}
	for _, msg := range messages[b:] {
		if msg.Role == chatwire.RoleTool && dropped[msg.ToolCallID] {
			return false
		}
	}
	return true
}

// Sanitize removes orphaned tool responses (no matching assistant tool call
// anywhere earlier) and assistant messages carrying tool calls with no
// response anywhere later, together with any responses those assistants did
// receive. It returns the number of messages removed.
//
// Edits are computed against an immutable snapshot as a keep-mask and the
// live transcript is rebuilt in one pass, so no index arithmetic depends on
// prior deletions.
func (s *Store) Sanitize() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.messages
	keep := make([]bool, len(snapshot))
	for i := range keep {
		keep[i] = true
	}

	// Pass 1: tool responses with no earlier owning call are orphans.
	seenCalls := make(map[string]bool)
	for i, msg := range snapshot {
		if msg.Role == chatwire.RoleTool {
			if !seenCalls[msg.ToolCallID] {
				keep[i] = false
			}
			continue
		}
		for _, tc := range msg.ToolCalls {
			seenCalls[tc.ID] = true
		}
	}

	// Pass 2: assistant messages with any unanswered call are dropped,
	// along with the responses they did receive.
	answered := make(map[string]int) // call id -> responding message index
	for i, msg := range snapshot {
		if msg.Role == chatwire.RoleTool && keep[i] {
			answered[msg.ToolCallID] = i
		}
	}
	for i, msg := range snapshot {
		if msg.Role != chatwire.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}
		complete := true
		for _, tc := range msg.ToolCalls {
			if _, ok := answered[tc.ID]; !ok {
				complete = false
				break
			}
		}
		if complete {
			continue
		}
		keep[i] = false
		for _, tc := range msg.ToolCalls {
			if j, ok := answered[tc.ID]; ok {
				keep[j] = false
			}
		}
	}

	removed := 0
	rebuilt := make([]chatwire.Message, 0, len(snapshot))
	for i, msg := range snapshot {
		if keep[i] {
			rebuilt = append(rebuilt, msg)
		} else {
			removed++
		}
	}
	s.messages = rebuilt

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Sanitized transcript")
	}
	return removed
}

// ValidateAndRepair restores the full pairing invariant from any transcript
// state. Beyond orphan removal it:
//
//  1. deletes tool responses separated from their owning call by an
//     intervening non-tool message, so they count as missing;
//  2. synthesizes a placeholder response for every assistant tool call
//     still missing one, inserted immediately after the owning assistant
//     message;
//  3. deletes assistant messages carrying a malformed tool call (empty
//     function name or arguments) along with all responses to their ids.
//
// All passes operate on a working copy; the live transcript is replaced
// atomically at the end.
func (s *Store) ValidateAndRepair() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]chatwire.Message, len(s.messages))
	copy(snapshot, s.messages)

	// Malformed assistant tool calls: drop the message and remember its
	// call ids so their responses go too.
	malformedIDs := make(map[string]bool)
	working := snapshot[:0:0]
	for _, msg := range snapshot {
		if msg.Role == chatwire.RoleAssistant && hasMalformedCall(msg) {
			for _, tc := range msg.ToolCalls {
				malformedIDs[tc.ID] = true
			}
			continue
		}
		working = append(working, msg)
	}

	// Ownership map over the cleaned copy.
	owner := make(map[string]int) // call id -> assistant index in working
	for i, msg := range working {
		for _, tc := range msg.ToolCalls {
			owner[tc.ID] = i
		}
	}

	// Drop responses to malformed ids, orphans, and responses not in the
	// contiguous tool-message block following their owning assistant.
	filtered := working[:0:0]
	for i, msg := range working {
		if msg.Role != chatwire.RoleTool {
			filtered = append(filtered, msg)
			continue
		}
		if malformedIDs[msg.ToolCallID] {
			continue
		}
		ownerIdx, ok := owner[msg.ToolCallID]
		if !ok || ownerIdx >= i {
			continue // orphan
		}
		if interveningNonTool(working, ownerIdx, i) {
			continue // separated from its call; treated as missing
		}
		filtered = append(filtered, msg)
	}

	// Synthesize responses for calls still missing one, inserted directly
	// after the owning assistant's surviving response block.
	answered := make(map[string]bool)
	for _, msg := range filtered {
		if msg.Role == chatwire.RoleTool {
			answered[msg.ToolCallID] = true
		}
	}

	repaired := make([]chatwire.Message, 0, len(filtered))
	for i := 0; i < len(filtered); i++ {
		msg := filtered[i]
		repaired = append(repaired, msg)
		if msg.Role != chatwire.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}
		// Copy the existing contiguous response block.
		for i+1 < len(filtered) && filtered[i+1].Role == chatwire.RoleTool {
			i++
			repaired = append(repaired, filtered[i])
		}
		for _, tc := range msg.ToolCalls {
			if !answered[tc.ID] {
				repaired = append(repaired, chatwire.ToolMessage(tc.ID, placeholderToolOutput))
			}
		}
	}

	if len(repaired) != len(s.messages) {
		s.logger.Debug().
			Int("before", len(s.messages)).
			Int("after", len(repaired)).
			Msg("Repaired transcript")
	}
	s.messages = repaired
}

// hasMalformedCall reports whether any tool call on the message has an
// empty function name or empty arguments, the residue of a partially
// streamed call.
func hasMalformedCall(msg chatwire.Message) bool {
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" || tc.Function.Arguments == "" {
			return true
		}
	}
	return false
}

// interveningNonTool reports whether any non-tool message sits strictly
// between indices from and to.
func interveningNonTool(messages []chatwire.Message, from, to int) bool {
	for i := from + 1; i < to; i++ {
		if messages[i].Role != chatwire.RoleTool {
			return true
		}
	}
	return false
}
