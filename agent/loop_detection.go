package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pairuplabs/pairup/chatwire"
)

// DefaultLoopThreshold is how many consecutive repetitions of a call
// pattern count as the model being stuck.
const DefaultLoopThreshold = 3

// callSignature produces a stable fingerprint of one tool call from its
// function name and raw argument text.
func callSignature(call chatwire.ToolCall) string {
	h := sha256.Sum256([]byte(call.Function.Name + "\x00" + call.Function.Arguments))
	return hex.EncodeToString(h[:8])
}

// historySignatures flattens the transcript's assistant tool calls, in
// order, into signatures.
func historySignatures(history []chatwire.Message) []string {
	var sigs []string
	for _, msg := range history {
		if msg.Role != chatwire.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			sigs = append(sigs, callSignature(call))
		}
	}
	return sigs
}

// DetectRepeatedCalls reports whether the tail of the transcript's tool
// calls repeats a short pattern at least threshold times. Pattern lengths
// of 1 to 3 are checked, catching both a single hammered call and short
// alternating cycles.
func DetectRepeatedCalls(history []chatwire.Message, threshold int) (string, bool) {
	if threshold <= 0 {
		threshold = DefaultLoopThreshold
	}
	sigs := historySignatures(history)

	for patternLen := 1; patternLen <= 3; patternLen++ {
		need := patternLen * threshold
		if len(sigs) < need {
			continue
		}
		tail := sigs[len(sigs)-need:]
		pattern := tail[:patternLen]
		repeated := true
		for i := patternLen; i < len(tail); i++ {
			if tail[i] != pattern[i%patternLen] {
				repeated = false
				break
			}
		}
		if repeated {
			return fmt.Sprintf(
				"the last %d tool calls repeat the same %d-call pattern; change strategy instead of retrying",
				need, patternLen), true
		}
	}
	return "", false
}
