package responder

import (
	"context"
	"hash/fnv"
	"time"
)

// scriptedReplies are the canned answers used when no real backend is
// configured. Selection is a deterministic hash of the prompt so repeated
// runs are reproducible.
var scriptedReplies = []string{
	"I understand your question. Drawing on my memories, I would answer it like this...",
	"That's an interesting question. Let me think about it...",
	"From what I know, I believe...",
	"Thanks for asking. Let me walk you through it...",
	"That reminds me of something we talked about before...",
}

// Scripted is a stand-in responder with optional artificial latency. It
// never fails except on context cancellation.
type Scripted struct {
	// Latency is slept before answering, to exercise the single-flight
	// path the way a real backend would.
	Latency time.Duration
}

// Generate returns a canned reply chosen by prompt hash.
func (s *Scripted) Generate(ctx context.Context, prompt string, contextEntries []string) (string, error) {
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return scriptedReplies[h.Sum32()%uint32(len(scriptedReplies))], nil
}
