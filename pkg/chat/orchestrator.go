// Package chat coordinates the generation protocol: append the user turn,
// assemble the role's context, call the responder, append the reply. It
// enforces at most one generation in flight per thread.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/models"
	"memoryecho/pkg/prompt"
	"memoryecho/pkg/responder"
	"memoryecho/pkg/telemetry"
	"memoryecho/pkg/threads"
	"memoryecho/pkg/utils"
)

var (
	// ErrEmptyMessage rejects blank user input before any state changes.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrBusy signals a second send while the thread is still generating.
	ErrBusy = errors.New("generation already in flight for this thread")
	// ErrGenerationFailed wraps responder errors and timeouts. The user's
	// turn is already appended and stays; no AI message is written.
	ErrGenerationFailed = errors.New("generation failed")
)

// DefaultTimeout bounds a responder call when the config does not.
const DefaultTimeout = 60 * time.Second

// Result carries everything a caller needs after a successful send.
type Result struct {
	UserMessage models.Message `json:"user_message"`
	Reply       models.Message `json:"reply"`
	Thread      models.Thread  `json:"thread"`
}

// Orchestrator is the per-thread generation state machine. A thread is
// either idle or generating; the transition is guarded here, not in any
// caller, so the single-flight invariant holds regardless of surface.
type Orchestrator struct {
	threads   *threads.Store
	assembler *prompt.Assembler
	resp      responder.Responder
	timeout   time.Duration

	mu         sync.Mutex
	generating map[string]struct{}
}

// New wires the orchestrator. A non-positive timeout falls back to
// DefaultTimeout.
func New(ts *threads.Store, asm *prompt.Assembler, resp responder.Responder, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		threads:    ts,
		assembler:  asm,
		resp:       resp,
		timeout:    timeout,
		generating: make(map[string]struct{}),
	}
}

// Busy reports whether the thread currently has a generation in flight.
func (o *Orchestrator) Busy(threadID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.generating[threadID]
	return ok
}

// Send runs one full user turn against a thread. It returns ErrEmptyMessage
// for blank text, ErrBusy when the thread is already generating, and
// ErrGenerationFailed (with the user message durably appended) when the
// responder errors or times out.
//
// Cancellation policy: once the user message is appended the generation
// runs to completion on a context detached from the caller's, bounded only
// by the configured timeout. A caller that goes away does not leave the
// thread with a dangling user turn that was silently abandoned mid-reply.
func (o *Orchestrator) Send(ctx context.Context, threadID, roleID, userID, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		telemetry.Generations.WithLabelValues("invalid").Inc()
		return Result{}, ErrEmptyMessage
	}

	o.mu.Lock()
	if _, busy := o.generating[threadID]; busy {
		o.mu.Unlock()
		telemetry.Generations.WithLabelValues("busy").Inc()
		return Result{}, ErrBusy
	}
	o.generating[threadID] = struct{}{}
	o.mu.Unlock()
	defer o.release(threadID)

	userMsg := models.Message{
		ID:       utils.GenID(),
		Sender:   models.SenderUser,
		SenderID: userID,
		Type:     models.MessageText,
		Content:  text,
		TS:       time.Now().UTC().UnixNano(),
	}
	if _, err := o.threads.AppendMessage(threadID, userMsg); err != nil {
		if errors.Is(err, threads.ErrNotFound) {
			telemetry.Generations.WithLabelValues("invalid").Inc()
			return Result{}, err
		}
		// persistence failure: the in-memory append took effect, keep going
		telemetry.PersistenceFailures.Inc()
		logger.Warn("user_message_persist_failed", "thread", threadID, "error", err)
	}
	telemetry.MessagesAppended.WithLabelValues(string(models.SenderUser)).Inc()

	entries := o.assembler.Assemble(roleID)
	telemetry.ContextEntries.Observe(float64(len(entries)))

	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	start := time.Now()
	reply, err := o.resp.Generate(gctx, text, entries)
	telemetry.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.Generations.WithLabelValues("failed").Inc()
		logger.Error("generation_failed", "thread", threadID, "role", roleID, "error", err)
		return Result{UserMessage: userMsg}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	aiMsg := models.Message{
		ID:       utils.GenID(),
		Sender:   models.SenderAI,
		SenderID: roleID,
		Type:     models.MessageText,
		Content:  reply,
		TS:       time.Now().UTC().UnixNano(),
	}
	th, err := o.threads.AppendMessage(threadID, aiMsg)
	if err != nil {
		if errors.Is(err, threads.ErrNotFound) {
			// thread deleted while generating; reply is discarded
			telemetry.Generations.WithLabelValues("failed").Inc()
			return Result{UserMessage: userMsg}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		telemetry.PersistenceFailures.Inc()
		logger.Warn("reply_persist_failed", "thread", threadID, "error", err)
		th, _ = o.threads.Get(threadID)
	}
	telemetry.MessagesAppended.WithLabelValues(string(models.SenderAI)).Inc()
	telemetry.Generations.WithLabelValues("ok").Inc()
	logger.Info("generation_ok", "thread", threadID, "role", roleID, "reply_len", len(reply))

	return Result{UserMessage: userMsg, Reply: aiMsg, Thread: th}, nil
}

// ProcessKnowledge asks the responder to digest a role's knowledge base
// into a short summary. It touches no thread state and is not subject to
// the per-thread single-flight guard.
func (o *Orchestrator) ProcessKnowledge(ctx context.Context, roleID string) (string, error) {
	entries := o.assembler.Assemble(roleID)
	gctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	out, err := o.resp.Generate(gctx, "Summarize the key facts, background and values captured in these memories.", entries)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return out, nil
}

func (o *Orchestrator) release(threadID string) {
	o.mu.Lock()
	delete(o.generating, threadID)
	o.mu.Unlock()
}
