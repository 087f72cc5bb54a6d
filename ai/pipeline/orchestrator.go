// Package pipeline orchestrates one conversational turn end to end: input
// normalization, mode detection, session gating, context and prompt
// assembly, the model call, and draft extraction and persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mhalter/coachflow/ai/assemble"
	"github.com/mhalter/coachflow/ai/draft"
	"github.com/mhalter/coachflow/ai/gateway"
	"github.com/mhalter/coachflow/ai/input"
	"github.com/mhalter/coachflow/ai/intent"
	"github.com/mhalter/coachflow/ai/internal/strutil"
	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/ai/prompt"
	"github.com/mhalter/coachflow/ai/session"
	"github.com/mhalter/coachflow/store"
)

const (
	// DraftTTL is how long a persisted draft stays approvable.
	DraftTTL = 24 * time.Hour

	// historyTurns is how many recent messages feed the prompt context.
	historyTurns = 6

	// historyMessageRunes caps each history line injected into the prompt.
	historyMessageRunes = 200
)

// ErrEmptyInput is returned when a turn carries no usable text.
var ErrEmptyInput = fmt.Errorf("empty input")

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	Text           string
	ExplicitMode   string
	Source         input.SourceType
	AttachmentInfo string
	UserID         int32
}

// TurnResult is the outcome of processing one turn. When Denied is set the
// turn was rejected by a session rule before any model call; DenialReason
// carries the user-facing explanation and every other field except Mode is
// zero.
type TurnResult struct {
	SessionUID     string
	Mode           mode.Mode
	Intent         intent.Intent
	Conversational string
	Drafts         []*store.PendingDraft
	Denied         bool
	DenialReason   string
}

// Pipeline wires the turn-processing stages together. All stages share the
// injected clock so simulated-time tests stay coherent across session rules
// and draft expiry.
type Pipeline struct {
	detector *mode.Detector
	sessions *session.Manager
	contexts *assemble.Assembler
	prompts  *prompt.Assembler
	gateway  *gateway.Gateway
	entities assemble.EntityLookup
	store    *store.Store
	now      func() time.Time
}

// New creates a turn pipeline. now may be nil for the wall clock.
func New(
	detector *mode.Detector,
	sessions *session.Manager,
	contexts *assemble.Assembler,
	prompts *prompt.Assembler,
	gw *gateway.Gateway,
	entities assemble.EntityLookup,
	st *store.Store,
	now func() time.Time,
) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		detector: detector,
		sessions: sessions,
		contexts: contexts,
		prompts:  prompts,
		gateway:  gw,
		entities: entities,
		store:    st,
		now:      now,
	}
}

// ProcessTurn runs one user turn through the full pipeline.
//
// Session-rule denials and model-output degradation are first-class
// outcomes, not errors: a denial returns early with DenialReason set, and
// unusable model output yields a low-confidence note draft preserving the
// raw input. Draft persistence is independent per draft; a single failed
// save is logged and does not lose the siblings.
func (p *Pipeline) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	normalized := p.normalize(req)
	if normalized.Text == "" {
		return nil, ErrEmptyInput
	}

	sprintID := p.currentSprintID(ctx, req.UserID)

	detected := p.detector.Detect(ctx, req.UserID, normalized.Text, req.ExplicitMode)

	allowed, reason, err := p.sessions.CheckSessionRules(ctx, req.UserID, detected)
	if err != nil {
		return nil, fmt.Errorf("failed to check session rules: %w", err)
	}
	if !allowed {
		slog.Info("turn denied by session rule", "user_id", req.UserID, "mode", detected, "reason", reason)
		return &TurnResult{Mode: detected, Denied: true, DenialReason: reason}, nil
	}

	classified := intent.Classify(normalized.Text, detected)

	sess, err := p.sessions.GetOrCreateSession(ctx, req.UserID, detected)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	facts := p.contexts.Assemble(ctx, detected, req.UserID, sprintID)
	if history := p.recentHistory(ctx, sess.ID); history != "" {
		facts["recent_history"] = history
	}

	system := p.prompts.SystemMessage(ctx, detected, facts)
	user := p.prompts.UserMessage(normalized.Text, normalized.AttachmentInfo)

	output, err := p.gateway.Call(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	extracted := draft.Extract(output)
	if len(extracted.Drafts) == 0 && extracted.MalformedBlocks > 0 {
		// Drafts were proposed but none survived parsing; keep the input.
		extracted.Drafts = append(extracted.Drafts, draft.FallbackNote(normalized.Text))
		if extracted.Conversational == "" {
			extracted.Conversational = draft.ClarifyingQuestions
		} else {
			extracted.Conversational += "\n\n" + draft.ClarifyingQuestions
		}
		slog.Warn("all draft regions malformed, degrading to note",
			"user_id", req.UserID,
			"malformed_blocks", extracted.MalformedBlocks,
		)
	}

	persisted := p.persistDrafts(ctx, req.UserID, normalized.Text, extracted.Drafts)

	if err := p.sessions.AddTurn(ctx, sess, normalized.Text, output, classified.String()); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	// An end-ceremony turn closes the session so the once-per-day and
	// once-per-week rules can see a CLOSED record.
	if classified == intent.IntentEndCeremony {
		if err := p.sessions.CloseSession(ctx, sess.ID); err != nil {
			slog.Warn("failed to close session on ceremony end",
				"user_id", req.UserID,
				"session_uid", sess.UID,
				"error", err,
			)
		} else {
			slog.Info("session closed on ceremony end",
				"user_id", req.UserID,
				"mode", detected,
				"session_uid", sess.UID,
			)
		}
	}

	return &TurnResult{
		SessionUID:     sess.UID,
		Mode:           detected,
		Intent:         classified,
		Conversational: extracted.Conversational,
		Drafts:         persisted,
	}, nil
}

func (p *Pipeline) normalize(req TurnRequest) input.NormalizedInput {
	switch req.Source {
	case input.SourceVoice:
		return input.NormalizeVoice(req.AttachmentInfo)
	case input.SourceImage:
		return input.NormalizeImage(req.AttachmentInfo)
	default:
		return input.Normalize(req.Text)
	}
}

// currentSprintID resolves the user's active sprint. Lookup failure is not
// fatal to the turn; the context just carries no sprint facts.
func (p *Pipeline) currentSprintID(ctx context.Context, userID int32) *int32 {
	sprint, err := p.entities.GetCurrentSprint(ctx, userID)
	if err != nil {
		slog.Debug("sprint lookup failed", "user_id", userID, "error", err)
		return nil
	}
	if sprint == nil {
		return nil
	}
	return &sprint.ID
}

func (p *Pipeline) recentHistory(ctx context.Context, sessionID int32) string {
	msgs, err := p.sessions.RecentMessages(ctx, sessionID, historyTurns)
	if err != nil {
		slog.Debug("recent history lookup failed", "session_id", sessionID, "error", err)
		return ""
	}
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, strutil.Truncate(msg.Content, historyMessageRunes)))
	}
	return strings.Join(lines, "\n")
}

// persistDrafts stores each extracted draft as a pending approval with a
// fresh UID and a 24h expiry. Saves are independent: a failed save drops
// that draft with a warning and the rest go through.
func (p *Pipeline) persistDrafts(ctx context.Context, userID int32, sourceInput string, drafts []*draft.Parsed) []*store.PendingDraft {
	if len(drafts) == 0 {
		return nil
	}
	now := p.now()
	persisted := make([]*store.PendingDraft, 0, len(drafts))
	for _, parsed := range drafts {
		payload, err := draft.MarshalPayload(parsed.Draft)
		if err != nil {
			slog.Warn("failed to serialize draft", "user_id", userID, "error", err)
			continue
		}
		created, err := p.store.CreatePendingDraft(ctx, &store.PendingDraft{
			UID:         uuid.NewString(),
			UserID:      userID,
			Type:        string(parsed.Draft.Kind()),
			Payload:     payload,
			Status:      store.DraftPendingApproval,
			Confidence:  parsed.Confidence,
			Reasoning:   parsed.Reasoning,
			SourceInput: sourceInput,
			CreatedTs:   now.Unix(),
			ExpiresTs:   now.Add(DraftTTL).Unix(),
		})
		if err != nil {
			slog.Warn("failed to persist draft", "user_id", userID, "type", parsed.Draft.Kind(), "error", err)
			continue
		}
		persisted = append(persisted, created)
	}
	return persisted
}
