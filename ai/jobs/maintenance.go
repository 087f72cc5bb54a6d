package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhalter/coachflow/ai/feedback"
	"github.com/mhalter/coachflow/ai/session"
	"github.com/mhalter/coachflow/store"
)

// Default job intervals.
const (
	SessionSweepInterval    = 15 * time.Minute
	PatternLearningInterval = 24 * time.Hour
	TrendReportInterval     = 7 * 24 * time.Hour
)

// SessionSweepJob expires ACTIVE sessions that have sat idle past the
// timeout.
type SessionSweepJob struct {
	sessions *session.Manager
}

func NewSessionSweepJob(sessions *session.Manager) *SessionSweepJob {
	return &SessionSweepJob{sessions: sessions}
}

func (j *SessionSweepJob) Name() string            { return "session-sweep" }
func (j *SessionSweepJob) Interval() time.Duration { return SessionSweepInterval }

func (j *SessionSweepJob) RunOnce(ctx context.Context) error {
	expired, err := j.sessions.ExpireIdleSessions(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		slog.Info("idle sessions expired", "count", expired)
	}
	return nil
}

// PatternLearningJob re-mines correction patterns for every user with a
// preference aggregate. The aggregate is created lazily on first feedback,
// so this covers exactly the users with history to learn from.
type PatternLearningJob struct {
	store   *store.Store
	learner *feedback.Learner
}

func NewPatternLearningJob(st *store.Store, learner *feedback.Learner) *PatternLearningJob {
	return &PatternLearningJob{store: st, learner: learner}
}

func (j *PatternLearningJob) Name() string            { return "pattern-learning" }
func (j *PatternLearningJob) Interval() time.Duration { return PatternLearningInterval }

func (j *PatternLearningJob) RunOnce(ctx context.Context) error {
	prefs, err := j.store.ListUserCoachPreferences(ctx, &store.FindUserCoachPreference{})
	if err != nil {
		return fmt.Errorf("failed to list preference aggregates: %w", err)
	}
	for _, pref := range prefs {
		patterns, err := j.learner.LearnFromUser(ctx, pref.UserID)
		if err != nil {
			slog.Warn("pattern learning failed for user", "user_id", pref.UserID, "error", err)
			continue
		}
		if len(patterns) > 0 {
			slog.Info("correction patterns updated", "user_id", pref.UserID, "patterns", len(patterns))
		}
	}
	return nil
}

// TrendReportJob builds the weekly feedback report and logs its headline
// numbers. The report is recomputed from stored feedback each run, so a
// missed week self-heals on the next tick.
type TrendReportJob struct {
	evolution *feedback.EvolutionService
	now       func() time.Time
}

func NewTrendReportJob(evolution *feedback.EvolutionService, now func() time.Time) *TrendReportJob {
	if now == nil {
		now = time.Now
	}
	return &TrendReportJob{evolution: evolution, now: now}
}

func (j *TrendReportJob) Name() string            { return "trend-report" }
func (j *TrendReportJob) Interval() time.Duration { return TrendReportInterval }

func (j *TrendReportJob) RunOnce(ctx context.Context) error {
	windowStart := j.now().Add(-TrendReportInterval).Unix()
	report, err := j.evolution.BuildReport(ctx, windowStart)
	if err != nil {
		return err
	}
	slog.Info("weekly feedback report",
		"total", report.TotalCount,
		"approval_rate", fmt.Sprintf("%.1f%%", report.ApprovalRate),
		"modification_rate", fmt.Sprintf("%.1f%%", report.ModificationRate),
		"rejection_rate", fmt.Sprintf("%.1f%%", report.RejectionRate),
		"avg_decision_ms", fmt.Sprintf("%.0f", report.AvgDecisionMs),
	)
	for _, rejection := range report.TopRejections {
		slog.Info("common rejection reason", "comment", rejection.Comment, "count", rejection.Count)
	}
	return nil
}
