package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mhalter/coachflow/store"
)

// Report summarizes draft feedback over a time window. Rates are percentages
// of the total interaction count; AvgDecisionMs averages only records that
// carry a decision latency.
type Report struct {
	WindowStartTs    int64             `json:"windowStartTs"`
	TotalCount       int               `json:"totalCount"`
	ApprovalRate     float64           `json:"approvalRate"`
	ModificationRate float64           `json:"modificationRate"`
	RejectionRate    float64           `json:"rejectionRate"`
	AvgDecisionMs    float64           `json:"avgDecisionMs"`
	TopRejections    []RejectionReason `json:"topRejections"`
	Leaderboard      []UserActivity    `json:"leaderboard"`
}

// RejectionReason is one normalized rejection comment with its frequency.
type RejectionReason struct {
	Comment string `json:"comment"`
	Count   int    `json:"count"`
}

// UserActivity is one leaderboard row, ordered by total interactions.
type UserActivity struct {
	UserID   int32 `json:"userId"`
	Total    int   `json:"total"`
	Approved int   `json:"approved"`
	Modified int   `json:"modified"`
	Rejected int   `json:"rejected"`
}

const maxTopRejections = 10

// EvolutionService aggregates feedback into periodic reports that surface
// where the drafting rules drift from what users actually want.
type EvolutionService struct {
	store *store.Store
}

// NewEvolutionService creates a rule evolution service.
func NewEvolutionService(st *store.Store) *EvolutionService {
	return &EvolutionService{store: st}
}

// BuildReport aggregates all feedback recorded at or after windowStartTs.
func (s *EvolutionService) BuildReport(ctx context.Context, windowStartTs int64) (*Report, error) {
	records, err := s.store.ListDraftFeedback(ctx, &store.FindDraftFeedback{
		CreatedAfter: &windowStartTs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	report := &Report{WindowStartTs: windowStartTs, TotalCount: len(records)}
	if len(records) == 0 {
		return report, nil
	}

	var approved, modified, rejected, timed int
	var latencySum int64
	rejections := map[string]int{}
	byUser := map[int32]*UserActivity{}
	for _, record := range records {
		activity := byUser[record.UserID]
		if activity == nil {
			activity = &UserActivity{UserID: record.UserID}
			byUser[record.UserID] = activity
		}
		activity.Total++

		switch record.Action {
		case store.FeedbackApproved:
			approved++
			activity.Approved++
		case store.FeedbackModified:
			modified++
			activity.Modified++
		case store.FeedbackRejected:
			rejected++
			activity.Rejected++
			if comment := normalizeComment(record.Comment); comment != "" {
				rejections[comment]++
			}
		}
		if record.DecisionMs > 0 {
			timed++
			latencySum += record.DecisionMs
		}
	}

	total := float64(len(records))
	report.ApprovalRate = float64(approved) / total * 100
	report.ModificationRate = float64(modified) / total * 100
	report.RejectionRate = float64(rejected) / total * 100
	if timed > 0 {
		report.AvgDecisionMs = float64(latencySum) / float64(timed)
	}
	report.TopRejections = topRejections(rejections)
	report.Leaderboard = leaderboard(byUser)
	return report, nil
}

func normalizeComment(comment string) string {
	return strings.ToLower(strings.TrimSpace(comment))
}

func topRejections(counts map[string]int) []RejectionReason {
	reasons := make([]RejectionReason, 0, len(counts))
	for comment, count := range counts {
		reasons = append(reasons, RejectionReason{Comment: comment, Count: count})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Comment < reasons[j].Comment
	})
	if len(reasons) > maxTopRejections {
		reasons = reasons[:maxTopRejections]
	}
	return reasons
}

func leaderboard(byUser map[int32]*UserActivity) []UserActivity {
	rows := make([]UserActivity, 0, len(byUser))
	for _, activity := range byUser {
		rows = append(rows, *activity)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}
