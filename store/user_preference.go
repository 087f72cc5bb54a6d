package store

// UserCoachPreference is the one-per-user aggregate of learned coaching
// preferences. Patterns holds the serialized correction-pattern list
// maintained by the preference learner. Counters run forever; the record is
// created lazily on first feedback and never deleted in normal operation.
type UserCoachPreference struct {
	Tone          string
	DefaultMode   string
	Patterns      string
	CreatedTs     int64
	UpdatedTs     int64
	UserID        int32
	ApprovedCount int32
	ModifiedCount int32
	RejectedCount int32
	TotalCount    int32
}

// FindUserCoachPreference specifies conditions for finding preferences.
// A nil UserID lists all preference aggregates.
type FindUserCoachPreference struct {
	UserID *int32
}

// UpsertUserCoachPreference specifies data for creating or replacing a
// user's preference aggregate.
type UpsertUserCoachPreference struct {
	Tone          string
	DefaultMode   string
	Patterns      string
	UserID        int32
	ApprovedCount int32
	ModifiedCount int32
	RejectedCount int32
	TotalCount    int32
}
