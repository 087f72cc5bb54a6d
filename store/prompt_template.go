package store

// PromptTemplate is a versioned prompt text stored under a key. Disabled
// templates are treated as absent by consumers, which then fall back to
// their hardcoded defaults.
type PromptTemplate struct {
	Key       string
	Version   string
	Template  string
	Enabled   bool
	UpdatedTs int64
}

// FindPromptTemplate specifies conditions for finding prompt templates.
type FindPromptTemplate struct {
	Key *string
}

// UpsertPromptTemplate specifies data for creating or replacing a template.
type UpsertPromptTemplate struct {
	Key      string
	Version  string
	Template string
	Enabled  bool
}
