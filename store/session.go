package store

// Role tags one turn as spoken by the user or the assistant.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Session is the durable record of one voice conversation.
// UID is the public session identifier; PartitionDate is the creation-date
// partition key (YYYY-MM-DD) that segments records by day for retention.
type Session struct {
	ID            int32
	UID           string
	PartitionDate string
	Mode          string
	// NextMode is non-empty only while a mode transition is pending.
	NextMode     string
	SystemPrompt string
	CreatedTs    int64
	UpdatedTs    int64
}

type FindSession struct {
	ID            *int32
	UID           *string
	PartitionDate *string
}

type UpdateSession struct {
	ID           int32
	Mode         *string
	NextMode     *string
	SystemPrompt *string
	UpdatedTs    *int64
}

type DeleteSession struct {
	ID int32
}

// Turn is one immutable utterance in a session transcript.
type Turn struct {
	ID        int32
	UID       string
	SessionID int32
	Role      Role
	Content   string
	// AudioRef points at the stored audio artifact, empty when none exists.
	AudioRef  string
	CreatedTs int64
}

type FindTurn struct {
	ID        *int32
	UID       *string
	SessionID *int32
}

type DeleteTurn struct {
	SessionID *int32
}

// SummaryArtifact is a derived, wholesale-regenerated condensation of a
// session transcript. At most one row exists per session.
type SummaryArtifact struct {
	ID            int32
	SessionID     int32
	PartitionDate string
	Content       string
	StorageRef    string
	CreatedTs     int64
}

type FindSummaryArtifact struct {
	SessionID *int32
}

type DeleteSummaryArtifact struct {
	SessionID int32
}
