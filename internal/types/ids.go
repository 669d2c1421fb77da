package types

import (
	"time"

	"github.com/google/uuid"
)

// NewSurveyID generates a UUIDv7 survey identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSurveyID() SurveyID {
	return SurveyID(uuid.Must(uuid.NewV7()).String())
}

// NewSectionID generates a UUIDv7 section identifier.
func NewSectionID() SectionID {
	return SectionID(uuid.Must(uuid.NewV7()).String())
}

// NewFieldID generates a UUIDv7 field identifier.
func NewFieldID() FieldID {
	return FieldID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 logic rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewResponseID generates a UUIDv7 response identifier.
func NewResponseID() ResponseID {
	return ResponseID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key identifier.
func NewAPIKeyID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseSurveyID validates and converts a string to SurveyID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseSurveyID(s string) (SurveyID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return SurveyID(s), nil
}

// ParseResponseID validates and converts a string to ResponseID.
func ParseResponseID(s string) (ResponseID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return ResponseID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ResponseIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Enables time-based cleanup queries without a separate created_at lookup.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func ResponseIDTime(id ResponseID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
