package model

type ProfileMode string

const (
	ProfileModeWitty  ProfileMode = "witty"
	ProfileModeFormal ProfileMode = "formal"
)

// UserProfile is an AI generated portrait of the journal author
type UserProfile struct {
	Archetype           string   `json:"archetype,omitempty"`
	Summary             string   `json:"summary"`
	DetailedAnalysis    string   `json:"detailedAnalysis,omitempty"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	RecentMood          string   `json:"recentMood"`
}
