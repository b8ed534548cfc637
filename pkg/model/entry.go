package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrEntryNotFound     = goerr.New("entry not found")
	ErrInvalidEntryType  = goerr.New("invalid entry type")
	ErrInvalidImportance = goerr.New("invalid importance")
)

type EntryID string

// NewEntryID generates a new unique EntryID
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

type EntryType string

const (
	EntryTypeEntry       EntryType = "entry"
	EntryTypeDailyReport EntryType = "daily_report"
)

// Partition names the collection that holds records of this type. An empty
// type belongs to the regular partition.
type Partition string

const (
	PartitionEntries      Partition = "entries"
	PartitionDailyReports Partition = "daily_reports"
	PartitionGoals        Partition = "goals"
)

// EntryPartitions lists the partitions that together form the entry collection.
var EntryPartitions = []Partition{PartitionEntries, PartitionDailyReports}

func (t EntryType) Partition() Partition {
	if t == EntryTypeDailyReport {
		return PartitionDailyReports
	}
	return PartitionEntries
}

// Validate checks if the entry type is valid
func (t EntryType) Validate() error {
	switch t {
	case "", EntryTypeEntry, EntryTypeDailyReport:
		return nil
	default:
		return goerr.Wrap(ErrInvalidEntryType, "unknown entry type", goerr.V("type", t))
	}
}

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Validate checks if the importance is valid
func (i Importance) Validate() error {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return nil
	default:
		return goerr.Wrap(ErrInvalidImportance, "unknown importance", goerr.V("importance", i))
	}
}

// MemoryEntry is one journaled moment. Timestamp is milliseconds since epoch
// so that records stay wire compatible with the web client.
type MemoryEntry struct {
	ID               EntryID    `json:"id" firestore:"id"`
	Timestamp        int64      `json:"timestamp" firestore:"timestamp"`
	OriginalText     string     `json:"originalText" firestore:"original_text"`
	ImageURL         string     `json:"imageUrl,omitempty" firestore:"image_url,omitempty"`
	GeneratedCardURL string     `json:"generatedCardUrl,omitempty" firestore:"generated_card_url,omitempty"`
	UserMood         *int       `json:"userMood,omitempty" firestore:"user_mood,omitempty"`
	VisualStyle      string     `json:"visualStyle,omitempty" firestore:"visual_style,omitempty"`
	Title            string     `json:"title" firestore:"title"`
	Summary          string     `json:"summary" firestore:"summary"`
	Tags             []string   `json:"tags" firestore:"tags"`
	Rating           int        `json:"rating" firestore:"rating"`
	Importance       Importance `json:"importance" firestore:"importance"`
	ActionItems      []string   `json:"actionItems" firestore:"action_items"`
	Type             EntryType  `json:"type,omitempty" firestore:"type,omitempty"`
}

// CreatedAt returns Timestamp as time.Time
func (e *MemoryEntry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Mood returns the user mood or fallback when it is not set
func (e *MemoryEntry) Mood(fallback int) int {
	if e.UserMood == nil {
		return fallback
	}
	return *e.UserMood
}

// Copy returns a shallow copy with its own slices, so callers can mutate
// the copy without touching stored state.
func (e *MemoryEntry) Copy() *MemoryEntry {
	c := *e
	c.Tags = append(make([]string, 0, len(e.Tags)), e.Tags...)
	c.ActionItems = append(make([]string, 0, len(e.ActionItems)), e.ActionItems...)
	if e.UserMood != nil {
		mood := *e.UserMood
		c.UserMood = &mood
	}
	return &c
}

// Validate checks field ranges of the entry
func (e *MemoryEntry) Validate() error {
	if err := validation.ValidateStruct(e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Timestamp, validation.Required, validation.Min(int64(0))),
		validation.Field(&e.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&e.UserMood, validation.Min(0), validation.Max(100)),
	); err != nil {
		return goerr.Wrap(err, "invalid memory entry", goerr.V("id", e.ID))
	}
	if err := e.Importance.Validate(); err != nil {
		return err
	}
	return e.Type.Validate()
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
