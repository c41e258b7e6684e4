package repository

// Entry kinds.
const (
	KindJournal   = "journal"
	KindLifeStory = "lifestory"
)

// AutosavableFields are the entry fields editing sessions may write.
// Ownership and audit fields are managed by the repository itself.
var AutosavableFields = map[string]bool{
	"title":      true,
	"content":    true,
	"event_date": true,
	"tags":       true,
}

// Entry models a journal or life-story entry.
type Entry struct {
	ID        string   `json:"id"`
	OwnerID   string   `json:"ownerId" validate:"required"`
	Kind      string   `json:"kind" validate:"required,oneof=journal lifestory"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	EventDate string   `json:"event_date"` // YYYY-MM-DD, life-story entries only
	Tags      []string `json:"tags"`
	Draft     bool     `json:"draft"`
	CreatedAt int64    `json:"createdAt"` // Unix timestamp in milliseconds
	UpdatedAt int64    `json:"updatedAt"`
}

// ApplyDefaults sets fallback values after decode.
func (e *Entry) ApplyDefaults() {
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

// ValidKind reports whether kind names a known entry kind.
func ValidKind(kind string) bool {
	return kind == KindJournal || kind == KindLifeStory
}
