package domain

import "time"

// StatusProcessing is the only inspection status the client acts on.
const StatusProcessing = "PROCESSING"

type Inspection struct {
	ID           string
	Status       string
	PropertyID   string
	PropertyName string
	UnitName     string
	CleanerName  string
	Score        *float64
	Grade        string
	Summary      string
	CreatedAt    *time.Time
	CompletedAt  *time.Time
	Rooms        []RoomResult
	Raw          Payload
}

type RoomResult struct {
	Name       string
	RoomType   string
	Score      *float64
	Issues     []string
	PhotoCount int
}

type Assignment struct {
	ID           string
	UnitID       string
	UnitName     string
	PropertyName string
	Status       string
	ScheduledFor *time.Time
	Notes        string
}
