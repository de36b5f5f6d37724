package domain

import "time"

type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type Property struct {
	ID        string
	Name      string
	Address   string
	UnitCount int
}

type Cleaner struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	InspectionCount int
	AverageScore    *float64
}

type OwnerStats struct {
	Properties    int
	Cleaners      int
	Inspections   int
	PendingReview int
	AverageScore  *float64
}

type Usage struct {
	Plan             string
	InspectionsUsed  int
	InspectionsLimit int
	PeriodEnd        *time.Time
}

type Payment struct {
	ID        string
	Amount    float64
	Currency  string
	Status    string
	CreatedAt *time.Time
}

type RoomTemplate struct {
	ID       string
	Name     string
	RoomType string
	Items    []string
}
