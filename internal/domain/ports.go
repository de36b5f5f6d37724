package domain

import (
	"context"
	"io"
)

// Key names of the two persisted credentials.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// TokenStore persists the access/refresh token pair between runs.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Payload is an opaque JSON object owned by the backend.
type Payload = map[string]any

type HostIQClient interface {
	// Auth
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (Payload, error)

	// Cleaner
	ListAssignments(ctx context.Context) ([]Payload, error)
	ListCleanerInspections(ctx context.Context) ([]Payload, error)
	CreateInspection(ctx context.Context, unitID, assignmentID string) (Payload, error)
	UploadPhoto(ctx context.Context, inspectionID string, photo PhotoUpload) (Payload, error)
	SubmitInspection(ctx context.Context, id string) (Payload, error)

	// Inspections
	GetInspection(ctx context.Context, id string) (Payload, error)
	RejectInspection(ctx context.Context, id, reason string) (Payload, error)
	InspectionReport(ctx context.Context, id string) (Payload, error)

	// Owner
	ListProperties(ctx context.Context) ([]Payload, error)
	GetProperty(ctx context.Context, id string) (Payload, error)
	CreateProperty(ctx context.Context, p NewProperty) (Payload, error)
	ListCleaners(ctx context.Context) ([]Payload, error)
	OwnerStats(ctx context.Context) (Payload, error)

	// Billing
	SubscriptionUsage(ctx context.Context) (Payload, error)
	PaymentHistory(ctx context.Context) ([]Payload, error)
	PaymentMethods(ctx context.Context) ([]Payload, error)

	RoomTemplates(ctx context.Context) ([]Payload, error)
}

type LoginResult struct {
	Tokens TokenPair
	User   Payload
}

type PhotoUpload struct {
	RoomName string
	RoomType string
	Filename string
	Body     io.Reader
}

type NewProperty struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Units   int    `json:"units,omitempty"`
}
