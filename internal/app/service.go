package app

import (
	"context"
	"fmt"

	"hostiq/internal/domain"
)

// Service turns raw backend payloads into read views for the CLI.
type Service struct {
	api domain.HostIQClient
}

func NewService(api domain.HostIQClient) *Service {
	return &Service{api: api}
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	return mapUser(res.User), nil
}

func (s *Service) Logout(ctx context.Context) error { return s.api.Logout(ctx) }

func (s *Service) Me(ctx context.Context) (domain.User, error) {
	p, err := s.api.Me(ctx)
	if err != nil {
		return domain.User{}, err
	}
	return mapUser(p), nil
}

func (s *Service) Assignments(ctx context.Context) ([]domain.Assignment, error) {
	ps, err := s.api.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapAssignment), nil
}

func (s *Service) CleanerInspections(ctx context.Context) ([]domain.Inspection, error) {
	ps, err := s.api.ListCleanerInspections(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapInspection), nil
}

func (s *Service) Inspection(ctx context.Context, id string) (domain.Inspection, error) {
	p, err := s.api.GetInspection(ctx, id)
	if err != nil {
		return domain.Inspection{}, err
	}
	return mapInspection(p), nil
}

func (s *Service) CreateInspection(ctx context.Context, unitID, assignmentID string) (domain.Inspection, error) {
	if unitID == "" {
		return domain.Inspection{}, fmt.Errorf("unit id is required")
	}
	p, err := s.api.CreateInspection(ctx, unitID, assignmentID)
	if err != nil {
		return domain.Inspection{}, err
	}
	return mapInspection(p), nil
}

// UploadPhoto fills in the room type from the suggestion table when the
// caller only knows the room's display name.
func (s *Service) UploadPhoto(ctx context.Context, inspectionID string, photo domain.PhotoUpload) error {
	if photo.RoomType == "" {
		if sug, ok := domain.RoomSuggestions(photo.RoomName); ok {
			photo.RoomType = sug.Type
		}
	}
	_, err := s.api.UploadPhoto(ctx, inspectionID, photo)
	return err
}

func (s *Service) SubmitInspection(ctx context.Context, id string) (domain.Inspection, error) {
	p, err := s.api.SubmitInspection(ctx, id)
	if err != nil {
		return domain.Inspection{}, err
	}
	return mapInspection(p), nil
}

func (s *Service) RejectInspection(ctx context.Context, id, reason string) (domain.Inspection, error) {
	if reason == "" {
		return domain.Inspection{}, fmt.Errorf("a rejection reason is required")
	}
	p, err := s.api.RejectInspection(ctx, id, reason)
	if err != nil {
		return domain.Inspection{}, err
	}
	return mapInspection(p), nil
}

func (s *Service) Report(ctx context.Context, id string) (domain.Payload, error) {
	return s.api.InspectionReport(ctx, id)
}

func (s *Service) Properties(ctx context.Context) ([]domain.Property, error) {
	ps, err := s.api.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapProperty), nil
}

func (s *Service) Property(ctx context.Context, id string) (domain.Property, error) {
	p, err := s.api.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	return mapProperty(p), nil
}

func (s *Service) CreateProperty(ctx context.Context, np domain.NewProperty) (domain.Property, error) {
	if np.Name == "" {
		return domain.Property{}, fmt.Errorf("property name is required")
	}
	p, err := s.api.CreateProperty(ctx, np)
	if err != nil {
		return domain.Property{}, err
	}
	return mapProperty(p), nil
}

func (s *Service) Cleaners(ctx context.Context) ([]domain.Cleaner, error) {
	ps, err := s.api.ListCleaners(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapCleaner), nil
}

func (s *Service) Stats(ctx context.Context) (domain.OwnerStats, error) {
	p, err := s.api.OwnerStats(ctx)
	if err != nil {
		return domain.OwnerStats{}, err
	}
	return mapStats(p), nil
}

func (s *Service) Usage(ctx context.Context) (domain.Usage, error) {
	p, err := s.api.SubscriptionUsage(ctx)
	if err != nil {
		return domain.Usage{}, err
	}
	return mapUsage(p), nil
}

func (s *Service) Payments(ctx context.Context) ([]domain.Payment, error) {
	ps, err := s.api.PaymentHistory(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapPayment), nil
}

// PaymentMethods stays opaque: card fields are shown as the backend sends them.
func (s *Service) PaymentMethods(ctx context.Context) ([]domain.Payload, error) {
	return s.api.PaymentMethods(ctx)
}

func (s *Service) Templates(ctx context.Context) ([]domain.RoomTemplate, error) {
	ps, err := s.api.RoomTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(ps, mapTemplate), nil
}
