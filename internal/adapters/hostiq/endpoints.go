package hostiq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"hostiq/internal/domain"
)

// ---- Auth ----

// Login exchanges credentials for a token pair and persists both tokens.
func (c *Client) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	var resp struct {
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
		User         domain.Payload `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth/login", "/auth/login", body, &resp); err != nil {
		return domain.LoginResult{}, err
	}
	if resp.AccessToken == "" {
		return domain.LoginResult{}, fmt.Errorf("login: response carried no access token")
	}
	if err := c.tokens.Set(ctx, domain.AccessTokenKey, resp.AccessToken); err != nil {
		return domain.LoginResult{}, fmt.Errorf("persist access token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := c.tokens.Set(ctx, domain.RefreshTokenKey, resp.RefreshToken); err != nil {
			return domain.LoginResult{}, fmt.Errorf("persist refresh token: %w", err)
		}
	} else if err := c.tokens.Delete(ctx, domain.RefreshTokenKey); err != nil {
		// a previous session's refresh token must not outlive this login
		return domain.LoginResult{}, fmt.Errorf("drop stale refresh token: %w", err)
	}
	return domain.LoginResult{
		Tokens: domain.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

// Logout forgets the stored tokens. The backend keeps no session to end.
func (c *Client) Logout(ctx context.Context) error {
	return c.clearTokens(ctx)
}

func (c *Client) Me(ctx context.Context) (domain.Payload, error) {
	return c.object(ctx, "/auth/me", "/auth/me", "user")
}

// ---- Cleaner ----

func (c *Client) ListAssignments(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/cleaner/assignments", "/cleaner/assignments", "assignments")
}

func (c *Client) ListCleanerInspections(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/cleaner/inspections", "/cleaner/inspections", "inspections")
}

func (c *Client) CreateInspection(ctx context.Context, unitID, assignmentID string) (domain.Payload, error) {
	body := map[string]string{"unitId": unitID}
	if assignmentID != "" {
		body["assignmentId"] = assignmentID
	}
	var out domain.Payload
	if err := c.call(ctx, http.MethodPost, "/inspections", "/inspections", body, &out); err != nil {
		return nil, err
	}
	return unwrap(out, "inspection"), nil
}

// UploadPhoto sends one room photo as multipart/form-data (field "photo").
func (c *Client) UploadPhoto(ctx context.Context, inspectionID string, photo domain.PhotoUpload) (domain.Payload, error) {
	if photo.Body == nil {
		return nil, errors.New("upload photo: body is required")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if photo.RoomName != "" {
		if err := mw.WriteField("roomName", photo.RoomName); err != nil {
			return nil, err
		}
	}
	if photo.RoomType != "" {
		if err := mw.WriteField("roomType", photo.RoomType); err != nil {
			return nil, err
		}
	}
	filename := photo.Filename
	if filename == "" {
		filename = "photo.jpg"
	}
	fw, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	if _, err := io.Copy(fw, photo.Body); err != nil {
		return nil, fmt.Errorf("upload photo: read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	r := &request{
		method:      http.MethodPost,
		path:        "/inspections/" + url.PathEscape(inspectionID) + "/photos",
		route:       "/inspections/:id/photos",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	var out domain.Payload
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return unwrap(out, "photo"), nil
}

func (c *Client) SubmitInspection(ctx context.Context, id string) (domain.Payload, error) {
	var out domain.Payload
	path := "/inspections/" + url.PathEscape(id) + "/submit"
	if err := c.call(ctx, http.MethodPost, "/inspections/:id/submit", path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return unwrap(out, "inspection"), nil
}

// ---- Inspections ----

func (c *Client) GetInspection(ctx context.Context, id string) (domain.Payload, error) {
	return c.object(ctx, "/inspections/:id", "/inspections/"+url.PathEscape(id), "inspection")
}

func (c *Client) RejectInspection(ctx context.Context, id, reason string) (domain.Payload, error) {
	var out domain.Payload
	path := "/inspections/" + url.PathEscape(id) + "/reject"
	if err := c.call(ctx, http.MethodPost, "/inspections/:id/reject", path, map[string]string{"reason": reason}, &out); err != nil {
		return nil, err
	}
	return unwrap(out, "inspection"), nil
}

func (c *Client) InspectionReport(ctx context.Context, id string) (domain.Payload, error) {
	return c.object(ctx, "/reports/inspections/:id", "/reports/inspections/"+url.PathEscape(id), "report")
}

// ---- Owner ----

func (c *Client) ListProperties(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/owner/properties", "/owner/properties", "properties")
}

func (c *Client) GetProperty(ctx context.Context, id string) (domain.Payload, error) {
	return c.object(ctx, "/owner/properties/:id", "/owner/properties/"+url.PathEscape(id), "property")
}

func (c *Client) CreateProperty(ctx context.Context, p domain.NewProperty) (domain.Payload, error) {
	var out domain.Payload
	if err := c.call(ctx, http.MethodPost, "/owner/properties", "/owner/properties", p, &out); err != nil {
		return nil, err
	}
	return unwrap(out, "property"), nil
}

func (c *Client) ListCleaners(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/owner/cleaners", "/owner/cleaners", "cleaners")
}

func (c *Client) OwnerStats(ctx context.Context) (domain.Payload, error) {
	return c.object(ctx, "/owner/stats", "/owner/stats", "stats")
}

// ---- Billing ----

func (c *Client) SubscriptionUsage(ctx context.Context) (domain.Payload, error) {
	return c.object(ctx, "/subscriptions/usage", "/subscriptions/usage", "usage")
}

func (c *Client) PaymentHistory(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/payments/history", "/payments/history", "payments")
}

func (c *Client) PaymentMethods(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/payments/methods", "/payments/methods", "methods", "paymentMethods")
}

func (c *Client) RoomTemplates(ctx context.Context) ([]domain.Payload, error) {
	return c.list(ctx, "/room-templates", "/room-templates", "templates", "roomTemplates")
}

// ---- payload shapes ----

func (c *Client) object(ctx context.Context, route, path, envelope string) (domain.Payload, error) {
	var out domain.Payload
	if err := c.call(ctx, http.MethodGet, route, path, nil, &out); err != nil {
		return nil, err
	}
	return unwrap(out, envelope), nil
}

func (c *Client) list(ctx context.Context, route, path string, envelopes ...string) ([]domain.Payload, error) {
	var raw any
	if err := c.call(ctx, http.MethodGet, route, path, nil, &raw); err != nil {
		return nil, err
	}
	return asList(raw, envelopes...), nil
}

// unwrap returns obj[key] (or obj["data"]) when the backend wrapped the
// entity in an envelope. Objects carrying their own "id" are left alone.
func unwrap(obj domain.Payload, key string) domain.Payload {
	if obj == nil {
		return domain.Payload{}
	}
	if _, ok := obj["id"]; ok {
		return obj
	}
	for _, k := range []string{key, "data"} {
		if inner, ok := obj[k].(map[string]any); ok {
			return inner
		}
	}
	return obj
}

// asList accepts a bare array or an envelope holding the array.
func asList(raw any, envelopes ...string) []domain.Payload {
	var arr []any
	switch v := raw.(type) {
	case []any:
		arr = v
	case map[string]any:
		keys := make([]string, 0, len(envelopes)+3)
		keys = append(keys, envelopes...)
		keys = append(keys, "data", "items", "results")
		for _, k := range keys {
			if a, ok := v[k].([]any); ok {
				arr = a
				break
			}
		}
	}
	out := make([]domain.Payload, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
