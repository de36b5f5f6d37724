package app

import (
	"testing"
	"time"
)

func TestMapInspection_Defensive(t *testing.T) {
	p := map[string]any{
		"id":               42.0,
		"status":           "completed",
		"cleanlinessScore": "8,5",
		"unit": map[string]any{
			"name":     "Unit 3B",
			"property": map[string]any{"id": "p1", "name": "Lakeside"},
		},
		"cleaner":   map[string]any{"name": "Ana"},
		"createdAt": "2026-03-01T10:00:00Z",
		"rooms": []any{
			map[string]any{"roomName": "Master Bedroom", "score": 9.0, "issues": []any{"Hair on pillow", map[string]any{"text": "Dust"}}, "photos": []any{"a", "b"}},
			"not a room",
			map[string]any{"name": "Kitchen", "roomType": "kitchen", "score": nil, "photoCount": 4.0},
		},
	}
	in := mapInspection(p)
	if in.ID != "42" || in.Status != "COMPLETED" {
		t.Fatalf("id/status: %+v", in)
	}
	if in.Score == nil || *in.Score != 8.5 {
		t.Fatalf("score: %v", in.Score)
	}
	if in.PropertyID != "p1" || in.PropertyName != "Lakeside" || in.UnitName != "Unit 3B" || in.CleanerName != "Ana" {
		t.Fatalf("names: %+v", in)
	}
	if in.CreatedAt == nil || !in.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt: %v", in.CreatedAt)
	}
	if len(in.Rooms) != 2 {
		t.Fatalf("rooms: %+v", in.Rooms)
	}
	bed := in.Rooms[0]
	if bed.RoomType != "bedroom" || bed.PhotoCount != 2 || len(bed.Issues) != 2 || bed.Issues[1] != "Dust" {
		t.Fatalf("bedroom: %+v", bed)
	}
	if in.Rooms[1].Score != nil || in.Rooms[1].PhotoCount != 4 {
		t.Fatalf("kitchen: %+v", in.Rooms[1])
	}
}

func TestMapInspection_WrongTypesBecomeZero(t *testing.T) {
	in := mapInspection(map[string]any{"id": []any{1}, "status": 7.0, "score": "n/a", "rooms": "none"})
	if in.ID != "" || in.Score != nil || len(in.Rooms) != 0 {
		t.Fatalf("expected zero values, got %+v", in)
	}
	if in.Status != "7" {
		t.Fatalf("numbers render as strings, got %q", in.Status)
	}
}

func TestSafeTime_Forms(t *testing.T) {
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{"2026-01-02", "2026-01-02T00:00:00Z", float64(want.Unix()), float64(want.UnixMilli())} {
		got, ok := safeTime(v)
		if !ok || !got.Equal(want) {
			t.Fatalf("%v: got %v ok=%v", v, got, ok)
		}
	}
	if _, ok := safeTime("yesterday"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestMapPropertyAndPayment(t *testing.T) {
	p := mapProperty(map[string]any{
		"id":      "p1",
		"name":    "Lakeside",
		"address": map[string]any{"street": "1 Shore Rd", "city": "Tahoe", "state": "CA"},
		"units":   []any{map[string]any{}, map[string]any{}},
	})
	if p.Address != "1 Shore Rd, Tahoe, CA" || p.UnitCount != 2 {
		t.Fatalf("property: %+v", p)
	}

	pay := mapPayment(map[string]any{"id": "pay1", "amountCents": 2999.0, "currency": "usd"})
	if pay.Amount != 29.99 || pay.Currency != "USD" {
		t.Fatalf("payment: %+v", pay)
	}

	c := mapCleaner(map[string]any{"id": 7.0, "firstName": "Ana", "lastName": "Lima", "_count": map[string]any{"inspections": 12.0}})
	if c.ID != "7" || c.Name != "Ana Lima" || c.InspectionCount != 12 {
		t.Fatalf("cleaner: %+v", c)
	}
}

func TestMapInspection_NonFiniteScoresDropped(t *testing.T) {
	for _, v := range []any{"NaN", "Inf", "-infinity", "+Inf"} {
		if in := mapInspection(map[string]any{"id": "i1", "score": v}); in.Score != nil {
			t.Fatalf("%v: expected no score, got %v", v, *in.Score)
		}
	}
	in := mapInspection(map[string]any{"id": "i1", "score": "nan", "aiScore": 7.5})
	if in.Score == nil || *in.Score != 7.5 {
		t.Fatalf("expected fallback to aiScore, got %v", in.Score)
	}
}
