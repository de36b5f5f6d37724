package domain_test

import (
	"testing"

	"hostiq/internal/domain"
)

func TestRoomSuggestions_Aliases(t *testing.T) {
	cases := map[string]string{
		"Master Bedroom":   "bedroom",
		"bath 2":           "bathroom",
		"Patio":            "outdoor",
		"living_room":      "living_room",
		"Guest Room":       "bedroom",
		"  KITCHEN ":       "kitchen",
		"Front Hallway":    "entryway",
		"powder-room":      "bathroom",
		"Breakfast Nook 1": "dining_room",
	}
	for in, want := range cases {
		got, ok := domain.RoomSuggestions(in)
		if !ok {
			t.Fatalf("%q: no match", in)
		}
		if got.Type != want {
			t.Fatalf("%q: got %s want %s", in, got.Type, want)
		}
		if len(got.Checklist) == 0 || len(got.Shots) == 0 {
			t.Fatalf("%q: empty guidance", in)
		}
	}
}

func TestRoomSuggestions_Unknown(t *testing.T) {
	for _, in := range []string{"", "   ", "spaceship", "123"} {
		if _, ok := domain.RoomSuggestions(in); ok {
			t.Fatalf("%q: unexpected match", in)
		}
	}
}

func TestRoomTypes_Stable(t *testing.T) {
	a, b := domain.RoomTypes(), domain.RoomTypes()
	if len(a) != 10 {
		t.Fatalf("expected 10 room types, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order changed at %d", i)
		}
	}
}

func TestRoomSuggestions_ReturnsCopies(t *testing.T) {
	got, ok := domain.RoomSuggestions("Kitchen")
	if !ok {
		t.Fatal("no match")
	}
	shot, item, alias := got.Shots[0], got.Checklist[0], got.Aliases[0]
	got.Shots[0], got.Checklist[0], got.Aliases[0] = "x", "x", "x"

	again, _ := domain.RoomSuggestions("Kitchen")
	if again.Shots[0] != shot || again.Checklist[0] != item || again.Aliases[0] != alias {
		t.Fatalf("table mutated through returned slices: %+v", again)
	}
}
