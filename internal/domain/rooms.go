package domain

import (
	"slices"
	"sort"
	"strings"
)

// RoomSuggestion is the static capture guidance for one room type.
type RoomSuggestion struct {
	Type      string
	Display   string
	Shots     []string
	Checklist []string
	Aliases   []string
}

var roomTable = map[string]RoomSuggestion{
	"bedroom": {
		Display:   "Bedroom",
		Shots:     []string{"Wide shot from doorway", "Made bed", "Nightstands", "Under the bed", "Closet interior"},
		Checklist: []string{"Fresh linens", "Pillows arranged", "No items left behind", "Floor vacuumed", "Surfaces dusted"},
		Aliases:   []string{"bedroom", "bed room", "master", "guest room", "bunk room", "suite"},
	},
	"bathroom": {
		Display:   "Bathroom",
		Shots:     []string{"Wide shot from doorway", "Toilet", "Sink and vanity", "Shower or tub", "Towel setup"},
		Checklist: []string{"Toilet sanitized", "Mirror streak-free", "Fresh towels", "Toiletries restocked", "Drain clear of hair"},
		Aliases:   []string{"bathroom", "bath", "restroom", "powder room", "wc", "toilet", "ensuite"},
	},
	"kitchen": {
		Display:   "Kitchen",
		Shots:     []string{"Wide shot of counters", "Stovetop", "Inside refrigerator", "Sink", "Inside microwave"},
		Checklist: []string{"Dishes put away", "Counters wiped", "Fridge emptied", "Trash replaced", "Appliances clean"},
		Aliases:   []string{"kitchen", "kitchenette", "galley", "pantry"},
	},
	"living_room": {
		Display:   "Living Room",
		Shots:     []string{"Wide shot from entry", "Sofa and cushions", "Coffee table", "TV area"},
		Checklist: []string{"Cushions arranged", "Remotes placed", "Floor vacuumed", "Surfaces dusted"},
		Aliases:   []string{"living", "lounge", "family room", "den", "sitting room", "great room"},
	},
	"dining_room": {
		Display:   "Dining Room",
		Shots:     []string{"Table and chairs", "Sideboard"},
		Checklist: []string{"Table wiped", "Chairs tucked in", "Floor swept"},
		Aliases:   []string{"dining", "breakfast nook", "eating area"},
	},
	"laundry": {
		Display:   "Laundry",
		Shots:     []string{"Washer interior", "Dryer lint trap", "Supplies shelf"},
		Checklist: []string{"Machines empty", "Lint trap cleared", "Detergent stocked"},
		Aliases:   []string{"laundry", "utility", "washer", "mud room"},
	},
	"outdoor": {
		Display:   "Outdoor",
		Shots:     []string{"Patio overview", "Grill", "Furniture", "Hot tub or pool"},
		Checklist: []string{"Furniture arranged", "Grill cleaned", "Debris removed", "Hot tub covered"},
		Aliases:   []string{"patio", "deck", "balcony", "yard", "garden", "porch", "terrace", "pool", "outdoor"},
	},
	"entryway": {
		Display:   "Entryway",
		Shots:     []string{"Front door", "Entry floor"},
		Checklist: []string{"Floor swept", "Welcome info in place", "Keys or lockbox reset"},
		Aliases:   []string{"entry", "foyer", "hallway", "hall", "corridor", "stairs"},
	},
	"office": {
		Display:   "Office",
		Shots:     []string{"Desk", "Chair"},
		Checklist: []string{"Desk cleared", "Cables tidy", "Surfaces dusted"},
		Aliases:   []string{"office", "study", "workspace"},
	},
	"garage": {
		Display:   "Garage",
		Shots:     []string{"Wide shot", "Parking area"},
		Checklist: []string{"Floor swept", "Trash bins at curb or stored"},
		Aliases:   []string{"garage", "carport", "parking"},
	},
}

// RoomTypes lists the canonical room types in stable order.
func RoomTypes() []string {
	out := make([]string, 0, len(roomTable))
	for k := range roomTable {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RoomSuggestions resolves a free-form room name ("Master Bedroom", "Bath 2")
// to its canonical entry. An exact type match wins over alias matching; among
// aliases the longest match wins so "guest room" beats "room"-like overlaps.
func RoomSuggestions(name string) (RoomSuggestion, bool) {
	n := normalizeRoomName(name)
	if n == "" {
		return RoomSuggestion{}, false
	}
	if typ := strings.ReplaceAll(n, " ", "_"); roomTable[typ].Display != "" {
		return suggestion(typ), true
	}

	best, bestLen := "", 0
	for _, typ := range RoomTypes() {
		for _, alias := range roomTable[typ].Aliases {
			if containsWord(n, alias) && len(alias) > bestLen {
				best, bestLen = typ, len(alias)
			}
		}
	}
	if best == "" {
		return RoomSuggestion{}, false
	}
	return suggestion(best), true
}

// suggestion copies a table entry so callers cannot mutate the table.
func suggestion(typ string) RoomSuggestion {
	s := roomTable[typ]
	s.Type = typ
	s.Shots = slices.Clone(s.Shots)
	s.Checklist = slices.Clone(s.Checklist)
	s.Aliases = slices.Clone(s.Aliases)
	return s
}

func normalizeRoomName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r == '_' || r == '-' || r == ' ':
			return ' '
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether phrase occurs in s on word boundaries.
func containsWord(s, phrase string) bool {
	padded := " " + s + " "
	return strings.Contains(padded, " "+phrase+" ")
}
