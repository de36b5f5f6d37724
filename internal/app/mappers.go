package app

import (
	"math"
	"strconv"
	"strings"
	"time"

	"hostiq/internal/domain"
)

/********** alias registries (single source of truth) **********/

var inspectionAliases = map[string][]string{
	"id":            {"id", "_id", "inspectionId"},
	"status":        {"status", "state"},
	"property_id":   {"propertyId", "property_id", "property.id", "unit.propertyId", "unit.property.id"},
	"property_name": {"propertyName", "property.name", "unit.property.name"},
	"unit_name":     {"unitName", "unit.name"},
	"cleaner_name":  {"cleanerName", "cleaner.name", "cleaner.user.name"},
	"score":         {"score", "cleanlinessScore", "overallScore", "aiScore", "result.score"},
	"grade":         {"grade", "cleanlinessGrade", "result.grade"},
	"summary":       {"summary", "aiSummary", "result.summary"},
	"created_at":    {"createdAt", "created_at", "submittedAt"},
	"completed_at":  {"completedAt", "completed_at", "processedAt"},
	"rooms":         {"rooms", "roomResults", "result.rooms"},
}

var roomAliases = map[string][]string{
	"name":   {"name", "roomName", "room.name"},
	"type":   {"roomType", "type", "room.type"},
	"score":  {"score", "cleanlinessScore", "aiScore"},
	"issues": {"issues", "problems", "aiIssues"},
	"photos": {"photos", "images"},
}

var assignmentAliases = map[string][]string{
	"id":            {"id", "_id", "assignmentId"},
	"unit_id":       {"unitId", "unit_id", "unit.id"},
	"unit_name":     {"unitName", "unit.name"},
	"property_name": {"propertyName", "property.name", "unit.property.name"},
	"status":        {"status", "state"},
	"scheduled_for": {"scheduledFor", "scheduledDate", "scheduled_at", "date", "dueDate"},
	"notes":         {"notes", "instructions"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// safeString renders strings and numbers; anything else is "".
func safeString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// safeNumber accepts float64/int and numeric strings like "8,5". NaN and
// infinities are rejected.
func safeNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if finite(t) {
			return t, true
		}
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
			return f, true
		}
	}
	return 0, false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// safeTime accepts RFC 3339 (with or without fraction), a bare date, or
// unix seconds/milliseconds.
func safeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
		return time.Unix(int64(t), 0).UTC(), true
	}
	return time.Time{}, false
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := safeString(lookupAny(m, p)); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(m map[string]any, paths ...string) *float64 {
	for _, p := range paths {
		if f, ok := safeNumber(lookupAny(m, p)); ok {
			return &f
		}
	}
	return nil
}

func firstInt(m map[string]any, paths ...string) int {
	if f := firstNumber(m, paths...); f != nil {
		return int(*f)
	}
	return 0
}

func firstTime(m map[string]any, paths ...string) *time.Time {
	for _, p := range paths {
		if ts, ok := safeTime(lookupAny(m, p)); ok {
			return &ts
		}
	}
	return nil
}

func firstSlice(m map[string]any, paths ...string) []any {
	for _, p := range paths {
		if raw, ok := lookupAny(m, p).([]any); ok {
			return raw
		}
	}
	return nil
}

// firstStrings: accept []any with either strings or {text/label/name/description}.
func firstStrings(m map[string]any, paths ...string) []string {
	raw := firstSlice(m, paths...)
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		switch t := it.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := firstString(t, "text", "label", "name", "description", "title"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

/********** mappers **********/

func mapInspection(p domain.Payload) domain.Inspection {
	a := inspectionAliases
	in := domain.Inspection{
		ID:           firstString(p, a["id"]...),
		Status:       strings.ToUpper(firstString(p, a["status"]...)),
		PropertyID:   firstString(p, a["property_id"]...),
		PropertyName: firstString(p, a["property_name"]...),
		UnitName:     firstString(p, a["unit_name"]...),
		CleanerName:  firstString(p, a["cleaner_name"]...),
		Score:        firstNumber(p, a["score"]...),
		Grade:        firstString(p, a["grade"]...),
		Summary:      firstString(p, a["summary"]...),
		CreatedAt:    firstTime(p, a["created_at"]...),
		CompletedAt:  firstTime(p, a["completed_at"]...),
		Raw:          p,
	}
	for _, r := range firstSlice(p, a["rooms"]...) {
		if rm, ok := r.(map[string]any); ok {
			in.Rooms = append(in.Rooms, mapRoom(rm))
		}
	}
	return in
}

func mapRoom(m map[string]any) domain.RoomResult {
	r := domain.RoomResult{
		Name:     firstString(m, roomAliases["name"]...),
		RoomType: firstString(m, roomAliases["type"]...),
		Score:    firstNumber(m, roomAliases["score"]...),
		Issues:   firstStrings(m, roomAliases["issues"]...),
	}
	if n := firstInt(m, "photoCount", "photosCount"); n > 0 {
		r.PhotoCount = n
	} else {
		r.PhotoCount = len(firstSlice(m, roomAliases["photos"]...))
	}
	// fall back to the static table when the backend omits the type
	if r.RoomType == "" {
		if s, ok := domain.RoomSuggestions(r.Name); ok {
			r.RoomType = s.Type
		}
	}
	return r
}

func mapAssignment(p domain.Payload) domain.Assignment {
	a := assignmentAliases
	return domain.Assignment{
		ID:           firstString(p, a["id"]...),
		UnitID:       firstString(p, a["unit_id"]...),
		UnitName:     firstString(p, a["unit_name"]...),
		PropertyName: firstString(p, a["property_name"]...),
		Status:       strings.ToUpper(firstString(p, a["status"]...)),
		ScheduledFor: firstTime(p, a["scheduled_for"]...),
		Notes:        firstString(p, a["notes"]...),
	}
}

func mapProperty(p domain.Payload) domain.Property {
	addr := firstString(p, "address", "fullAddress", "address.line", "address.full")
	if addr == "" {
		addr = joinNonEmpty(", ",
			firstString(p, "address.street", "street"),
			firstString(p, "address.city", "city"),
			firstString(p, "address.state", "state"),
			firstString(p, "address.zip", "address.postcode", "zip"),
		)
	}
	units := firstInt(p, "unitCount", "unitsCount", "_count.units")
	if units == 0 {
		units = len(firstSlice(p, "units"))
	}
	return domain.Property{
		ID:        firstString(p, "id", "_id", "propertyId"),
		Name:      firstString(p, "name", "title", "propertyName"),
		Address:   addr,
		UnitCount: units,
	}
}

func mapCleaner(p domain.Payload) domain.Cleaner {
	name := firstString(p, "name", "fullName", "user.name")
	if name == "" {
		name = joinNonEmpty(" ", firstString(p, "firstName", "first_name"), firstString(p, "lastName", "last_name"))
	}
	return domain.Cleaner{
		ID:              firstString(p, "id", "_id", "cleanerId"),
		Name:            name,
		Email:           firstString(p, "email", "user.email"),
		Phone:           firstString(p, "phone", "phoneNumber"),
		InspectionCount: firstInt(p, "inspectionCount", "inspectionsCount", "_count.inspections"),
		AverageScore:    firstNumber(p, "averageScore", "avgScore"),
	}
}

func mapStats(p domain.Payload) domain.OwnerStats {
	return domain.OwnerStats{
		Properties:    firstInt(p, "totalProperties", "properties", "propertyCount"),
		Cleaners:      firstInt(p, "totalCleaners", "cleaners", "cleanerCount"),
		Inspections:   firstInt(p, "totalInspections", "inspections", "inspectionCount"),
		PendingReview: firstInt(p, "pendingReview", "pendingReviews", "needsReview"),
		AverageScore:  firstNumber(p, "averageScore", "avgScore", "averageCleanliness"),
	}
}

func mapUsage(p domain.Payload) domain.Usage {
	return domain.Usage{
		Plan:             firstString(p, "plan", "planName", "subscription.plan", "tier"),
		InspectionsUsed:  firstInt(p, "inspectionsUsed", "used", "usage.inspections"),
		InspectionsLimit: firstInt(p, "inspectionsLimit", "limit", "usage.limit"),
		PeriodEnd:        firstTime(p, "currentPeriodEnd", "periodEnd", "renewsAt"),
	}
}

func mapPayment(p domain.Payload) domain.Payment {
	pay := domain.Payment{
		ID:        firstString(p, "id", "_id", "paymentId"),
		Currency:  strings.ToUpper(firstString(p, "currency")),
		Status:    firstString(p, "status"),
		CreatedAt: firstTime(p, "createdAt", "created", "date"),
	}
	if f := firstNumber(p, "amount", "total"); f != nil {
		pay.Amount = *f
	} else if f := firstNumber(p, "amountCents", "amount_cents"); f != nil {
		pay.Amount = *f / 100
	}
	return pay
}

func mapTemplate(p domain.Payload) domain.RoomTemplate {
	return domain.RoomTemplate{
		ID:       firstString(p, "id", "_id"),
		Name:     firstString(p, "name", "title"),
		RoomType: firstString(p, "roomType", "type"),
		Items:    firstStrings(p, "items", "checklist", "checklistItems"),
	}
}

func mapUser(p domain.Payload) domain.User {
	name := firstString(p, "name", "fullName")
	if name == "" {
		name = joinNonEmpty(" ", firstString(p, "firstName"), firstString(p, "lastName"))
	}
	return domain.User{
		ID:    firstString(p, "id", "_id", "userId"),
		Email: firstString(p, "email"),
		Name:  name,
		Role:  strings.ToUpper(firstString(p, "role", "type")),
	}
}

func mapAll[T any](in []domain.Payload, f func(domain.Payload) T) []T {
	out := make([]T, 0, len(in))
	for _, p := range in {
		out = append(out, f(p))
	}
	return out
}
