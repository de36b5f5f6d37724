package devserver

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostiq/internal/domain"
)

var (
	errNotFound   = errors.New("not found")
	errNoPhotos   = errors.New("inspection has no photos")
	errBadState   = errors.New("inspection is not in a state that allows this")
	errNotReady   = errors.New("inspection is still processing")
	errNeedReason = errors.New("reason is required")
)

const (
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
	statusRejected   = "REJECTED"
)

type Options struct {
	AccessTTL time.Duration
	// ProcessingPolls is how many reads a submitted inspection answers
	// PROCESSING before it completes.
	ProcessingPolls int
	Now             func() time.Time
}

type user struct {
	ID, Email, Password, Name, Role string
}

type session struct {
	userID  string
	expires time.Time
}

type unit struct{ ID, Name string }

type property struct {
	ID, Name, Address string
	Units             []unit
	CreatedAt         time.Time
}

type assignment struct {
	ID, UnitID, CleanerID, Status, Notes string
	ScheduledFor                         time.Time
}

type photo struct {
	ID, RoomName, RoomType, Filename string
	Size                             int64
}

type roomScore struct {
	Name, Type string
	Score      float64
	Issues     []string
	Photos     int
}

type inspection struct {
	ID, UnitID, AssignmentID, CleanerID string
	Status                              string
	Photos                              []photo
	Reads                               int
	Rooms                               []roomScore
	Score                               *float64
	Reason                              string
	CreatedAt                           time.Time
	CompletedAt                         *time.Time
}

type payment struct {
	ID          string
	AmountCents int
	Currency    string
	Status      string
	CreatedAt   time.Time
}

// Store is the in-memory backend state. All methods are safe for
// concurrent use.
type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	ttl   time.Duration
	polls int

	users       map[string]user // by email
	sessions    map[string]session
	refresh     map[string]string // refresh token -> user id
	properties  []*property
	assignments []*assignment
	inspections map[string]*inspection
	order       []string
	payments    []payment
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	polls := opts.ProcessingPolls
	if polls < 0 {
		polls = 0
	}
	s := &Store{
		now:         now,
		ttl:         ttl,
		polls:       polls,
		users:       map[string]user{},
		sessions:    map[string]session{},
		refresh:     map[string]string{},
		inspections: map[string]*inspection{},
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	now := s.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	s.users["owner@hostiq.dev"] = user{ID: "u-owner", Email: "owner@hostiq.dev", Password: "owner123", Name: "Olivia Owner", Role: "OWNER"}
	s.users["cleaner@hostiq.dev"] = user{ID: "u-cleaner", Email: "cleaner@hostiq.dev", Password: "cleaner123", Name: "Carlos Cleaner", Role: "CLEANER"}

	s.properties = []*property{
		{ID: "p-lakeside", Name: "Lakeside Cabin", Address: "1 Shore Rd, Tahoe City, CA",
			Units: []unit{{ID: "unit-1", Name: "Main House"}, {ID: "unit-2", Name: "Guest Cottage"}}, CreatedAt: day.AddDate(0, -6, 0)},
		{ID: "p-loft", Name: "Downtown Loft", Address: "20 Main St, Reno, NV",
			Units: []unit{{ID: "unit-3", Name: "Loft 3B"}}, CreatedAt: day.AddDate(0, -2, 0)},
	}
	s.assignments = []*assignment{
		{ID: "a-1", UnitID: "unit-1", CleanerID: "u-cleaner", Status: "SCHEDULED", ScheduledFor: day.Add(14 * time.Hour), Notes: "Guests arrive at 4pm"},
		{ID: "a-2", UnitID: "unit-3", CleanerID: "u-cleaner", Status: "SCHEDULED", ScheduledFor: day.AddDate(0, 0, 1).Add(10 * time.Hour)},
		{ID: "a-3", UnitID: "unit-2", CleanerID: "u-cleaner", Status: "COMPLETED", ScheduledFor: day.AddDate(0, 0, -1).Add(11 * time.Hour)},
	}

	done := day.AddDate(0, 0, -1).Add(13 * time.Hour)
	seeded := &inspection{
		ID: "i-seed", UnitID: "unit-2", AssignmentID: "a-3", CleanerID: "u-cleaner",
		Status:    statusInProgress,
		CreatedAt: day.AddDate(0, 0, -1).Add(12 * time.Hour),
		Photos: []photo{
			{ID: "ph-seed-1", RoomName: "Bedroom", RoomType: "bedroom"},
			{ID: "ph-seed-2", RoomName: "Bathroom", RoomType: "bathroom"},
			{ID: "ph-seed-3", RoomName: "Kitchen", RoomType: "kitchen"},
		},
	}
	s.complete(seeded, done)
	s.inspections[seeded.ID] = seeded
	s.order = append(s.order, seeded.ID)

	s.payments = []payment{
		{ID: "pay-1", AmountCents: 4900, Currency: "usd", Status: "succeeded", CreatedAt: day.AddDate(0, -1, 0)},
		{ID: "pay-2", AmountCents: 4900, Currency: "usd", Status: "succeeded", CreatedAt: day.AddDate(0, -2, 0)},
	}
}

// ---- auth ----

func (s *Store) login(email, password string) (access, refresh string, u user, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok = s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || u.Password != password {
		return "", "", user{}, false
	}
	access = s.issueLocked(u.ID)
	refresh = uuid.NewString()
	s.refresh[refresh] = u.ID
	return access, refresh, u, true
}

func (s *Store) issueLocked(userID string) string {
	tok := uuid.NewString()
	s.sessions[tok] = session{userID: userID, expires: s.now().Add(s.ttl)}
	return tok
}

// refreshAccess issues a new access token for a known refresh token.
func (s *Store) refreshAccess(refreshToken string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.refresh[refreshToken]
	if !ok {
		return "", false
	}
	return s.issueLocked(uid), true
}

func (s *Store) authenticate(token string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return user{}, false
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, token)
		return user{}, false
	}
	for _, u := range s.users {
		if u.ID == sess.userID {
			return u, true
		}
	}
	return user{}, false
}

// RevokeRefreshTokens forgets every refresh token, forcing a new login.
func (s *Store) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = map[string]string{}
}

// ---- lookups (callers hold mu) ----

func (s *Store) unitLocked(id string) (*property, unit, bool) {
	for _, p := range s.properties {
		for _, u := range p.Units {
			if u.ID == id {
				return p, u, true
			}
		}
	}
	return nil, unit{}, false
}

func (s *Store) userByIDLocked(id string) user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return user{}
}

// ---- inspections ----

func (s *Store) createInspection(cleanerID, unitID, assignmentID string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.unitLocked(unitID); !ok {
		return nil, fmt.Errorf("unit %q: %w", unitID, errNotFound)
	}
	in := &inspection{
		ID:           "i-" + uuid.NewString()[:8],
		UnitID:       unitID,
		AssignmentID: assignmentID,
		CleanerID:    cleanerID,
		Status:       statusInProgress,
		CreatedAt:    s.now().UTC(),
	}
	s.inspections[in.ID] = in
	s.order = append(s.order, in.ID)
	return s.inspectionJSONLocked(in), nil
}

func (s *Store) addPhoto(id string, p photo) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inspections[id]
	if !ok {
		return nil, errNotFound
	}
	if in.Status != statusInProgress {
		return nil, errBadState
	}
	if p.RoomType == "" {
		if sug, ok := domain.RoomSuggestions(p.RoomName); ok {
			p.RoomType = sug.Type
		}
	}
	p.ID = "ph-" + uuid.NewString()[:8]
	in.Photos = append(in.Photos, p)
	return map[string]any{"id": p.ID, "roomName": p.RoomName, "roomType": p.RoomType, "filename": p.Filename, "size": p.Size}, nil
}

func (s *Store) submit(id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inspections[id]
	if !ok {
		return nil, errNotFound
	}
	if in.Status != statusInProgress {
		return nil, errBadState
	}
	if len(in.Photos) == 0 {
		return nil, errNoPhotos
	}
	in.Status = domain.StatusProcessing
	in.Reads = 0
	return s.inspectionJSONLocked(in), nil
}

// readInspection counts a read of a PROCESSING inspection and completes it
// once it has been read polls times.
func (s *Store) readInspection(id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inspections[id]
	if !ok {
		return nil, errNotFound
	}
	if in.Status == domain.StatusProcessing {
		if in.Reads >= s.polls {
			s.complete(in, s.now().UTC())
		} else {
			in.Reads++
		}
	}
	return s.inspectionJSONLocked(in), nil
}

func (s *Store) reject(id, reason string) (map[string]any, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errNeedReason
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inspections[id]
	if !ok {
		return nil, errNotFound
	}
	if in.Status != statusCompleted {
		return nil, errBadState
	}
	in.Status = statusRejected
	in.Reason = reason
	return s.inspectionJSONLocked(in), nil
}

func (s *Store) report(id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inspections[id]
	if !ok {
		return nil, errNotFound
	}
	if in.CompletedAt == nil {
		return nil, errNotReady
	}
	return map[string]any{
		"report": map[string]any{
			"inspectionId": in.ID,
			"generatedAt":  s.now().UTC().Format(time.RFC3339),
			"inspection":   s.inspectionJSONLocked(in),
		},
	}, nil
}

func (s *Store) cleanerInspections(cleanerID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for i := len(s.order) - 1; i >= 0; i-- {
		in := s.inspections[s.order[i]]
		if cleanerID == "" || in.CleanerID == cleanerID {
			out = append(out, s.inspectionJSONLocked(in))
		}
	}
	return out
}

// complete fabricates deterministic room scores from the photos.
func (s *Store) complete(in *inspection, at time.Time) {
	byRoom := map[string]*roomScore{}
	var names []string
	for _, p := range in.Photos {
		rs, ok := byRoom[p.RoomName]
		if !ok {
			rs = &roomScore{Name: p.RoomName, Type: p.RoomType}
			byRoom[p.RoomName] = rs
			names = append(names, p.RoomName)
		}
		rs.Photos++
	}
	sort.Strings(names)

	in.Rooms = in.Rooms[:0]
	total := 0.0
	for _, name := range names {
		rs := byRoom[name]
		rs.Score = fabricateScore(in.ID, name)
		if rs.Score < 8 {
			rs.Issues = fabricateIssues(rs.Type)
		}
		in.Rooms = append(in.Rooms, *rs)
		total += rs.Score
	}
	if len(in.Rooms) > 0 {
		avg := math.Round(total/float64(len(in.Rooms))*10) / 10
		in.Score = &avg
	}
	in.Status = statusCompleted
	in.CompletedAt = &at
}

// fabricateScore maps (inspection, room) to 6.0..10.0.
func fabricateScore(inspectionID, room string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(inspectionID + "/" + room))
	return 6 + float64(h.Sum32()%41)/10
}

func fabricateIssues(roomType string) []string {
	sug, ok := domain.RoomSuggestions(roomType)
	if !ok || len(sug.Checklist) == 0 {
		return []string{"Needs attention"}
	}
	return []string{"Missed: " + strings.ToLower(sug.Checklist[0])}
}

func grade(score *float64) string {
	if score == nil {
		return ""
	}
	switch {
	case *score >= 9:
		return "A"
	case *score >= 8:
		return "B"
	case *score >= 7:
		return "C"
	}
	return "D"
}

func (s *Store) inspectionJSONLocked(in *inspection) map[string]any {
	p, u, _ := s.unitLocked(in.UnitID)
	out := map[string]any{
		"id":           in.ID,
		"status":       in.Status,
		"unitId":       in.UnitID,
		"assignmentId": in.AssignmentID,
		"photoCount":   len(in.Photos),
		"createdAt":    in.CreatedAt.Format(time.RFC3339),
		"cleaner":      map[string]any{"id": in.CleanerID, "name": s.userByIDLocked(in.CleanerID).Name},
	}
	if p != nil {
		out["unit"] = map[string]any{
			"id":       u.ID,
			"name":     u.Name,
			"property": map[string]any{"id": p.ID, "name": p.Name},
		}
	}
	if in.CompletedAt != nil {
		out["completedAt"] = in.CompletedAt.Format(time.RFC3339)
		out["cleanlinessScore"] = in.Score
		out["grade"] = grade(in.Score)
		out["summary"] = fmt.Sprintf("%d rooms analysed", len(in.Rooms))
		rooms := make([]map[string]any, 0, len(in.Rooms))
		for _, r := range in.Rooms {
			rooms = append(rooms, map[string]any{
				"roomName":   r.Name,
				"roomType":   r.Type,
				"score":      r.Score,
				"issues":     r.Issues,
				"photoCount": r.Photos,
			})
		}
		out["rooms"] = rooms
	}
	if in.Reason != "" {
		out["rejectionReason"] = in.Reason
	}
	return out
}

// ---- cleaner / owner ----

func (s *Store) cleanerAssignments(cleanerID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, a := range s.assignments {
		if cleanerID != "" && a.CleanerID != cleanerID {
			continue
		}
		m := map[string]any{
			"id":           a.ID,
			"unitId":       a.UnitID,
			"status":       a.Status,
			"scheduledFor": a.ScheduledFor.Format(time.RFC3339),
		}
		if a.Notes != "" {
			m["notes"] = a.Notes
		}
		if p, u, ok := s.unitLocked(a.UnitID); ok {
			m["unit"] = map[string]any{"id": u.ID, "name": u.Name, "property": map[string]any{"id": p.ID, "name": p.Name}}
		}
		out = append(out, m)
	}
	return out
}

func propertyJSON(p *property) map[string]any {
	units := make([]map[string]any, 0, len(p.Units))
	for _, u := range p.Units {
		units = append(units, map[string]any{"id": u.ID, "name": u.Name})
	}
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"address":   p.Address,
		"units":     units,
		"createdAt": p.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Store) listProperties() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, propertyJSON(p))
	}
	return out
}

func (s *Store) getProperty(id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.properties {
		if p.ID == id {
			return propertyJSON(p), nil
		}
	}
	return nil, errNotFound
}

func (s *Store) createProperty(np domain.NewProperty) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &property{ID: "p-" + uuid.NewString()[:8], Name: np.Name, Address: np.Address, CreatedAt: s.now().UTC()}
	n := np.Units
	if n <= 0 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		p.Units = append(p.Units, unit{ID: fmt.Sprintf("%s-u%d", p.ID, i), Name: fmt.Sprintf("Unit %d", i)})
	}
	s.properties = append(s.properties, p)
	return propertyJSON(p)
}

func (s *Store) cleaners() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, u := range s.users {
		if u.Role != "CLEANER" {
			continue
		}
		count, total := 0, 0.0
		for _, in := range s.inspections {
			if in.CleanerID == u.ID && in.Score != nil {
				count++
				total += *in.Score
			}
		}
		m := map[string]any{"id": u.ID, "name": u.Name, "email": u.Email, "_count": map[string]any{"inspections": count}}
		if count > 0 {
			m["averageScore"] = math.Round(total/float64(count)*10) / 10
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["id"].(string) < out[j]["id"].(string) })
	return out
}

func (s *Store) stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleaners, pending, scored := 0, 0, 0
	total := 0.0
	for _, u := range s.users {
		if u.Role == "CLEANER" {
			cleaners++
		}
	}
	for _, in := range s.inspections {
		if in.Status == statusCompleted {
			pending++
		}
		if in.Score != nil {
			scored++
			total += *in.Score
		}
	}
	out := map[string]any{
		"totalProperties":  len(s.properties),
		"totalCleaners":    cleaners,
		"totalInspections": len(s.inspections),
		"pendingReview":    pending,
	}
	if scored > 0 {
		out["averageScore"] = math.Round(total/float64(scored)*10) / 10
	}
	return out
}

func (s *Store) usage() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	end := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return map[string]any{
		"plan":             "pro",
		"inspectionsUsed":  len(s.inspections),
		"inspectionsLimit": 100,
		"currentPeriodEnd": end.Format(time.RFC3339),
	}
}

func (s *Store) paymentHistory() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, map[string]any{
			"id":          p.ID,
			"amountCents": p.AmountCents,
			"currency":    p.Currency,
			"status":      p.Status,
			"createdAt":   p.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func roomTemplates() []map[string]any {
	out := []map[string]any{}
	for _, typ := range domain.RoomTypes() {
		sug, _ := domain.RoomSuggestions(typ)
		out = append(out, map[string]any{
			"id":       "tpl-" + typ,
			"name":     sug.Display,
			"roomType": typ,
			"items":    sug.Checklist,
		})
	}
	return out
}
