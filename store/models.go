package store

// Entity kind names, as reported in NotFound errors.
const (
	KindUser        = "User"
	KindEvent       = "Event"
	KindLocation    = "Location"
	KindParticipant = "Participant"
)

// User is a registered account.
type User struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
}

// Event is owned by a User and held at a Location.
type Event struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	Desc       string `json:"desc" yaml:"desc"`
	Date       string `json:"date" yaml:"date"`
	From       string `json:"from" yaml:"from"`
	To         string `json:"to" yaml:"to"`
	LocationID string `json:"location_id" yaml:"location_id"`
	UserID     string `json:"user_id" yaml:"user_id"`
}

// Location is a place events are held at.
type Location struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Desc string `json:"desc" yaml:"desc"`
	Lat  string `json:"lat" yaml:"lat"`
	Lng  string `json:"lng" yaml:"lng"`
}

// Participant links a User to an Event.
type Participant struct {
	ID      string `json:"id" yaml:"id"`
	UserID  string `json:"user_id" yaml:"user_id"`
	EventID string `json:"event_id" yaml:"event_id"`
}

// NewUser holds the fields required to create a User.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewEvent holds the fields required to create an Event.
type NewEvent struct {
	Title      string `json:"title"`
	Desc       string `json:"desc"`
	Date       string `json:"date"`
	From       string `json:"from"`
	To         string `json:"to"`
	LocationID string `json:"location_id"`
	UserID     string `json:"user_id"`
}

// NewLocation holds the fields required to create a Location.
type NewLocation struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	Lat  string `json:"lat"`
	Lng  string `json:"lng"`
}

// NewParticipant holds the fields required to create a Participant.
type NewParticipant struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Apply merges the present fields of p into u.
func (p UserPatch) Apply(u *User) {
	set(&u.Username, p.Username)
	set(&u.Email, p.Email)
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title      *string `json:"title"`
	Desc       *string `json:"desc"`
	Date       *string `json:"date"`
	From       *string `json:"from"`
	To         *string `json:"to"`
	LocationID *string `json:"location_id"`
	UserID     *string `json:"user_id"`
}

// Apply merges the present fields of p into e.
func (p EventPatch) Apply(e *Event) {
	set(&e.Title, p.Title)
	set(&e.Desc, p.Desc)
	set(&e.Date, p.Date)
	set(&e.From, p.From)
	set(&e.To, p.To)
	set(&e.LocationID, p.LocationID)
	set(&e.UserID, p.UserID)
}

// LocationPatch is a partial update; nil fields are left untouched.
type LocationPatch struct {
	Name *string `json:"name"`
	Desc *string `json:"desc"`
	Lat  *string `json:"lat"`
	Lng  *string `json:"lng"`
}

// Apply merges the present fields of p into l.
func (p LocationPatch) Apply(l *Location) {
	set(&l.Name, p.Name)
	set(&l.Desc, p.Desc)
	set(&l.Lat, p.Lat)
	set(&l.Lng, p.Lng)
}

// ParticipantPatch is a partial update; nil fields are left untouched.
type ParticipantPatch struct {
	UserID  *string `json:"user_id"`
	EventID *string `json:"event_id"`
}

// Apply merges the present fields of p into pt.
func (p ParticipantPatch) Apply(pt *Participant) {
	set(&pt.UserID, p.UserID)
	set(&pt.EventID, p.EventID)
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
