package store

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/eventgraph/errors"
)

// Store holds the four entity collections in process memory.
// It is the only mutator of the records it holds; every read returns a copy.
type Store struct {
	users        *collection[User]
	events       *collection[Event]
	locations    *collection[Location]
	participants *collection[Participant]

	newID  func() string
	strict bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithStrictReferences makes add and update reject foreign keys that
// do not resolve, instead of leaving them dangling.
func WithStrictReferences(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithLogger sets the logger used for seeding and write diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:        newCollection(KindUser, func(u *User) string { return u.ID }),
		events:       newCollection(KindEvent, func(e *Event) string { return e.ID }),
		locations:    newCollection(KindLocation, func(l *Location) string { return l.ID }),
		participants: newCollection(KindParticipant, func(p *Participant) string { return p.ID }),
		newID:        uuid.NewString,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Seed replaces the contents of every collection with the fixture's records.
func (s *Store) Seed(f Fixture) {
	s.users.replace(f.Users)
	s.events.replace(f.Events)
	s.locations.replace(f.Locations)
	s.participants.replace(f.Participants)

	s.logger.Info("Store seeded",
		"users", len(f.Users),
		"events", len(f.Events),
		"locations", len(f.Locations),
		"participants", len(f.Participants))
}

// Counts returns the number of records per kind.
func (s *Store) Counts() map[string]int {
	return map[string]int{
		KindUser:        s.users.len(),
		KindEvent:       s.events.len(),
		KindLocation:    s.locations.len(),
		KindParticipant: s.participants.len(),
	}
}

// Users returns every user in insertion order.
func (s *Store) Users() []User { return s.users.list() }

// User finds a user by id.
func (s *Store) User(id string) (User, error) { return s.users.find(id) }

// AddUser creates a user with a fresh id.
func (s *Store) AddUser(in NewUser) User {
	return s.users.insert(s.newID, func(id string) User {
		return User{ID: id, Username: in.Username, Email: in.Email}
	})
}

// UpdateUser merges patch into the user with the given id.
func (s *Store) UpdateUser(id string, patch UserPatch) (User, error) {
	return s.users.update(id, patch.Apply)
}

// DeleteUser removes a user. Events and participants referencing it are left as they are.
func (s *Store) DeleteUser(id string) (User, error) { return s.users.remove(id) }

// DeleteAllUsers empties the collection and returns how many users it held.
func (s *Store) DeleteAllUsers() int { return s.users.removeAll() }

// Events returns every event in insertion order.
func (s *Store) Events() []Event { return s.events.list() }

// Event finds an event by id.
func (s *Store) Event(id string) (Event, error) { return s.events.find(id) }

// EventsByUser returns the events whose user_id is userID.
func (s *Store) EventsByUser(userID string) []Event {
	return s.events.filter(func(e *Event) bool { return e.UserID == userID })
}

// EventsByLocation returns the events whose location_id is locationID.
func (s *Store) EventsByLocation(locationID string) []Event {
	return s.events.filter(func(e *Event) bool { return e.LocationID == locationID })
}

// AddEvent creates an event with a fresh id.
func (s *Store) AddEvent(in NewEvent) (Event, error) {
	if err := s.checkRefs(mustRef(s.users, in.UserID), mustRef(s.locations, in.LocationID)); err != nil {
		return Event{}, err
	}
	return s.events.insert(s.newID, func(id string) Event {
		return Event{
			ID:         id,
			Title:      in.Title,
			Desc:       in.Desc,
			Date:       in.Date,
			From:       in.From,
			To:         in.To,
			LocationID: in.LocationID,
			UserID:     in.UserID,
		}
	}), nil
}

// UpdateEvent merges patch into the event with the given id.
func (s *Store) UpdateEvent(id string, patch EventPatch) (Event, error) {
	if err := s.checkRefs(optRef(s.users, patch.UserID), optRef(s.locations, patch.LocationID)); err != nil {
		return Event{}, err
	}
	return s.events.update(id, patch.Apply)
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(id string) (Event, error) { return s.events.remove(id) }

// DeleteAllEvents empties the collection and returns how many events it held.
func (s *Store) DeleteAllEvents() int { return s.events.removeAll() }

// Locations returns every location in insertion order.
func (s *Store) Locations() []Location { return s.locations.list() }

// Location finds a location by id.
func (s *Store) Location(id string) (Location, error) { return s.locations.find(id) }

// AddLocation creates a location with a fresh id.
func (s *Store) AddLocation(in NewLocation) Location {
	return s.locations.insert(s.newID, func(id string) Location {
		return Location{ID: id, Name: in.Name, Desc: in.Desc, Lat: in.Lat, Lng: in.Lng}
	})
}

// UpdateLocation merges patch into the location with the given id.
func (s *Store) UpdateLocation(id string, patch LocationPatch) (Location, error) {
	return s.locations.update(id, patch.Apply)
}

// DeleteLocation removes a location.
func (s *Store) DeleteLocation(id string) (Location, error) { return s.locations.remove(id) }

// DeleteAllLocations empties the collection and returns how many locations it held.
func (s *Store) DeleteAllLocations() int { return s.locations.removeAll() }

// Participants returns every participant in insertion order.
func (s *Store) Participants() []Participant { return s.participants.list() }

// Participant finds a participant by id.
func (s *Store) Participant(id string) (Participant, error) { return s.participants.find(id) }

// ParticipantsByEvent returns the participants whose event_id is eventID.
func (s *Store) ParticipantsByEvent(eventID string) []Participant {
	return s.participants.filter(func(p *Participant) bool { return p.EventID == eventID })
}

// ParticipantsByUser returns the participants whose user_id is userID.
func (s *Store) ParticipantsByUser(userID string) []Participant {
	return s.participants.filter(func(p *Participant) bool { return p.UserID == userID })
}

// AddParticipant creates a participant with a fresh id.
func (s *Store) AddParticipant(in NewParticipant) (Participant, error) {
	if err := s.checkRefs(mustRef(s.users, in.UserID), mustRef(s.events, in.EventID)); err != nil {
		return Participant{}, err
	}
	return s.participants.insert(s.newID, func(id string) Participant {
		return Participant{ID: id, UserID: in.UserID, EventID: in.EventID}
	}), nil
}

// UpdateParticipant merges patch into the participant with the given id.
func (s *Store) UpdateParticipant(id string, patch ParticipantPatch) (Participant, error) {
	if err := s.checkRefs(optRef(s.users, patch.UserID), optRef(s.events, patch.EventID)); err != nil {
		return Participant{}, err
	}
	return s.participants.update(id, patch.Apply)
}

// DeleteParticipant removes a participant.
func (s *Store) DeleteParticipant(id string) (Participant, error) {
	return s.participants.remove(id)
}

// DeleteAllParticipants empties the collection and returns how many participants it held.
func (s *Store) DeleteAllParticipants() int { return s.participants.removeAll() }

// ref is a foreign key to check against the collection it points into.
type ref struct {
	kind string
	has  func(id string) bool
	id   string
}

func mustRef[T any](c *collection[T], id string) ref {
	return ref{kind: c.kind, has: c.has, id: id}
}

func optRef[T any](c *collection[T], id *string) ref {
	if id == nil {
		return ref{}
	}
	return mustRef(c, *id)
}

// checkRefs is a no-op unless strict references are enabled.
func (s *Store) checkRefs(refs ...ref) error {
	if !s.strict {
		return nil
	}
	for _, r := range refs {
		if r.has == nil {
			continue
		}
		if !r.has(r.id) {
			return errors.NotFound(r.kind, r.id)
		}
	}
	return nil
}
