package graphql

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.
// Code generated by github.com/99designs/gqlgen version v0.17.49

import (
	"context"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/gateway/graphql/generated"
	"github.com/c360/eventgraph/gateway/graphql/model"
	"github.com/c360/eventgraph/store"
)

// User is the resolver for the user field.
func (r *eventResolver) User(_ context.Context, obj *store.Event) (*store.User, error) {
	user, err := r.Store.User(obj.UserID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Location is the resolver for the location field.
func (r *eventResolver) Location(_ context.Context, obj *store.Event) (*store.Location, error) {
	location, err := r.Store.Location(obj.LocationID)
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// Participants is the resolver for the participants field.
func (r *eventResolver) Participants(_ context.Context, obj *store.Event) ([]*store.Participant, error) {
	return ptrs(r.Store.ParticipantsByEvent(obj.ID)), nil
}

// Events is the resolver for the events field.
func (r *locationResolver) Events(_ context.Context, obj *store.Location) ([]*store.Event, error) {
	return ptrs(r.Store.EventsByLocation(obj.ID)), nil
}

// AddUser is the resolver for the addUser field.
func (r *mutationResolver) AddUser(ctx context.Context, data store.NewUser) (*store.User, error) {
	user, err := lookup(ctx, r.Resolver, "addUser", func() (store.User, error) { return r.Store.AddUser(data), nil })
	if err != nil {
		return nil, err
	}
	r.announce(ctx, bus.TopicUserCreated, user)
	return user, nil
}

// UpdateUser is the resolver for the updateUser field.
func (r *mutationResolver) UpdateUser(ctx context.Context, id string, data store.UserPatch) (*store.User, error) {
	return lookup(ctx, r.Resolver, "updateUser", func() (store.User, error) { return r.Store.UpdateUser(id, data) })
}

// DeleteUser is the resolver for the deleteUser field.
func (r *mutationResolver) DeleteUser(ctx context.Context, id string) (*store.User, error) {
	return lookup(ctx, r.Resolver, "deleteUser", func() (store.User, error) { return r.Store.DeleteUser(id) })
}

// DeleteAllUsers is the resolver for the deleteAllUsers field.
func (r *mutationResolver) DeleteAllUsers(ctx context.Context) (*model.DeleteAllOutput, error) {
	return counting(ctx, r.Resolver, "deleteAllUsers", r.Store.DeleteAllUsers)
}

// AddEvent is the resolver for the addEvent field.
func (r *mutationResolver) AddEvent(ctx context.Context, data store.NewEvent) (*store.Event, error) {
	event, err := lookup(ctx, r.Resolver, "addEvent", func() (store.Event, error) { return r.Store.AddEvent(data) })
	if err != nil {
		return nil, err
	}
	r.announce(ctx, bus.TopicEventCreated, event)
	return event, nil
}

// UpdateEvent is the resolver for the updateEvent field.
func (r *mutationResolver) UpdateEvent(ctx context.Context, id string, data store.EventPatch) (*store.Event, error) {
	return lookup(ctx, r.Resolver, "updateEvent", func() (store.Event, error) { return r.Store.UpdateEvent(id, data) })
}

// DeleteEvent is the resolver for the deleteEvent field.
func (r *mutationResolver) DeleteEvent(ctx context.Context, id string) (*store.Event, error) {
	return lookup(ctx, r.Resolver, "deleteEvent", func() (store.Event, error) { return r.Store.DeleteEvent(id) })
}

// DeleteAllEvents is the resolver for the deleteAllEvents field.
func (r *mutationResolver) DeleteAllEvents(ctx context.Context) (*model.DeleteAllOutput, error) {
	return counting(ctx, r.Resolver, "deleteAllEvents", r.Store.DeleteAllEvents)
}

// AddLocation is the resolver for the addLocation field.
func (r *mutationResolver) AddLocation(ctx context.Context, data store.NewLocation) (*store.Location, error) {
	return lookup(ctx, r.Resolver, "addLocation", func() (store.Location, error) { return r.Store.AddLocation(data), nil })
}

// UpdateLocation is the resolver for the updateLocation field.
func (r *mutationResolver) UpdateLocation(ctx context.Context, id string, data store.LocationPatch) (*store.Location, error) {
	return lookup(ctx, r.Resolver, "updateLocation", func() (store.Location, error) { return r.Store.UpdateLocation(id, data) })
}

// DeleteLocation is the resolver for the deleteLocation field.
func (r *mutationResolver) DeleteLocation(ctx context.Context, id string) (*store.Location, error) {
	return lookup(ctx, r.Resolver, "deleteLocation", func() (store.Location, error) { return r.Store.DeleteLocation(id) })
}

// DeleteAllLocations is the resolver for the deleteAllLocations field.
func (r *mutationResolver) DeleteAllLocations(ctx context.Context) (*model.DeleteAllOutput, error) {
	return counting(ctx, r.Resolver, "deleteAllLocations", r.Store.DeleteAllLocations)
}

// AddParticipant is the resolver for the addParticipant field.
func (r *mutationResolver) AddParticipant(ctx context.Context, data store.NewParticipant) (*store.Participant, error) {
	participant, err := lookup(ctx, r.Resolver, "addParticipant", func() (store.Participant, error) { return r.Store.AddParticipant(data) })
	if err != nil {
		return nil, err
	}
	r.announce(ctx, bus.TopicParticipantAdded, participant)
	return participant, nil
}

// UpdateParticipant is the resolver for the updateParticipant field.
func (r *mutationResolver) UpdateParticipant(ctx context.Context, id string, data store.ParticipantPatch) (*store.Participant, error) {
	return lookup(ctx, r.Resolver, "updateParticipant", func() (store.Participant, error) { return r.Store.UpdateParticipant(id, data) })
}

// DeleteParticipant is the resolver for the deleteParticipant field.
func (r *mutationResolver) DeleteParticipant(ctx context.Context, id string) (*store.Participant, error) {
	return lookup(ctx, r.Resolver, "deleteParticipant", func() (store.Participant, error) { return r.Store.DeleteParticipant(id) })
}

// DeleteAllParticipants is the resolver for the deleteAllParticipants field.
func (r *mutationResolver) DeleteAllParticipants(ctx context.Context) (*model.DeleteAllOutput, error) {
	return counting(ctx, r.Resolver, "deleteAllParticipants", r.Store.DeleteAllParticipants)
}

// User is the resolver for the user field.
func (r *participantResolver) User(_ context.Context, obj *store.Participant) (*store.User, error) {
	user, err := r.Store.User(obj.UserID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Event is the resolver for the event field.
func (r *participantResolver) Event(_ context.Context, obj *store.Participant) (*store.Event, error) {
	event, err := r.Store.Event(obj.EventID)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Users is the resolver for the users field.
func (r *queryResolver) Users(ctx context.Context) ([]*store.User, error) {
	return listing(ctx, r.Resolver, "users", r.Store.Users)
}

// User is the resolver for the user field.
func (r *queryResolver) User(ctx context.Context, id string) (*store.User, error) {
	return lookup(ctx, r.Resolver, "user", func() (store.User, error) { return r.Store.User(id) })
}

// Events is the resolver for the events field.
func (r *queryResolver) Events(ctx context.Context) ([]*store.Event, error) {
	return listing(ctx, r.Resolver, "events", r.Store.Events)
}

// Event is the resolver for the event field.
func (r *queryResolver) Event(ctx context.Context, id string) (*store.Event, error) {
	return lookup(ctx, r.Resolver, "event", func() (store.Event, error) { return r.Store.Event(id) })
}

// Locations is the resolver for the locations field.
func (r *queryResolver) Locations(ctx context.Context) ([]*store.Location, error) {
	return listing(ctx, r.Resolver, "locations", r.Store.Locations)
}

// Location is the resolver for the location field.
func (r *queryResolver) Location(ctx context.Context, id string) (*store.Location, error) {
	return lookup(ctx, r.Resolver, "location", func() (store.Location, error) { return r.Store.Location(id) })
}

// Participants is the resolver for the participants field.
func (r *queryResolver) Participants(ctx context.Context) ([]*store.Participant, error) {
	return listing(ctx, r.Resolver, "participants", r.Store.Participants)
}

// Participant is the resolver for the participant field.
func (r *queryResolver) Participant(ctx context.Context, id string) (*store.Participant, error) {
	return lookup(ctx, r.Resolver, "participant", func() (store.Participant, error) { return r.Store.Participant(id) })
}

// UserCreated is the resolver for the userCreated field.
func (r *subscriptionResolver) UserCreated(ctx context.Context) (<-chan *store.User, error) {
	return bus.Listen[*store.User](ctx, r.Bus, bus.TopicUserCreated)
}

// EventCreated is the resolver for the eventCreated field.
func (r *subscriptionResolver) EventCreated(ctx context.Context) (<-chan *store.Event, error) {
	return bus.Listen[*store.Event](ctx, r.Bus, bus.TopicEventCreated)
}

// ParticipantAdded is the resolver for the participantAdded field.
func (r *subscriptionResolver) ParticipantAdded(ctx context.Context) (<-chan *store.Participant, error) {
	return bus.Listen[*store.Participant](ctx, r.Bus, bus.TopicParticipantAdded)
}

// Events is the resolver for the events field.
func (r *userResolver) Events(_ context.Context, obj *store.User) ([]*store.Event, error) {
	return ptrs(r.Store.EventsByUser(obj.ID)), nil
}

// Participants is the resolver for the participants field.
func (r *userResolver) Participants(_ context.Context, obj *store.User) ([]*store.Participant, error) {
	return ptrs(r.Store.ParticipantsByUser(obj.ID)), nil
}

// Event returns generated.EventResolver implementation.
func (r *Resolver) Event() generated.EventResolver { return &eventResolver{r} }

// Location returns generated.LocationResolver implementation.
func (r *Resolver) Location() generated.LocationResolver { return &locationResolver{r} }

// Mutation returns generated.MutationResolver implementation.
func (r *Resolver) Mutation() generated.MutationResolver { return &mutationResolver{r} }

// Participant returns generated.ParticipantResolver implementation.
func (r *Resolver) Participant() generated.ParticipantResolver { return &participantResolver{r} }

// Query returns generated.QueryResolver implementation.
func (r *Resolver) Query() generated.QueryResolver { return &queryResolver{r} }

// Subscription returns generated.SubscriptionResolver implementation.
func (r *Resolver) Subscription() generated.SubscriptionResolver { return &subscriptionResolver{r} }

// User returns generated.UserResolver implementation.
func (r *Resolver) User() generated.UserResolver { return &userResolver{r} }

type eventResolver struct{ *Resolver }
type locationResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type participantResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
type userResolver struct{ *Resolver }
