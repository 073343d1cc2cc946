package bus

// Topic names a stream of creation notifications.
type Topic string

// The three topics mutations publish to. Location creation, updates and
// deletes are not announced.
const (
	TopicUserCreated      Topic = "userCreated"
	TopicEventCreated     Topic = "eventCreated"
	TopicParticipantAdded Topic = "participantAdded"
)

// Topics lists every topic the bus carries.
func Topics() []Topic {
	return []Topic{TopicUserCreated, TopicEventCreated, TopicParticipantAdded}
}

// Valid reports whether t is one of Topics.
func (t Topic) Valid() bool {
	switch t {
	case TopicUserCreated, TopicEventCreated, TopicParticipantAdded:
		return true
	}
	return false
}

func (t Topic) String() string { return string(t) }
