package queue

// Event names carried on the broadcast channel.
const (
	EventQueueStatus  = "queue-status"
	EventQueueUpdated = "queue-updated"
)

// Event is one state change emitted after a successful operation.
type Event struct {
	Name    string
	VenueID string
	Payload any
}

// StatusPayload is sent with queue-status.
type StatusPayload struct {
	VenueID   string `json:"venueId"`
	IsOpen    bool   `json:"isOpen"`
	MaxLength int    `json:"maxLength,omitempty"`
}

// UpdatedPayload is sent with queue-updated.
type UpdatedPayload struct {
	VenueID string   `json:"venueId"`
	Members []Member `json:"members"`
	Length  int      `json:"length"`
}

// Broadcaster delivers events to everyone watching a venue. Emit must not block on subscribers:
// delivery is best effort and a client that reconnects resynchronizes through Status.
type Broadcaster interface {
	Emit(ev Event)
}

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) Emit(Event) {}

func statusEvent(q *Queue) Event {
	p := StatusPayload{VenueID: q.VenueID, IsOpen: q.IsOpen}
	if q.IsOpen {
		p.MaxLength = q.MaxLength
	}
	return Event{Name: EventQueueStatus, VenueID: q.VenueID, Payload: p}
}

func updatedEvent(q *Queue) Event {
	members := make([]Member, len(q.Members))
	copy(members, q.Members)
	return Event{
		Name:    EventQueueUpdated,
		VenueID: q.VenueID,
		Payload: UpdatedPayload{VenueID: q.VenueID, Members: members, Length: len(members)},
	}
}
