package event

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMessage     Kind = "message"
	KindAck         Kind = "ack"
	KindStateChange Kind = "state_change"
	KindGeneric     Kind = "generic"
)

// Event is the canonical form every provider webhook is translated into
// before it reaches downstream consumers. Exactly one payload field is set,
// matching Kind.
type Event struct {
	Kind               Kind      `json:"event"`
	CompanyID          uuid.UUID `json:"company_id"`
	InstanceID         uuid.UUID `json:"-"`
	ExternalInstanceID string    `json:"instance_id"`
	Device             string    `json:"device,omitempty"`
	Source             string    `json:"source"`
	Timestamp          int64     `json:"timestamp"`

	Message *MessagePayload `json:"message,omitempty"`
	Ack     *AckPayload     `json:"ack,omitempty"`
	State   *StatePayload   `json:"state,omitempty"`
	Generic *GenericPayload `json:"generic,omitempty"`
}

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeContact  MessageType = "contact"
	MessageTypeLocation MessageType = "location"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessagePayload struct {
	ProviderMessageID string      `json:"id"`
	Sender            string      `json:"sender"`
	Recipient         string      `json:"recipient,omitempty"`
	Direction         Direction   `json:"direction"`
	IsGroup           bool        `json:"is_group"`
	Participant       string      `json:"participant,omitempty"`
	LinkedID          string      `json:"linked_id,omitempty"`
	Type              MessageType `json:"type"`
	Content           string      `json:"content"`
	MediaURL          string      `json:"media_url,omitempty"`
	MimeType          string      `json:"mime_type,omitempty"`
}

type AckStage string

const (
	AckSent      AckStage = "sent"
	AckDelivered AckStage = "delivered"
	AckRead      AckStage = "read"
	AckPlayed    AckStage = "played"
)

type AckPayload struct {
	ProviderMessageID string   `json:"id"`
	Stage             AckStage `json:"stage"`
}

type StatePayload struct {
	State    ConnectionState `json:"state"`
	RawState string          `json:"raw_state"`
}

type GenericPayload struct {
	EventType string `json:"event_type"`
	Raw       []byte `json:"raw,omitempty"`
}

// Now is the receipt-time default applied when a provider omits timestamps.
func Now() int64 {
	return time.Now().UTC().UnixMilli()
}
