package webhook

import (
	"encoding/json"
	"strings"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
)

// Helpers shared by the session-bridge normalizers (waha, wppconnect), which
// address chats with JID-style identifiers and mark media with nested keys.

const (
	suffixDirect = "c.us"
	suffixGroup  = "g.us"
	suffixLinked = "lid"
)

// splitJID strips the routing suffix off a chat identifier. isGroup is true
// for group-routed chats, isLinked when the sender uses the linked-id
// addressing scheme.
func splitJID(jid string) (bare string, isGroup, isLinked bool) {
	at := strings.LastIndex(jid, "@")
	if at < 0 {
		return jid, false, false
	}
	suffix := jid[at+1:]
	return jid[:at], suffix == suffixGroup, suffix == suffixLinked
}

// mediaMarkers are probed in order; the first nested key present decides the
// message type. None present means plain text.
var mediaMarkers = []struct {
	key string
	typ event.MessageType
}{
	{"image", event.MessageTypeImage},
	{"video", event.MessageTypeVideo},
	{"audio", event.MessageTypeAudio},
	{"document", event.MessageTypeDocument},
	{"sticker", event.MessageTypeSticker},
	{"contact", event.MessageTypeContact},
	{"vcard", event.MessageTypeContact},
	{"location", event.MessageTypeLocation},
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
}

func detectMedia(fields map[string]json.RawMessage) (event.MessageType, mediaInfo) {
	for _, marker := range mediaMarkers {
		raw, ok := fields[marker.key]
		if !ok || string(raw) == "null" {
			continue
		}
		var info mediaInfo
		_ = json.Unmarshal(raw, &info)
		return marker.typ, info
	}
	return event.MessageTypeText, mediaInfo{}
}

// mapAckCode translates the numeric acknowledgment ladder shared by the
// bridge APIs. Unknown codes default to sent: a message the provider acked
// at all has at least left the gateway.
func mapAckCode(code int) event.AckStage {
	switch code {
	case 1:
		return event.AckSent
	case 2:
		return event.AckDelivered
	case 3:
		return event.AckRead
	case 4:
		return event.AckPlayed
	default:
		return event.AckSent
	}
}

func directionFor(fromMe bool) event.Direction {
	if fromMe {
		return event.DirectionOutbound
	}
	return event.DirectionInbound
}
