package chat

import (
	"errors"
	"strings"

	"github.com/valyala/fastjson"
)

var errBadEvent = errors.New("malformed event")

// inbound is a parsed client -> server frame.
type inbound struct {
	Event string
	Room  string
	Name  string
}

// parseInbound reads {"event": "...", "data": ...}. data may be an object
// with room/name fields or a bare string, which is taken as the room for
// room events and as the name for user_joins.
func parseInbound(p *fastjson.Parser, raw []byte) (inbound, error) {
	v, err := p.ParseBytes(raw)
	if err != nil {
		return inbound{}, err
	}

	ev := inbound{Event: string(v.GetStringBytes("event"))}
	if ev.Event == "" {
		return inbound{}, errBadEvent
	}

	data := v.Get("data")
	if data == nil {
		return ev, nil
	}

	switch data.Type() {
	case fastjson.TypeString:
		s := strings.TrimSpace(string(data.GetStringBytes()))
		if ev.Event == EventUserJoins {
			ev.Name = s
		} else {
			ev.Room = s
		}
	case fastjson.TypeObject:
		ev.Room = strings.TrimSpace(string(data.GetStringBytes("room")))
		ev.Name = strings.TrimSpace(string(data.GetStringBytes("name")))
	case fastjson.TypeNull:
	default:
		return inbound{}, errBadEvent
	}
	return ev, nil
}
