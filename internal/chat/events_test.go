package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want inbound
	}{
		{"room as string", `{"event":"join_room","data":"general"}`, inbound{Event: EventJoinRoom, Room: "general"}},
		{"room in object", `{"event":"leave_room","data":{"room":" gaming "}}`, inbound{Event: EventLeaveRoom, Room: "gaming"}},
		{"name as string", `{"event":"user_joins","data":"alice"}`, inbound{Event: EventUserJoins, Name: "alice"}},
		{"name in object", `{"event":"user_joins","data":{"name":"alice"}}`, inbound{Event: EventUserJoins, Name: "alice"}},
		{"typing", `{"event":"typing","data":{"name":"alice","room":"general"}}`, inbound{Event: EventTyping, Name: "alice", Room: "general"}},
		{"no data", `{"event":"stop_typing"}`, inbound{Event: EventStopTyping}},
		{"null data", `{"event":"join_room","data":null}`, inbound{Event: EventJoinRoom}},
	}

	var p fastjson.Parser
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInbound(&p, []byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseInboundRejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"data":"general"}`,
		`{"event":42}`,
		`{"event":"join_room","data":[1,2]}`,
	} {
		var p fastjson.Parser
		_, err := parseInbound(&p, []byte(raw))
		require.Error(t, err, raw)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	frame, err := encodeFrame(EventNewMessage, map[string]int{"id": 1})
	require.NoError(t, err)

	env, err := decodeEnvelope([]byte(`{"room":"general","frame":` + string(frame) + `}`))
	require.NoError(t, err)
	require.Equal(t, "general", env.Room)
	require.JSONEq(t, `{"event":"new_message","data":{"id":1}}`, string(env.Frame))

	_, err = decodeEnvelope([]byte(`{"room":"general"}`))
	require.Error(t, err)
	_, err = decodeEnvelope([]byte(`{`))
	require.Error(t, err)
}
