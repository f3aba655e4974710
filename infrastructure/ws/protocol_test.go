package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToServerFrame_ChatBroadcast(t *testing.T) {
	req := require.New(t)

	// When a sanitized chat event hits the wire
	frame, ok := ToServerFrame(event.ChatBroadcast{Author: "alice", Content: "hello"})

	// Then it is a typed message frame
	req.True(ok)
	req.Equal(EventMessage, frame.Event)
	req.Equal(TypeMessage, frame.Type)
	req.Equal("alice", frame.Username)
	req.Equal("hello", frame.Text)
}

func TestToServerFrame_Join_And_Leave(t *testing.T) {
	req := require.New(t)

	frame, ok := ToServerFrame(event.UserJoined{Username: "alice"})
	req.True(ok)
	req.Equal(TypeJoin, frame.Type)
	req.Equal("alice", frame.Username)

	frame, ok = ToServerFrame(event.UserLeft{Username: "alice"})
	req.True(ok)
	req.Equal(TypeLeave, frame.Type)
}

func TestToServerFrame_ErrorNotice(t *testing.T) {
	req := require.New(t)

	frame, ok := ToServerFrame(event.ErrorNotice{Conn: domain.NewConnectionID(), Text: "name already in use"})
	req.True(ok)
	req.Equal(EventMessage, frame.Event)
	req.Equal(TypeError, frame.Type)
	req.Equal("name already in use", frame.Text)
	req.Empty(frame.Username)
}

func TestToServerFrame_Empty_Roster_Serializes_As_Empty_Array(t *testing.T) {
	req := require.New(t)

	// Given an empty roster
	frame, ok := ToServerFrame(event.RosterUpdated{})
	req.True(ok)
	req.Equal(EventUserList, frame.Event)

	// Then the wire carries [] and never null
	raw, err := json.Marshal(frame)
	req.NoError(err)
	req.Contains(string(raw), `"users":[]`)
}

func TestToServerFrame_Raw_Message_Has_No_Wire_Form(t *testing.T) {
	req := require.New(t)

	// Pre-moderation events must never leak to clients
	_, ok := ToServerFrame(event.MessagePosted{Author: "alice", Content: "raw"})
	req.False(ok)
}
