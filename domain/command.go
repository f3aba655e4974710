package domain

import (
	"time"
)

// Command is an inbound intent tied to the connection that issued it.
type Command interface {
	ConnID() ConnectionID
}

type JoinCommand struct {
	Conn     ConnectionID
	Username string
}

func (c JoinCommand) ConnID() ConnectionID {
	return c.Conn
}

type PostMessageCommand struct {
	Conn      ConnectionID
	Content   string
	CreatedAt time.Time
}

func (c PostMessageCommand) ConnID() ConnectionID {
	return c.Conn
}

// DisconnectCommand is dispatched by the transport when a connection drops,
// whether or not it ever registered a name.
type DisconnectCommand struct {
	Conn ConnectionID
}

func (c DisconnectCommand) ConnID() ConnectionID {
	return c.Conn
}
