package entity

import (
	"time"

	"github.com/google/uuid"
)

type Base struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

type Channel string

const (
	ChannelWeb    Channel = "WEB"
	ChannelMobile Channel = "MOBILE"
	ChannelAgent  Channel = "AGENT"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelMobile, ChannelAgent:
		return true
	}
	return false
}

type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorAgent  ActorType = "AGENT"
	ActorSystem ActorType = "SYSTEM"
)

// Actor identifies who triggered a mutation for the audit trail.
type Actor struct {
	ID   string
	Type ActorType
}

var SystemActor = Actor{ID: "system", Type: ActorSystem}
