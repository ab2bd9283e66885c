package utils

import (
	"context"
	"strings"

	"transit-booking/internal/data/entity"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	ActorTypeKey contextKey = "actor_type"
)

// GetActorFromContext returns the caller recorded by the Actor middleware,
// or the system actor when none was set.
func GetActorFromContext(ctx context.Context) entity.Actor {
	id, _ := ctx.Value(ActorIDKey).(string)
	if id == "" {
		return entity.SystemActor
	}

	actorType, _ := ctx.Value(ActorTypeKey).(entity.ActorType)
	if actorType == "" {
		actorType = entity.ActorUser
	}

	return entity.Actor{ID: id, Type: actorType}
}

func SetActorContext(ctx context.Context, actor entity.Actor) context.Context {
	ctx = context.WithValue(ctx, ActorIDKey, actor.ID)
	ctx = context.WithValue(ctx, ActorTypeKey, actor.Type)
	return ctx
}

// ParseActorType maps a header value onto a known actor type. Unknown
// values fall back to USER.
func ParseActorType(raw string) entity.ActorType {
	switch entity.ActorType(strings.ToUpper(strings.TrimSpace(raw))) {
	case entity.ActorAgent:
		return entity.ActorAgent
	case entity.ActorSystem:
		return entity.ActorSystem
	default:
		return entity.ActorUser
	}
}
