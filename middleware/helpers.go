package middleware

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Dosada05/fencing-club/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const actorContextKey contextKey = "actor"

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok
}

func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	id, err := userIDFromClaim(claims[jwtClaimUserID])
	if err != nil {
		return models.Actor{}, err
	}

	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return models.Actor{}, fmt.Errorf("missing or invalid '%s' claim", jwtClaimRole)
	}
	role := models.UserRole(roleStr)
	if !role.Valid() {
		return models.Actor{}, fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return models.Actor{ID: id, Role: role}, nil
}

func userIDFromClaim(v interface{}) (int, error) {
	var id int
	switch raw := v.(type) {
	case float64:
		if raw != float64(int(raw)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, raw)
		}
		id = int(raw)
	case string:
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("'%s' claim is not an integer: %q", jwtClaimUserID, raw)
		}
		id = parsed
	case nil:
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: %T", jwtClaimUserID, v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, id)
	}
	return id, nil
}
