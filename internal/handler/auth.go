package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	"github.com/xenking/souq-marketplace/internal/domain/order"
)

type actorKey struct{}

// ActorFromContext returns the authenticated actor stored by Require.
func ActorFromContext(ctx context.Context) (order.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(order.Actor)
	return a, ok
}

// claims is the token payload: subject carries the user id, Role the actor
// kind.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and gates routes by role.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator with the given HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken mints a signed token for the given user. Used by the seed tool
// and tests; production token issuance lives in the identity service.
func (a *Authenticator) IssueToken(userID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	})
	return token.SignedString(a.secret)
}

func (a *Authenticator) parse(tokenString string) (order.Actor, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return order.Actor{}, err
	}
	if !token.Valid || c.Subject == "" {
		return order.Actor{}, errors.New("invalid token")
	}
	return order.Actor{ID: c.Subject, Role: c.Role}, nil
}

// Require wraps a route so only a bearer-authenticated actor with the given
// role reaches it. A missing or malformed token answers 401, a role mismatch
// 403.
func (a *Authenticator) Require(role string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeErrorCode(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := a.parse(tokenString)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if actor.Role != role {
			writeErrorCode(w, http.StatusForbidden, "insufficient role")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next(w, r.WithContext(ctx), ps)
	}
}
