// Package auth reads the merchant identity out of the backend's bearer token.
//
// The token is issued and verified by the backend; the client only decodes
// its claims to learn who it is talking as. Signatures are not checked here.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/matheus3301/deskchat/internal/model"
)

var (
	// ErrNoToken is returned when no bearer token is configured.
	ErrNoToken = errors.New("no token configured, log in first")
	// ErrExpired is returned for a token whose exp claim is in the past.
	ErrExpired = errors.New("session expired, log in again")
)

// Claims is the subset of the token payload the client reads.
type Claims struct {
	UserID    string
	Username  string
	Avatar    string
	ExpiresAt time.Time
}

// Parse decodes token without verifying its signature. A leading "Bearer "
// prefix is tolerated. now is used for the expiry check.
func Parse(token string, now time.Time) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c := &Claims{
		UserID:   firstString(mc, "id", "_id", "userId", "sub"),
		Username: firstString(mc, "username", "name"),
		Avatar:   firstString(mc, "avatar"),
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("parse token exp: %w", err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return nil, ErrExpired
		}
	}
	if c.UserID == "" {
		return nil, errors.New("token carries no user id")
	}
	return c, nil
}

// Identity resolves the identity to chat as. Explicitly configured values
// win over token claims.
func Identity(token, userID, username, avatar string, now time.Time) (model.Identity, error) {
	id := model.Identity{UserID: userID, Username: username, Avatar: avatar}

	c, err := Parse(token, now)
	switch {
	case errors.Is(err, ErrNoToken):
		if id.UserID == "" {
			return id, err
		}
		return id, nil
	case err != nil:
		return id, err
	}

	if id.UserID == "" {
		id.UserID = c.UserID
	}
	if id.Username == "" {
		id.Username = c.Username
	}
	if id.Avatar == "" {
		id.Avatar = c.Avatar
	}
	return id, nil
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := mc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
