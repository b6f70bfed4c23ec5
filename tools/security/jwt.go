package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options controls verification/signing parameters.
type Options struct {
	Secret []byte        // HMAC secret
	Alg    string        // HS256/HS384/HS512 (default HS256)
	TTL    time.Duration // token lifetime for Generate (default 2h)
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Identity is the verified result of a credential: who connected and what
// they are allowed to act as.
type Identity struct {
	ID   string // stable user id, doubles as the session id
	Name string
	Role string // raw role claim (user/admin/superadmin/...)
}

// IsAdmin reports whether the raw role maps to the admin side of the relay.
func (id Identity) IsAdmin() bool {
	switch id.Role {
	case "admin", "superadmin":
		return true
	}
	return false
}

// Resolve verifies an opaque bearer credential and extracts the identity.
// Only the HMAC family is accepted.
func Resolve(opts Options, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("empty token")
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	id, _ := claims["id"].(string)
	if id == "" {
		// tokens minted by Generate carry the id in sub
		id, _ = claims["sub"].(string)
	}
	if id == "" {
		return nil, errors.New("token has no id claim")
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	return &Identity{ID: id, Name: name, Role: role}, nil
}

// Generate mints a token carrying the identity claims. Used by tests and
// operator tooling; the relay itself only verifies.
func Generate(opts Options, id, name, role string) (string, time.Time, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub":  id,
		"id":   id,
		"name": name,
		"role": role,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  exp.Unix(),
	}
	tok := jwtlib.NewWithClaims(method, claims)
	signed, err := tok.SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s", alg)
	}
}
