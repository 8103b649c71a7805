package relay

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadTicket     = errors.New("invalid room ticket")
	ErrBadPassphrase = errors.New("wrong passphrase")
)

// signTicket issues the token a host presents when attaching to room id.
func (s *Server) signTicket(id string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room": id,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := token.SignedString(s.secret)
	return ss, exp, err
}

// checkTicket verifies tokenStr was issued for room id.
func (s *Server) checkTicket(tokenStr, id string) error {
	if tokenStr == "" {
		return ErrBadTicket
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrBadTicket
	}
	if room, _ := claims["room"].(string); room != id {
		return ErrBadTicket
	}
	return nil
}

// bearerOrQuery reads "Authorization: Bearer <t>", falling back to ?token=
// for browser websockets, which cannot set headers.
func bearerOrQuery(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return r.URL.Query().Get("token")
}

func hashPassphrase(p string) ([]byte, error) {
	if p == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
}

func checkPassphrase(hash []byte, p string) error {
	if hash == nil {
		return nil
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(p)) != nil {
		return ErrBadPassphrase
	}
	return nil
}
