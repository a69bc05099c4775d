package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errSessionMismatch = errors.New("preview session does not match request")

// sessionClaims bind a preview session to one user and one video so a
// heartbeat cannot be replayed against another allowance.
type sessionClaims struct {
	VideoID string `json:"vid"`
	jwt.RegisteredClaims
}

type sessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (s sessionSigner) issue(userID, videoID string) (id, token string, err error) {
	id = uuid.NewString()
	now := s.now()
	claims := sessionClaims{
		VideoID: videoID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign preview session: %w", err)
	}
	return id, token, nil
}

func (s sessionSigner) verify(token, userID, videoID string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.Subject != userID || claims.VideoID != videoID {
		return nil, errSessionMismatch
	}
	return claims, nil
}
