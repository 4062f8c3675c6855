package qr

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
)

const (
	MinSecretLength = 32
	keyInfo         = "csy/qr-token/v1"
)

// Fields are the immutable identifying fields bound into a token string.
type Fields struct {
	ID          string
	Type        domainQR.QRType
	ReferenceID string
	ExpiresAt   time.Time
}

// Equal compares fields at the second precision the codec carries.
func (f Fields) Equal(o Fields) bool {
	return f.ID == o.ID &&
		f.Type == o.Type &&
		f.ReferenceID == o.ReferenceID &&
		f.ExpiresAt.Unix() == o.ExpiresAt.Unix()
}

type tokenClaims struct {
	Type string `json:"qt"`
	Ref  string `json:"ref"`
	jwt.RegisteredClaims
}

// Codec turns token fields into compact HS256-signed strings and back.
type Codec struct {
	key    []byte
	parser *jwt.Parser
}

// NewCodec derives the signing key from secret with HKDF-SHA256.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("qr codec: secret must be at least %d bytes", MinSecretLength)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("qr codec: derive key: %w", err)
	}
	return &Codec{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Encode is deterministic: the same fields always yield the same string.
func (c *Codec) Encode(f Fields) (string, error) {
	claims := tokenClaims{
		Type: string(f.Type),
		Ref:  f.ReferenceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        f.ID,
			ExpiresAt: jwt.NewNumericDate(f.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("qr codec: sign: %w", err)
	}
	return token, nil
}

// Decode verifies the signature and structure of token. Expiry is not
// checked here.
func (c *Codec) Decode(token string) (Fields, error) {
	var claims tokenClaims
	parsed, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Fields{}, domainErrors.ErrMalformedToken.Wrap(err)
	}
	if !parsed.Valid {
		return Fields{}, domainErrors.ErrMalformedToken
	}

	t, err := domainQR.ParseType(claims.Type)
	if err != nil {
		return Fields{}, domainErrors.ErrMalformedToken.Wrap(err)
	}
	if claims.ID == "" || claims.Ref == "" || claims.ExpiresAt == nil {
		return Fields{}, domainErrors.ErrMalformedToken.WithDetail("missing identifying claims")
	}

	return Fields{
		ID:          claims.ID,
		Type:        t,
		ReferenceID: claims.Ref,
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}

// Signature returns the signature segment of an encoded token.
func Signature(token string) string {
	if i := strings.LastIndexByte(token, '.'); i >= 0 {
		return token[i+1:]
	}
	return ""
}
