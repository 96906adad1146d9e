package auth

import (
	"slices"
	"time"

	"identity/config"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type tokenProfile struct {
	secret []byte
	ttl    time.Duration
}

// jwtService is a concrete implementation of the TokenService interface using HS256 JWTs.
type jwtService struct {
	profiles map[service.TokenProfile]tokenProfile
	now      func() time.Time
}

// NewJWTService is the constructor for jwtService.
// Access and refresh profiles must use different secrets.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return newJWTService(cfg, time.Now)
}

func newJWTService(cfg *config.Config, now func() time.Time) (*jwtService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Auth == nil || cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	return &jwtService{
		profiles: map[service.TokenProfile]tokenProfile{
			service.AccessTokenProfile: {
				secret: []byte(cfg.SecretKey.Access),
				ttl:    cfg.Auth.AccessTokenTTL,
			},
			service.RefreshTokenProfile: {
				secret: []byte(cfg.SecretKey.Refresh),
				ttl:    cfg.Auth.RefreshTokenTTL,
			},
		},
		now: now,
	}, nil
}

// Sign embeds subject, issue and expiry times and signs with the profile's secret.
func (s *jwtService) Sign(claims *service.Claims, profile service.TokenProfile) (string, time.Time, error) {
	p, ok := s.profiles[profile]
	if !ok {
		return "", time.Time{}, errors.Errorf("unknown token profile: %s", profile)
	}

	now := s.now()
	signed := &service.Claims{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Roles:     slices.Clone(claims.Roles),
		Type:      profile.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, signed).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrapf(err, "failed to sign %s token", profile)
	}

	return token, signed.ExpiresAt.Time, nil
}

// Verify rejects bad signatures, malformed tokens, expired tokens and tokens of the other profile.
func (s *jwtService) Verify(tokenString string, profile service.TokenProfile) (*service.Claims, error) {
	p, ok := s.profiles[profile]
	if !ok {
		return nil, errors.Errorf("unknown token profile: %s", profile)
	}

	claims := &service.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, err.Error())
	}
	if !token.Valid {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("token is not valid")
	}
	if claims.Type != profile.String() {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("token type mismatch")
	}
	if claims.Subject != claims.AccountID.String() {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("token subject mismatch")
	}

	return claims, nil
}
