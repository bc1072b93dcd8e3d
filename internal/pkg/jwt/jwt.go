package jwt

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenTypeAccess = "access"

type Service interface {
	GenerateAccessToken(claims user.Claims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) *JWTService {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken issues a token carrying the identity the payroll routes read.
// Tokens are normally issued by the identity service; this is used by tooling and tests.
func (j *JWTService) GenerateAccessToken(claims user.Claims) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpiration).Unix()

	payload := map[string]interface{}{
		"user_id":     claims.UserID,
		"email":       claims.Email,
		"employee_id": valueOrNil(claims.EmployeeID),
		"company_id":  valueOrNil(claims.CompanyID),
		"role":        string(claims.Role),
		"type":        tokenTypeAccess,
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(payload)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode access token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ClaimsFromMap reads the caller identity out of decoded token claims.
func ClaimsFromMap(m map[string]interface{}) (user.Claims, error) {
	if tokenType, _ := m["type"].(string); tokenType != tokenTypeAccess {
		return user.Claims{}, user.ErrInvalidTokenType
	}

	claims := user.Claims{
		UserID:     stringClaim(m, "user_id"),
		Email:      stringClaim(m, "email"),
		EmployeeID: optionalStringClaim(m, "employee_id"),
		CompanyID:  optionalStringClaim(m, "company_id"),
		Role:       user.Role(stringClaim(m, "role")),
	}
	return claims, nil
}

func stringClaim(m map[string]interface{}, key string) string {
	value, _ := m[key].(string)
	return value
}

func optionalStringClaim(m map[string]interface{}, key string) *string {
	value, ok := m[key].(string)
	if !ok || value == "" {
		return nil
	}
	return &value
}

func valueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
