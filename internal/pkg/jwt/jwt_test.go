package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAccessToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	companyID := "company-1"

	token, expiresAt, err := svc.GenerateAccessToken(user.Claims{
		UserID:    "user-1",
		Email:     "owner@acme.test",
		CompanyID: &companyID,
		Role:      user.RoleOwner,
	})
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	m, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	claims, err := ClaimsFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, user.RoleOwner, claims.Role)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, "company-1", *claims.CompanyID)
	assert.Nil(t, claims.EmployeeID)
}

func TestClaimsFromMap_RejectsOtherTokenTypes(t *testing.T) {
	_, err := ClaimsFromMap(map[string]interface{}{"type": "refresh", "user_id": "user-1"})
	assert.ErrorIs(t, err, user.ErrInvalidTokenType)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	token, _, err := NewJWTService("other", time.Hour).GenerateAccessToken(user.Claims{UserID: "user-1"})
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).JWTAuth().Decode(token)
	assert.Error(t, err)
}
