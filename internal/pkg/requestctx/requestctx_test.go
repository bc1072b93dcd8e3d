package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CompanyID(ctx))

	ctx = WithCompanyID(ctx, "company-1")
	ctx = WithUserID(ctx, "user-1")

	assert.Equal(t, "company-1", CompanyID(ctx))
	assert.Equal(t, "user-1", UserID(ctx))
}
