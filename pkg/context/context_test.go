package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "github.com/Ramsey-B/fern/pkg/context"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, appctx.GetUserID(ctx))
	assert.Empty(t, appctx.GetRequestID(ctx))

	ctx = appctx.SetRequestID(ctx, "req-1")
	ctx = appctx.SetUserID(ctx, "user-1")
	ctx = appctx.SetTokenID(ctx, "jti-1")
	ctx = appctx.SetMethod(ctx, "POST")
	ctx = appctx.SetRoute(ctx, "/api/scan")
	ctx = appctx.SetRemoteIP(ctx, "10.0.0.1")

	assert.Equal(t, "req-1", appctx.GetRequestID(ctx))
	assert.Equal(t, "user-1", appctx.GetUserID(ctx))
	assert.Equal(t, "jti-1", appctx.GetTokenID(ctx))
	assert.Equal(t, "POST", appctx.GetMethod(ctx))
	assert.Equal(t, "/api/scan", appctx.GetRoute(ctx))
	assert.Equal(t, "10.0.0.1", appctx.GetRemoteIP(ctx))
}
