package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, redis.Nil))

	err = WrapRedis(errors.New("connection refused"))
	var ae *AppError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, KindUpstream, ae.Kind)
}

func TestKindAndCodeThroughWrapping(t *testing.T) {
	base := Validation("INSUFFICIENT_STOCK", "not enough stock")
	wrapped := fmt.Errorf("create order: %w", base)

	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, "INSUFFICIENT_STOCK", CodeOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("product not found")))
	assert.True(t, IsNotFound(TenantIsolation("foreign product")))
	assert.False(t, IsNotFound(Upstream(errors.New("timeout"), "catalog unavailable")))
}
