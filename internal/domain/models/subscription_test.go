package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/graphbind/graphbind/pkg/constants"
)

func TestJoinChangeTypes(t *testing.T) {
	assert.Equal(t, "created,updated,deleted", JoinChangeTypes(nil))
	assert.Equal(t, "created", JoinChangeTypes([]constants.ChangeType{constants.ChangeTypeCreated}))
	assert.Equal(t, "updated,deleted", JoinChangeTypes([]constants.ChangeType{"Updated", "DELETED"}))
}

func TestCapExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	max := now.Add(constants.GraphSubscriptionMaxLifetime)

	assert.Equal(t, max, CapExpiration(time.Time{}, now), "zero request gets the maximum lifetime")
	assert.Equal(t, max, CapExpiration(now.Add(30*24*time.Hour), now), "over-long request is clamped")

	requested := now.Add(time.Hour)
	assert.Equal(t, requested, CapExpiration(requested, now))
}
