package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"vidria/internal/logger"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "dedup:tok-1:1700000000.123-abc:end", Key("tok-1", "1700000000.123-abc", "end"))
}

func TestIsDuplicateWithoutClient(t *testing.T) {
	svc := NewService(nil, 60, logger.NopLogger())

	// no Redis configured means dedup is disabled, never suppressed
	assert.False(t, svc.IsDuplicate(context.Background(), "tok-1", "ev-1", "end"))
	assert.False(t, svc.IsDuplicate(context.Background(), "tok-1", "ev-1", "end"))
}

func TestIsDuplicateSkipsEventsWithoutID(t *testing.T) {
	svc := NewService(nil, 60, logger.NopLogger())

	assert.False(t, svc.IsDuplicate(context.Background(), "tok-1", "", "end"))
}
