package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fast = Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func() error {
		calls++
		return &HTTPError{StatusCode: 404}
	})

	var he *HTTPError
	assert.ErrorAs(t, err, &he)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func() error {
		calls++
		return &HTTPError{StatusCode: 429, RetryAfter: time.Millisecond}
	})

	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fast, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 502}))
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 429}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: 400}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(nil))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
	got := ParseRetryAfter(future)
	assert.Greater(t, got, 50*time.Second)
}

func TestFullJitterSleep_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 40*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), FullJitterSleep(3, 0, time.Second))
}
