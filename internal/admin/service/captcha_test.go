package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/stretchr/testify/require"
)

func TestCaptchaIssue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c, err := env.captchas.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.True(t, strings.HasPrefix(c.SVG, "<svg"))
	require.True(t, strings.HasSuffix(c.SVG, "</svg>"))

	answer, err := env.mr.Get(captchaKey(c.ID))
	require.NoError(t, err)
	require.Len(t, answer, DefaultCaptchaLength)
	require.Equal(t, strings.ToLower(answer), answer)
	require.NotContainsf(t, answer, "0", "confusable glyph in %q", answer)
	require.NotContains(t, answer, "1")
	require.NotContains(t, answer, "o")
	require.NotContains(t, answer, "i")
	require.Equal(t, DefaultCaptchaTTL, env.mr.TTL(captchaKey(c.ID)))
}

func TestCaptchaIsSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, answer := env.issueCaptcha(t)

	ok, err := env.captchas.Verify(ctx, id, strings.ToUpper(answer))
	require.NoError(t, err)
	require.True(t, ok, "answers compare case-insensitively")

	ok, err = env.captchas.Verify(ctx, id, answer)
	require.NoError(t, err)
	require.False(t, ok, "a consumed captcha never verifies again")
}

func TestCaptchaWrongAnswerKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, answer := env.issueCaptcha(t)

	ok, err := env.captchas.Verify(ctx, id, "!!!!")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.captchas.Verify(ctx, id, answer)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCaptchaVerifyMisses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, answer := env.issueCaptcha(t)

	t.Run("empty inputs", func(t *testing.T) {
		ok, err := env.captchas.Verify(ctx, "", answer)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = env.captchas.Verify(ctx, id, "  ")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		ok, err := env.captchas.Verify(ctx, "nope", answer)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("expired", func(t *testing.T) {
		env.advance(DefaultCaptchaTTL + time.Second)
		ok, err := env.captchas.Verify(ctx, id, answer)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

// lockstepCache makes every Get wait until all expected readers have read,
// so concurrent verifications all see the record before any removes it.
type lockstepCache struct {
	cache.Cache
	readers sync.WaitGroup
}

func (c *lockstepCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.Cache.Get(ctx, key)
	c.readers.Done()
	c.readers.Wait()
	return v, err
}

func TestCaptchaConcurrentVerifySucceedsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, answer := env.issueCaptcha(t)

	const attempts = 2
	lc := &lockstepCache{Cache: env.cache}
	lc.readers.Add(attempts)
	captchas := &CaptchaService{Cache: lc}

	var wg sync.WaitGroup
	var passed atomic.Int32
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := captchas.Verify(ctx, id, answer)
			if err == nil && ok {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, passed.Load())
	require.False(t, env.mr.Exists(captchaKey(id)))
}
