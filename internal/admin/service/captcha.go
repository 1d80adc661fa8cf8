package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

const (
	DefaultCaptchaTTL    = 5 * time.Minute
	DefaultCaptchaLength = 4

	// Digits and letters minus the easily confused 0, o, 1 and i.
	captchaAlphabet = "23456789abcdefghjklmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

	captchaWidth  = 150
	captchaHeight = 50
	captchaNoise  = 2
)

func captchaKey(id string) string { return "captcha:" + id }

// CaptchaService issues single-use image challenges for the login form.
type CaptchaService struct {
	Cache  cache.Cache
	TTL    time.Duration
	Length int
}

// Issue creates a challenge and stores its lowercased answer.
func (s *CaptchaService) Issue(ctx context.Context) (domain.Captcha, error) {
	length := s.Length
	if length <= 0 {
		length = DefaultCaptchaLength
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultCaptchaTTL
	}

	text, err := captchaText(length)
	if err != nil {
		return domain.Captcha{}, err
	}

	id := uuid.NewString()
	if err := s.Cache.Set(ctx, captchaKey(id), strings.ToLower(text), ttl); err != nil {
		return domain.Captcha{}, fmt.Errorf("failed to store captcha: %w", err)
	}

	return domain.Captcha{ID: id, SVG: renderCaptchaSVG(text)}, nil
}

// Verify compares answer case-insensitively. A correct answer consumes the
// challenge; a wrong one leaves it for another attempt until it expires.
func (s *CaptchaService) Verify(ctx context.Context, id, answer string) (bool, error) {
	answer = strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false, nil
	}

	stored, err := s.Cache.Get(ctx, captchaKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != strings.ToLower(answer) {
		return false, nil
	}

	// Only the caller that removes the record wins a concurrent race.
	taken, err := s.Cache.Take(ctx, captchaKey(id))
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to consume captcha", "captcha_id", id, "err", err)
		return false, err
	}
	return taken, nil
}

func captchaText(n int) (string, error) {
	limit := big.NewInt(int64(len(captchaAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate captcha: %w", err)
		}
		buf[i] = captchaAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

var captchaColors = []string{"#1f6feb", "#8250df", "#bf3989", "#cf222e", "#1a7f37", "#9a6700"}

// renderCaptchaSVG draws each glyph with its own jitter, rotation and colour
// over a few noise curves.
func renderCaptchaSVG(text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		captchaWidth, captchaHeight, captchaWidth, captchaHeight)
	b.WriteString(`<rect width="100%" height="100%" fill="#f6f8fa"/>`)

	for range captchaNoise {
		fmt.Fprintf(&b, `<path d="M%d %d C%d %d,%d %d,%d %d" stroke="%s" stroke-width="2" fill="none"/>`,
			mrand.IntN(20), mrand.IntN(captchaHeight),
			mrand.IntN(captchaWidth), mrand.IntN(captchaHeight),
			mrand.IntN(captchaWidth), mrand.IntN(captchaHeight),
			captchaWidth-mrand.IntN(20), mrand.IntN(captchaHeight),
			captchaColors[mrand.IntN(len(captchaColors))])
	}

	step := captchaWidth / (len(text) + 1)
	for i, r := range text {
		x := step*(i+1) - 8 + mrand.IntN(8)
		y := captchaHeight/2 + 10 + mrand.IntN(8) - 4
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="monospace" font-size="%d" fill="%s" transform="rotate(%d %d %d)">%c</text>`,
			x, y, 28+mrand.IntN(6), captchaColors[mrand.IntN(len(captchaColors))],
			mrand.IntN(50)-25, x, y, r)
	}

	b.WriteString(`</svg>`)
	return b.String()
}
