// Package assets loads the files the portfolio page is built from: images,
// the contact email, the testimonial PDF and the remote Lottie animations.
//
// Local assets are required and a missing or unreadable one fails Load.
// Remote animations are decorations: a failed fetch leaves the animation
// absent and is only logged.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder.
	_ "image/jpeg" // Register JPEG decoder.
	_ "image/png"  // Register PNG decoder.
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // Register WebP decoder.
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPath      = errors.New("asset path must be relative to the asset root")
	ErrInvalidImage     = errors.New("not a decodable image")
	ErrInvalidPDF       = errors.New("not a PDF document")
	ErrEmptyEmail       = errors.New("email file is empty")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrInvalidAnimation = errors.New("animation is not valid JSON")
)

const (
	defaultTimeout   = 10 * time.Second
	maxAnimationSize = 16 << 20
	pdfMagic         = "%PDF-"
)

// Manifest names every asset a page needs. Paths are slash separated and
// relative to the loader root.
type Manifest struct {
	Images          []string
	EmailFile       string
	TestimonialFile string
	// Animations maps an animation key to the URL of its Lottie JSON.
	Animations map[string]string
}

// Image is a decoded-and-verified image file kept in memory.
type Image struct {
	Path        string
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Bundle is the result of a Load.
type Bundle struct {
	Images      map[string]Image
	Email       string
	Testimonial []byte
	// Animations only holds animations that were fetched successfully.
	Animations map[string]json.RawMessage
}

// Image returns the image loaded from path.
func (b *Bundle) Image(path string) (Image, bool) {
	img, ok := b.Images[path]
	return img, ok
}

// Animation returns the Lottie JSON for key, or nil when it is absent.
func (b *Bundle) Animation(key string) json.RawMessage {
	return b.Animations[key]
}

// TestimonialBase64 encodes the testimonial PDF for a data URI.
func (b *Bundle) TestimonialBase64() string {
	return base64.StdEncoding.EncodeToString(b.Testimonial)
}

// Loader reads assets from a root directory and fetches remote animations.
type Loader struct {
	root    string
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout bounds the time spent fetching all remote animations.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// NewLoader creates a loader rooted at root. A nil client uses
// http.DefaultClient and a nil logger discards log output.
func NewLoader(root string, client *http.Client, logger *zap.Logger, opts ...Option) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		root:    root,
		client:  client,
		logger:  logger,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every local asset in m, then fetches the animations
// concurrently.
func (l *Loader) Load(ctx context.Context, m Manifest) (*Bundle, error) {
	b := &Bundle{
		Images:     make(map[string]Image, len(m.Images)),
		Animations: make(map[string]json.RawMessage, len(m.Animations)),
	}

	for _, p := range m.Images {
		if _, seen := b.Images[p]; seen {
			continue
		}
		img, err := l.loadImage(p)
		if err != nil {
			return nil, err
		}
		b.Images[p] = img
	}

	email, err := l.readFile(m.EmailFile)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	b.Email = strings.TrimSpace(string(email))
	if b.Email == "" {
		return nil, fmt.Errorf("%s: %w", m.EmailFile, ErrEmptyEmail)
	}

	b.Testimonial, err = l.readFile(m.TestimonialFile)
	if err != nil {
		return nil, fmt.Errorf("testimonial: %w", err)
	}
	if !bytes.HasPrefix(b.Testimonial, []byte(pdfMagic)) {
		return nil, fmt.Errorf("%s: %w", m.TestimonialFile, ErrInvalidPDF)
	}

	l.fetchAnimations(ctx, m.Animations, b)

	l.logger.Info("Assets loaded",
		zap.Int("images", len(b.Images)),
		zap.Int("animations", len(b.Animations)),
		zap.Int("animations_missing", len(m.Animations)-len(b.Animations)),
		zap.Int("testimonial_bytes", len(b.Testimonial)),
	)
	return b, nil
}

func (l *Loader) fetchAnimations(ctx context.Context, urls map[string]string, b *Bundle) {
	if len(urls) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		key  string
		data json.RawMessage
	}
	results := make([]result, 0, len(urls))
	for key := range urls {
		results = append(results, result{key: key})
	}

	var g errgroup.Group
	for i := range results {
		r := &results[i]
		url := urls[r.key]
		g.Go(func() error {
			data, err := l.FetchAnimation(ctx, url)
			if err != nil {
				l.logger.Warn("Animation unavailable",
					zap.String("key", r.key),
					zap.String("url", url),
					zap.Error(err),
				)
				return nil
			}
			r.data = data
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.data != nil {
			b.Animations[r.key] = r.data
		}
	}
}

// FetchAnimation downloads one Lottie JSON document. Only a 200 response
// with a valid JSON body is accepted. There is no retry.
func (l *Loader) FetchAnimation(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			l.logger.Debug("Failed to close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, ErrUnexpectedStatus)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnimationSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", url, ErrInvalidAnimation)
	}
	return json.RawMessage(body), nil
}

func (l *Loader) loadImage(p string) (Image, error) {
	data, err := l.readFile(p)
	if err != nil {
		return Image{}, fmt.Errorf("image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w: %v", p, ErrInvalidImage, err)
	}

	return Image{
		Path:        p,
		Data:        data,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

func (l *Loader) readFile(p string) ([]byte, error) {
	local := filepath.FromSlash(p)
	if p == "" || !filepath.IsLocal(local) {
		return nil, fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}

	data, err := os.ReadFile(filepath.Join(l.root, local))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}
