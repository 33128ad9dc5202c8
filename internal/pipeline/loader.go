package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ppiankov/repcheck/internal/cache"
	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/extract"
)

// ErrUnreadable wraps every failure to read, fetch or extract an input
var ErrUnreadable = errors.New("unreadable input")

// Loader turns input references (paths or http(s) URLs) into tokenizer sources
type Loader struct {
	cache    cache.Cache // nil disables caching
	fetcher  *Fetcher
	maxBytes int64
	logger   *slog.Logger
}

// NewLoader creates a loader. A nil cache disables caching.
func NewLoader(c cache.Cache, fetcher *Fetcher, maxBytes int64, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cache: c, fetcher: fetcher, maxBytes: maxBytes, logger: logger}
}

// Load reads one input and returns its plain text
func (l *Loader) Load(ctx context.Context, ref string) (corpus.Source, error) {
	if err := ctx.Err(); err != nil {
		return corpus.Source{}, err
	}
	if isURL(ref) {
		return l.loadURL(ctx, ref)
	}
	return l.loadFile(ref)
}

func (l *Loader) loadFile(path string) (corpus.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return corpus.Source{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if info.IsDir() {
		return corpus.Source{}, fmt.Errorf("%w: %s: is a directory", ErrUnreadable, path)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return corpus.Source{}, fmt.Errorf("%w: %s: %d bytes exceeds limit of %d", ErrUnreadable, path, info.Size(), l.maxBytes)
	}

	key := cache.FileKey(path, info.Size(), info.ModTime())
	if text, ok := l.lookup(key); ok {
		l.logger.Debug("source cache hit", slog.String("path", path))
		return corpus.Source{Name: path, Data: text}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return corpus.Source{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	text, err := l.extract(path, extract.DetectFormat(path, ""), raw)
	if err != nil {
		return corpus.Source{}, err
	}
	l.store(key, text)
	return corpus.Source{Name: path, Data: text}, nil
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (corpus.Source, error) {
	key := cache.URLKey(rawURL)
	if text, ok := l.lookup(key); ok {
		l.logger.Debug("source cache hit", slog.String("url", rawURL))
		return corpus.Source{Name: rawURL, Data: text}, nil
	}
	if l.fetcher == nil {
		return corpus.Source{}, fmt.Errorf("%w: %s: fetching is disabled", ErrUnreadable, rawURL)
	}

	res, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return corpus.Source{}, ctx.Err()
		}
		return corpus.Source{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, rawURL, err)
	}
	l.logger.Debug("fetched document",
		slog.String("url", res.FinalURL),
		slog.Int("status", res.StatusCode),
		slog.Int("bytes", len(res.Body)))

	text, err := l.extract(rawURL, extract.DetectFormat(urlFileName(res.FinalURL), res.ContentType), res.Body)
	if err != nil {
		return corpus.Source{}, err
	}
	l.store(key, text)
	return corpus.Source{Name: rawURL, Data: text}, nil
}

// extract converts raw bytes to text. A document without text becomes an
// empty source, which analyses as an empty corpus.
func (l *Loader) extract(name string, format extract.Format, raw []byte) ([]byte, error) {
	text, err := extract.Text(format, raw)
	if errors.Is(err, extract.ErrNoText) {
		l.logger.Warn("input has no extractable text", slog.String("input", name), slog.String("format", string(format)))
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: extract %s: %w", ErrUnreadable, name, format, err)
	}
	return text, nil
}

func (l *Loader) lookup(key string) ([]byte, bool) {
	if l.cache == nil {
		return nil, false
	}
	return l.cache.Get(key)
}

func (l *Loader) store(key string, text []byte) {
	if l.cache != nil {
		l.cache.Set(key, text)
	}
}
