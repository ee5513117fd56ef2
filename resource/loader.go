package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	ErrResourceNotFound = errors.New("resource: resource not found")
	ErrSQLNotFound      = errors.New("resource: SQL id not found")
	ErrDuplicateSQLID   = errors.New("resource: duplicate SQL id")
	ErrInvalidResource  = errors.New("resource: malformed resource file")
	ErrInvalidReference = errors.New("resource: reference must be \"resource#SQL_ID\"")
)

const (
	DefaultExtension = ".sql"
	DefaultCacheSize = 128
)

type Options struct {
	Dir       string
	Extension string
	CacheSize int
	Logger    *zap.Logger
}

// Loader reads SQL templates from resource files under a directory. A
// resource id such as "users.admin" or "users/admin" names the file
// <Dir>/users/admin.sql. Parsed files are cached.
type Loader struct {
	fs     afero.Fs
	opts   Options
	cache  *lru.Cache[string, map[string]string]
	logger *zap.Logger
}

func New(fsys afero.Fs, opts Options) (*Loader, error) {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New[string, map[string]string](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{fs: fsys, opts: opts, cache: cache, logger: opts.Logger}, nil
}

// normalize maps both separator styles onto the cache key form.
func normalize(id string) string {
	return strings.Trim(strings.ReplaceAll(id, "/", "."), ".")
}

func (l *Loader) path(id string) string {
	return filepath.Join(l.opts.Dir, filepath.FromSlash(strings.ReplaceAll(id, ".", "/"))+l.opts.Extension)
}

// Load returns every statement of the resource, keyed by SQL id. The map is
// shared with the cache and must not be modified.
func (l *Loader) Load(resourceID string) (map[string]string, error) {
	id := normalize(resourceID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrResourceNotFound)
	}
	if stmts, ok := l.cache.Get(id); ok {
		return stmts, nil
	}

	path := l.path(id)
	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrResourceNotFound, resourceID, path)
		}
		return nil, err
	}
	defer f.Close()

	stmts, err := parse(path, f)
	if err != nil {
		return nil, err
	}
	l.cache.Add(id, stmts)
	l.logger.Debug("resource loaded",
		zap.String("resource", id),
		zap.String("path", path),
		zap.Int("statements", len(stmts)))
	return stmts, nil
}

// Get resolves a "resource#SQL_ID" reference.
func (l *Loader) Get(ref string) (string, error) {
	resourceID, sqlID, ok := strings.Cut(ref, "#")
	if !ok || resourceID == "" || sqlID == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	stmts, err := l.Load(resourceID)
	if err != nil {
		return "", err
	}
	sql, ok := stmts[sqlID]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrSQLNotFound, sqlID, resourceID)
	}
	return sql, nil
}

// Invalidate drops the cached statements of a resource.
func (l *Loader) Invalidate(resourceID string) {
	l.cache.Remove(normalize(resourceID))
}

// Purge drops every cached resource.
func (l *Loader) Purge() {
	l.cache.Purge()
}

func (l *Loader) Cached() int {
	return l.cache.Len()
}

// resourceOf maps a file path under Dir back to its resource id.
func (l *Loader) resourceOf(path string) (string, bool) {
	if filepath.Ext(path) != l.opts.Extension {
		return "", false
	}
	rel, err := filepath.Rel(l.opts.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return normalize(filepath.ToSlash(strings.TrimSuffix(rel, l.opts.Extension))), true
}
