package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// KeyMode selects how a URL maps to a cache key.
type KeyMode string

const (
	// KeyHashed appends a short hash of the normalized URL to the last path
	// segment, so distinct URLs never share an artifact.
	KeyHashed KeyMode = "hashed"
	// KeySegment uses everything after the last "/" of the raw URL. It reads
	// caches written by earlier versions of the harvester.
	KeySegment KeyMode = "segment"
)

// ParseKeyMode validates a configured key mode.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(strings.ToLower(strings.TrimSpace(s))) {
	case KeyHashed, "":
		return KeyHashed, nil
	case KeySegment:
		return KeySegment, nil
	default:
		return "", eris.Errorf("fetcher: unknown cache key mode %q", s)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CacheKey derives the cache key for rawURL. A page's HTML and its settings
// artifact share this key and differ only by extension.
func CacheKey(rawURL string, mode KeyMode) (string, error) {
	if mode == KeySegment {
		seg := rawURL[strings.LastIndex(rawURL, "/")+1:]
		return finishKey(seg), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	norm := normalizeURL(u)

	seg := path.Base(u.Path)
	if seg == "/" || seg == "." {
		seg = ""
	}
	seg = strings.Trim(unsafeKeyChars.ReplaceAllString(seg, "-"), "-")

	sum := sha256.Sum256([]byte(norm))
	return finishKey(seg) + "-" + hex.EncodeToString(sum[:])[:12], nil
}

func finishKey(seg string) string {
	seg = strings.TrimSuffix(seg, ".html")
	if seg == "" {
		return "index"
	}
	return seg
}

// normalizeURL lowercases scheme and host, drops the fragment and sorts the
// query so equivalent URLs hash alike.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	n.RawQuery = n.Query().Encode()
	return n.String()
}

// Cache stores fetched pages and derived artifacts on disk, one file per key
// and extension.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. The directory is created on first write.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Path returns the file path for key with the given extension (".html", ".json").
func (c *Cache) Path(key, ext string) string {
	return filepath.Join(c.dir, key+ext)
}

// Has reports whether an artifact exists.
func (c *Cache) Has(key, ext string) bool {
	info, err := os.Stat(c.Path(key, ext))
	return err == nil && !info.IsDir()
}

// Read returns the stored artifact.
func (c *Cache) Read(key, ext string) ([]byte, error) {
	data, err := os.ReadFile(c.Path(key, ext))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read cache %s%s", key, ext)
	}
	return data, nil
}

// Write stores data atomically: it is written to a temp file in the cache
// directory and renamed into place.
func (c *Cache) Write(key, ext string, data []byte) error {
	return WriteFileAtomic(c.Path(key, ext), data)
}

// WriteFileAtomic writes data to path via a temp file and rename, creating
// parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "fetcher: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "fetcher: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "fetcher: close %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "fetcher: chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "fetcher: rename %s", path)
	}
	return nil
}
