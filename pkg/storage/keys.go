// Package storage derives object keys and fronts an object-storage backend
// for upload, delete, fetch and head.
package storage

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/google/uuid"
)

// placeholderNames are file names browsers send when none is known.
var placeholderNames = map[string]bool{
	"":     true,
	"blob": true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ResolverConfig describes where objects are publicly reachable.
type ResolverConfig struct {
	Bucket    string
	Region    string
	PublicURL string // optional custom domain, e.g. https://cdn.example.com
}

// Resolver builds upload keys and maps public URLs back to keys.
type Resolver struct {
	config ResolverConfig
	now    func() time.Time
	newID  func() string
}

// NewResolver creates a resolver using the wall clock and random UUIDs.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		config: cfg,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// WithClock replaces the time and id sources. Used by tests.
func (r *Resolver) WithClock(now func() time.Time, newID func() string) *Resolver {
	r.now = now
	r.newID = newID
	return r
}

// NormalizePath strips leading and repeated slashes and rejects empty paths
// and any ".." segment.
func NormalizePath(raw string) (string, error) {
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if p == ".." {
			return "", integration.ValidationError("path", "Invalid path: traversal is not allowed").
				WithCause(integration.ErrPathTraversal)
		}
		segments = append(segments, p)
	}
	if len(segments) == 0 {
		return "", integration.ValidationError("path", "Invalid path").WithCause(integration.ErrEmptyPath)
	}
	return strings.Join(segments, "/"), nil
}

// SanitizeName replaces every character outside [A-Za-z0-9._-] with "_".
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// UploadKey returns {path}/{name}-{timestamp}-{id}{.ext}, or
// {path}/{timestamp}-{id} when fileName is absent or a placeholder.
func (r *Resolver) UploadKey(rawPath, fileName string) (string, error) {
	safePath, err := NormalizePath(rawPath)
	if err != nil {
		return "", err
	}

	unique := fmt.Sprintf("%d-%s", r.now().UnixMilli(), r.newID())

	fileName = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if fileName == "." || fileName == "/" || placeholderNames[strings.ToLower(fileName)] {
		return safePath + "/" + unique, nil
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	if ext == "." {
		// A trailing dot carries no extension.
		ext = ""
		base = strings.TrimRight(fileName, ".")
	}

	name := unique
	if base != "" {
		name = SanitizeName(base) + "-" + unique
	}
	if ext != "" {
		name += "." + SanitizeName(strings.TrimPrefix(ext, "."))
	}
	return safePath + "/" + name, nil
}

// BaseURLs returns the public base URLs in match order: the custom domain
// when configured, then the virtual-hosted and path-style S3 forms.
func (r *Resolver) BaseURLs() []string {
	var bases []string
	if r.config.PublicURL != "" {
		bases = append(bases, strings.TrimRight(r.config.PublicURL, "/")+"/")
	}
	if r.config.Bucket != "" && r.config.Region != "" {
		bases = append(bases,
			fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", r.config.Bucket, r.config.Region),
			fmt.Sprintf("https://s3.%s.amazonaws.com/%s/", r.config.Region, r.config.Bucket),
		)
	}
	return bases
}

// PublicURL returns the preferred public URL for key.
func (r *Resolver) PublicURL(key string) string {
	bases := r.BaseURLs()
	if len(bases) == 0 {
		return "/" + key
	}
	return JoinURL(bases[0], key)
}

// JoinURL appends key to base, escaping each path segment.
func JoinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + strings.Join(segments, "/")
}

// KeyFromURL maps a public URL back to its object key. The decoded key is
// normalized like any client-supplied path.
func (r *Resolver) KeyFromURL(rawURL string) (string, error) {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	for _, base := range r.BaseURLs() {
		if !strings.HasPrefix(u, base) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimPrefix(u, base))
		if err != nil || key == "" {
			return "", integration.UnresolvableKeyError(rawURL)
		}
		return NormalizePath(key)
	}
	return "", integration.UnresolvableKeyError(rawURL)
}
