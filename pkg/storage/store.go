package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultCacheControl is sent with proxied objects unless overridden.
const DefaultCacheControl = "public, max-age=31536000, immutable"

// DefaultACLUnsupportedMarkers match backend errors meaning the bucket
// rejects ACL directives.
var DefaultACLUnsupportedMarkers = []string{
	"AccessControlListNotSupported",
	"The bucket does not allow ACLs",
	"ACLs are not supported",
}

// Meta is the backend metadata of a stored object.
type Meta struct {
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  time.Time
}

// Object is an open object body plus its metadata.
type Object struct {
	Body io.ReadCloser
	Meta Meta
}

// PutInput describes a single write. An empty ACL means no ACL directive.
type PutInput struct {
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	CacheControl string
	ACL          string
}

// Backend is the object store the Store fronts. Implementations return an
// error wrapping integration.ErrObjectNotFound for absent keys.
type Backend interface {
	Put(ctx context.Context, in *PutInput) error
	Get(ctx context.Context, key string) (*Object, error)
	Head(ctx context.Context, key string) (*Meta, error)
	Delete(ctx context.Context, key string) error
}

// Unavailable returns a Backend that fails every call with err. It stands in
// for a backend whose configuration is incomplete.
func Unavailable(err error) Backend {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Put(context.Context, *PutInput) error         { return u.err }
func (u unavailable) Get(context.Context, string) (*Object, error) { return nil, u.err }
func (u unavailable) Head(context.Context, string) (*Meta, error)  { return nil, u.err }
func (u unavailable) Delete(context.Context, string) error         { return u.err }

// Config holds Store configuration.
type Config struct {
	ACL                   string
	CacheControl          string
	ACLUnsupportedMarkers []string
}

// Uploaded is the outcome of an upload.
type Uploaded struct {
	Key string
	URL string
}

// Store performs object I/O and shapes backend results for HTTP.
type Store struct {
	backend  Backend
	resolver *Resolver
	config   Config
	logger   *otelzap.Logger
}

// NewStore creates a Store.
func NewStore(cfg Config, backend Backend, resolver *Resolver, logger *otelzap.Logger) *Store {
	if cfg.CacheControl == "" {
		cfg.CacheControl = DefaultCacheControl
	}
	if len(cfg.ACLUnsupportedMarkers) == 0 {
		cfg.ACLUnsupportedMarkers = DefaultACLUnsupportedMarkers
	}
	return &Store{
		backend:  backend,
		resolver: resolver,
		config:   cfg,
		logger:   logger,
	}
}

// Resolver returns the key resolver used by the store.
func (s *Store) Resolver() *Resolver {
	return s.resolver
}

// Upload writes data under key. The write is attempted with the configured
// ACL first and retried exactly once without it when the backend reports
// that ACLs are unsupported.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (*Uploaded, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	put := func(acl string) error {
		return s.backend.Put(ctx, &PutInput{
			Key:          key,
			Body:         bytes.NewReader(data),
			Size:         int64(len(data)),
			ContentType:  contentType,
			CacheControl: s.config.CacheControl,
			ACL:          acl,
		})
	}

	err := put(s.config.ACL)
	if err != nil && s.config.ACL != "" && s.aclUnsupported(err) {
		s.logger.Ctx(ctx).Warn("Bucket rejected ACL, retrying upload without it",
			zap.String("key", key),
			zap.Error(err),
		)
		err = put("")
	}
	if err != nil {
		s.logger.Ctx(ctx).Error("Upload failed", zap.String("key", key), zap.Error(err))
		if integration.IsKnown(err) {
			return nil, err
		}
		return nil, integration.StorageError("Upload failed: " + backendMessage(err)).WithCause(err)
	}

	return &Uploaded{Key: key, URL: s.resolver.PublicURL(key)}, nil
}

// Fetch opens the object at key. The caller closes Body.
func (s *Store) Fetch(ctx context.Context, key string) (*Object, error) {
	obj, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, s.translate(ctx, key, err)
	}
	return obj, nil
}

// Head returns the metadata of the object at key.
func (s *Store) Head(ctx context.Context, key string) (*Meta, error) {
	meta, err := s.backend.Head(ctx, key)
	if err != nil {
		return nil, s.translate(ctx, key, err)
	}
	return meta, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return s.translate(ctx, key, err)
	}
	return nil
}

// Headers derives the proxy response headers from object metadata.
func (s *Store) Headers(meta *Meta) http.Header {
	h := http.Header{}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	if meta.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(meta.ContentLength, 10))
	}
	if meta.ETag != "" {
		h.Set("ETag", meta.ETag)
	}
	if !meta.LastModified.IsZero() {
		h.Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	}
	h.Set("Cache-Control", s.config.CacheControl)
	return h
}

func (s *Store) translate(ctx context.Context, key string, err error) error {
	if errors.Is(err, integration.ErrObjectNotFound) {
		return integration.NotFoundError(key)
	}
	if integration.IsKnown(err) {
		return err
	}
	s.logger.Ctx(ctx).Error("Storage backend error", zap.String("key", key), zap.Error(err))
	return integration.StorageError(backendMessage(err)).WithCause(err)
}

func (s *Store) aclUnsupported(err error) bool {
	candidates := []string{err.Error()}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		candidates = append(candidates, coded.ErrorCode())
	}
	for _, c := range candidates {
		for _, marker := range s.config.ACLUnsupportedMarkers {
			if marker != "" && strings.Contains(c, marker) {
				return true
			}
		}
	}
	return false
}

// backendMessage returns the backend's own error message, or a generic one.
func backendMessage(err error) string {
	var msg interface{ ErrorMessage() string }
	if errors.As(err, &msg) && msg.ErrorMessage() != "" {
		return msg.ErrorMessage()
	}
	return "storage backend error"
}
