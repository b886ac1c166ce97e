package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/darkodi/qrcode-service/internal/cache"
	"github.com/darkodi/qrcode-service/internal/config"
	"github.com/darkodi/qrcode-service/internal/content"
	"github.com/darkodi/qrcode-service/internal/domain"
	"github.com/darkodi/qrcode-service/internal/encoder"
	"github.com/darkodi/qrcode-service/internal/logger"
	"github.com/darkodi/qrcode-service/internal/model"
	"github.com/darkodi/qrcode-service/internal/repository"
	"github.com/darkodi/qrcode-service/internal/shortcode"
)

// Custom errors for the service layer
var (
	ErrContentTypeImmutable    = errors.New("content type cannot be changed")
	ErrSelfReferentialRedirect = errors.New("destination points at the qr code's own short link")
	ErrBindingFailure          = errors.New("could not allocate a unique short code")
	ErrQRCodeNotFound          = errors.New("qr code not found")
	ErrShortURLNotFound        = errors.New("short url not found")
)

// MaxNameLength bounds QRCode.Name
const MaxNameLength = 32

// ContentTypeMismatchError reports an update that tried to change the
// content type. It matches ErrContentTypeImmutable.
type ContentTypeMismatchError struct {
	Current   content.Type
	Requested content.Type
}

func (e *ContentTypeMismatchError) Error() string {
	return fmt.Sprintf("content type cannot be changed from %q to %q", e.Current, e.Requested)
}

func (e *ContentTypeMismatchError) Unwrap() error {
	return ErrContentTypeImmutable
}

// Resolver picks the base URL for an owner's redirect links
type Resolver interface {
	Resolve(ctx context.Context, ownerID *string) (domain.Resolution, error)
	BaseURLs(ctx context.Context, ownerID *string) ([]string, error)
}

// Options holds the lifecycle settings taken from configuration
type Options struct {
	ViewBaseURL  string // detail view base for event and vCard destinations
	MaxAttempts  int    // short code generation attempts before ErrBindingFailure
	DetachPolicy string // config.DetachDelete or config.DetachDisable
}

// QRCodeService runs the QR code lifecycle: validation, short URL binding,
// base URL resolution and payload encoding.
type QRCodeService struct {
	store     *repository.Store
	resolver  Resolver
	codes     shortcode.Generator
	redirects cache.RedirectCache
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// NewQRCodeService creates a new service instance
func NewQRCodeService(
	store *repository.Store,
	resolver Resolver,
	codes shortcode.Generator,
	redirects cache.RedirectCache,
	opts Options,
	log *logger.Logger,
) *QRCodeService {
	if redirects == nil {
		redirects = cache.Noop{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.DetachPolicy == "" {
		opts.DetachPolicy = config.DetachDelete
	}
	opts.ViewBaseURL = strings.TrimRight(opts.ViewBaseURL, "/")

	return &QRCodeService{
		store:     store,
		resolver:  resolver,
		codes:     codes,
		redirects: redirects,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================
// CREATE
// ============================================================

// Create validates the request, binds a short URL when the content is
// dynamic, and stores the QR code with its encoded payload.
func (s *QRCodeService) Create(ctx context.Context, ownerID *string, req model.CreateQRCodeRequest) (*model.QRCode, error) {
	c, err := parseRequest(req.Content, &req.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	qr := &model.QRCode{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Content:   c,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dynamic := content.RequiresShortURL(c)

	// resolve before the transaction: sqlite runs on a single connection
	var res domain.Resolution
	if dynamic {
		if res, err = s.resolver.Resolve(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("resolve base url: %w", err)
		}
	}

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		redirect := ""
		if dynamic {
			short, err := s.bind(ctx, r, qr)
			if err != nil {
				return err
			}
			redirect = encoder.RedirectURL(res.BaseURL, short.ShortCode)
		}
		qr.QRCodeData = encoder.Encode(c, redirect)
		return r.QRCodes.Create(ctx, qr)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("qr code created",
		"qr_code_id", qr.ID,
		"type", string(c.Type),
		"dynamic", dynamic,
		"base_url_source", string(res.Source),
	)
	return qr, nil
}

// ============================================================
// UPDATE
// ============================================================

// Update replaces the content of a QR code. The content type is fixed at
// creation; the short URL binding follows the new content.
func (s *QRCodeService) Update(ctx context.Context, ownerID *string, id string, req model.UpdateQRCodeRequest) (*model.QRCode, error) {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	// checked before field validation so nothing is touched
	if req.Content.Type != existing.Content.Type {
		return nil, &ContentTypeMismatchError{Current: existing.Content.Type, Requested: req.Content.Type}
	}

	c, err := parseRequest(req.Content, req.Name)
	if err != nil {
		return nil, err
	}

	dynamic := content.RequiresShortURL(c)

	// a custom domain may have been added or changed since creation
	var (
		res   domain.Resolution
		bases []string
	)
	if dynamic {
		if res, err = s.resolver.Resolve(ctx, existing.OwnerID); err != nil {
			return nil, fmt.Errorf("resolve base url: %w", err)
		}
		if bases, err = s.resolver.BaseURLs(ctx, existing.OwnerID); err != nil {
			return nil, fmt.Errorf("list base urls: %w", err)
		}
	}

	var (
		qr         *model.QRCode
		transition string
		stale      string          // short code whose cached destination must go
		repointed  *model.ShortURL // short URL whose new destination is written through
	)
	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		current, err := r.QRCodes.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQRCodeNotFound
		}
		if err != nil {
			return err
		}
		wasDynamic := current.IsDynamic() && current.ShortURL != nil

		now := s.now()
		current.Content = c
		current.UpdatedAt = now
		if req.Name != nil {
			current.Name = *req.Name
		}
		if len(req.Config) > 0 {
			current.Config = req.Config
		}

		redirect := ""
		switch {
		case wasDynamic && dynamic:
			transition = "dynamic_to_dynamic"
			short := current.ShortURL
			redirect = encoder.RedirectURL(res.BaseURL, short.ShortCode)

			dest := s.destination(current.ID, c)
			links := append(ownLinks(short.ShortCode, bases), current.QRCodeData, redirect)
			if isSelfReference(dest, links...) {
				return ErrSelfReferentialRedirect
			}
			if dest != short.DestinationURL {
				if err := r.ShortURLs.UpdateDestination(ctx, short.ID, dest, now); err != nil {
					return fmt.Errorf("update short url: %w", err)
				}
				short.DestinationURL = dest
				short.UpdatedAt = now
				repointed = short
			}

		case !wasDynamic && dynamic:
			transition = "static_to_dynamic"
			short, err := s.bind(ctx, r, current)
			if err != nil {
				return err
			}
			redirect = encoder.RedirectURL(res.BaseURL, short.ShortCode)

		case wasDynamic && !dynamic:
			transition = "dynamic_to_static"
			stale = current.ShortURL.ShortCode
			if err := s.detach(ctx, r, current, now); err != nil {
				return err
			}

		default:
			transition = "static_to_static"
		}

		current.QRCodeData = encoder.Encode(c, redirect)
		if err := r.QRCodes.Update(ctx, current); err != nil {
			return fmt.Errorf("update qr code: %w", err)
		}
		qr = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stale != "" {
		s.invalidate(ctx, stale)
	}
	if repointed != nil {
		s.writeThrough(ctx, repointed.ShortCode, repointed.DestinationURL)
	}

	s.log.Info("qr code updated",
		"qr_code_id", qr.ID,
		"type", string(c.Type),
		"transition", transition,
		"base_url_source", string(res.Source),
	)
	return qr, nil
}

// ============================================================
// DELETE / READ
// ============================================================

// Delete removes a QR code together with its short URL
func (s *QRCodeService) Delete(ctx context.Context, ownerID *string, id string) error {
	var code string
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		current, err := r.QRCodes.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !sameOwner(current.OwnerID, ownerID)) {
			return ErrQRCodeNotFound
		}
		if err != nil {
			return err
		}

		if err := r.QRCodes.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete qr code: %w", err)
		}
		if current.ShortURLID != nil {
			if err := r.ShortURLs.Delete(ctx, *current.ShortURLID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("delete short url: %w", err)
			}
			if current.ShortURL != nil {
				code = current.ShortURL.ShortCode
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if code != "" {
		s.invalidate(ctx, code)
	}
	s.log.Info("qr code deleted", "qr_code_id", id, "short_code", code)
	return nil
}

// Get returns a QR code visible to ownerID
func (s *QRCodeService) Get(ctx context.Context, ownerID *string, id string) (*model.QRCode, error) {
	qr, err := s.View(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameOwner(qr.OwnerID, ownerID) {
		return nil, ErrQRCodeNotFound
	}
	return qr, nil
}

// View returns a QR code regardless of owner. It backs the public detail
// page that event and vCard short URLs redirect to.
func (s *QRCodeService) View(ctx context.Context, id string) (*model.QRCode, error) {
	qr, err := s.store.Repos().QRCodes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQRCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return qr, nil
}

// List returns the owner's QR codes, newest first
func (s *QRCodeService) List(ctx context.Context, ownerID string) ([]*model.QRCode, error) {
	return s.store.Repos().QRCodes.ListByOwner(ctx, ownerID)
}

// ResolveShortCode returns where a short code redirects to. Unknown,
// disabled and destination-less short URLs are all ErrShortURLNotFound.
func (s *QRCodeService) ResolveShortCode(ctx context.Context, code string) (string, error) {
	if !shortcode.Valid(code) {
		return "", ErrShortURLNotFound
	}

	dest, ok, err := s.redirects.Get(ctx, code)
	if err != nil {
		s.log.Warn("redirect cache read failed", "short_code", code, "error", err.Error())
	}
	if ok {
		return dest, nil
	}

	short, err := s.store.Repos().ShortURLs.GetByShortCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrShortURLNotFound
	}
	if err != nil {
		return "", err
	}
	if !short.IsActive || short.DestinationURL == "" {
		return "", ErrShortURLNotFound
	}

	if err := s.redirects.Set(ctx, code, short.DestinationURL); err != nil {
		s.log.Warn("redirect cache write failed", "short_code", code, "error", err.Error())
	}
	return short.DestinationURL, nil
}

// ============================================================
// BINDING HELPERS
// ============================================================

// bind creates a short URL for qr, regenerating the code on collision up to
// MaxAttempts times. Uniqueness is left to the store's constraint.
func (s *QRCodeService) bind(ctx context.Context, r repository.Repos, qr *model.QRCode) (*model.ShortURL, error) {
	dest := s.destination(qr.ID, qr.Content)

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		short := &model.ShortURL{
			ID:             uuid.NewString(),
			ShortCode:      code,
			DestinationURL: dest,
			IsActive:       true,
			OwnerID:        qr.OwnerID,
			CreatedAt:      qr.UpdatedAt,
			UpdatedAt:      qr.UpdatedAt,
		}
		err = r.ShortURLs.Create(ctx, short)
		if errors.Is(err, repository.ErrShortCodeTaken) {
			s.log.Warn("short code collision", "short_code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create short url: %w", err)
		}

		qr.ShortURLID = &short.ID
		qr.ShortURL = short
		return short, nil
	}

	s.log.Error("short url binding failed", "qr_code_id", qr.ID, "attempts", s.opts.MaxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrBindingFailure, s.opts.MaxAttempts)
}

// detach unbinds the short URL according to the detach policy
func (s *QRCodeService) detach(ctx context.Context, r repository.Repos, qr *model.QRCode, at time.Time) error {
	id := *qr.ShortURLID
	qr.ShortURLID = nil
	qr.ShortURL = nil

	if s.opts.DetachPolicy == config.DetachDisable {
		if err := r.ShortURLs.SetActive(ctx, id, false, at); err != nil {
			return fmt.Errorf("disable short url: %w", err)
		}
		return nil
	}
	if err := r.ShortURLs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete short url: %w", err)
	}
	return nil
}

// destination is where the short URL of dynamic content points: the URL
// itself, or the platform detail view of the QR code.
func (s *QRCodeService) destination(id string, c content.Content) string {
	if d, ok := c.Data.(content.URL); ok {
		return d.URL
	}
	return s.opts.ViewBaseURL + "/qr/" + id
}

func (s *QRCodeService) invalidate(ctx context.Context, code string) {
	if err := s.redirects.Delete(ctx, code); err != nil {
		s.log.Warn("redirect cache invalidation failed", "short_code", code, "error", err.Error())
	}
}

// writeThrough replaces the cached destination after a re-point so a
// concurrent cache fill of the old value is overwritten. A failed write
// falls back to invalidation.
func (s *QRCodeService) writeThrough(ctx context.Context, code, dest string) {
	if err := s.redirects.Set(ctx, code, dest); err != nil {
		s.log.Warn("redirect cache write failed", "short_code", code, "error", err.Error())
		s.invalidate(ctx, code)
	}
}

// ============================================================
// VALIDATION HELPERS
// ============================================================

func parseRequest(req model.ContentRequest, name *string) (content.Content, error) {
	c, err := content.Parse(req.Type, req.Data)
	fields := content.FieldErrors(err)
	if err != nil && fields == nil {
		return content.Content{}, err
	}

	if name != nil && utf8.RuneCountInString(*name) > MaxNameLength {
		fields = append(fields, content.FieldError{
			Path:    []string{"name"},
			Message: fmt.Sprintf("must be at most %d characters", MaxNameLength),
		})
	}
	if len(fields) > 0 {
		return content.Content{}, &content.ValidationError{Fields: fields}
	}
	return c, nil
}

// ownLinks builds the redirect link for code on every base it may be
// served from.
func ownLinks(code string, bases []string) []string {
	links := make([]string, 0, len(bases))
	for _, base := range bases {
		links = append(links, encoder.RedirectURL(base, code))
	}
	return links
}

// isSelfReference reports whether dest loops back to one of the QR code's
// own short links. Hosts match case-insensitively and the scheme, query and
// trailing slash are ignored; the path, which carries the case-sensitive
// short code, must match exactly.
func isSelfReference(dest string, links ...string) bool {
	d, err := url.Parse(strings.TrimSpace(dest))
	if err != nil || d.Host == "" {
		return false
	}
	for _, link := range links {
		l, err := url.Parse(link)
		if err != nil || l.Host == "" {
			continue
		}
		if strings.EqualFold(d.Host, l.Host) && strings.TrimRight(d.Path, "/") == strings.TrimRight(l.Path, "/") {
			return true
		}
	}
	return false
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
