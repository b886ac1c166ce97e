// Package domain picks the base URL used to build redirect links for an
// owner: a verified custom domain or the platform default.
package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkodi/qrcode-service/internal/logger"
	"github.com/darkodi/qrcode-service/internal/model"
)

// Source tells where a resolved base URL came from
type Source string

const (
	SourceCustomDomain     Source = "custom_domain"
	SourceAnonymous        Source = "anonymous"
	SourceNoDefaultDomain  Source = "no_default_domain"
	SourceDefaultNotActive Source = "default_not_active"
)

// Lister reads an owner's custom domains
type Lister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]model.CustomDomain, error)
}

// Resolution is the outcome of resolving an owner's base URL
type Resolution struct {
	BaseURL string
	Source  Source
	Domain  string // set when Source is SourceCustomDomain or SourceDefaultNotActive
}

// Resolver chooses between an owner's default custom domain and the
// platform base URL.
type Resolver struct {
	domains        Lister
	defaultBaseURL string
	log            *logger.Logger
}

// NewResolver creates a resolver falling back to defaultBaseURL
func NewResolver(domains Lister, defaultBaseURL string, log *logger.Logger) *Resolver {
	return &Resolver{
		domains:        domains,
		defaultBaseURL: strings.TrimRight(defaultBaseURL, "/"),
		log:            log,
	}
}

// Resolve returns the base URL for ownerID. Only a domain that is both
// default and SSL-active is used; every other case falls back to the
// platform base URL and is reported through Source, not as an error.
func (r *Resolver) Resolve(ctx context.Context, ownerID *string) (Resolution, error) {
	if ownerID == nil {
		return r.fallback(SourceAnonymous, ""), nil
	}

	domains, err := r.domains.ListByOwner(ctx, *ownerID)
	if err != nil {
		return Resolution{}, fmt.Errorf("list custom domains: %w", err)
	}

	for _, d := range domains {
		if !d.IsDefault {
			continue
		}
		// setting a default requires an active certificate, but the status
		// may have regressed since
		if d.SSLStatus != model.SSLActive {
			return r.fallback(SourceDefaultNotActive, d.Domain), nil
		}
		return Resolution{
			BaseURL: "https://" + d.Domain,
			Source:  SourceCustomDomain,
			Domain:  d.Domain,
		}, nil
	}

	return r.fallback(SourceNoDefaultDomain, ""), nil
}

// ResolveBaseURL is Resolve reduced to the base URL
func (r *Resolver) ResolveBaseURL(ctx context.Context, ownerID *string) (string, error) {
	res, err := r.Resolve(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return res.BaseURL, nil
}

// BaseURLs lists every base an owner's redirect links can be built on: the
// platform base URL followed by each of the owner's custom domains, whatever
// their SSL status.
func (r *Resolver) BaseURLs(ctx context.Context, ownerID *string) ([]string, error) {
	bases := []string{r.defaultBaseURL}
	if ownerID == nil {
		return bases, nil
	}

	domains, err := r.domains.ListByOwner(ctx, *ownerID)
	if err != nil {
		return nil, fmt.Errorf("list custom domains: %w", err)
	}
	for _, d := range domains {
		bases = append(bases, "https://"+d.Domain)
	}
	return bases, nil
}

func (r *Resolver) fallback(source Source, domain string) Resolution {
	if r.log != nil {
		r.log.Debug("using default base url", "source", string(source), "domain", domain)
	}
	return Resolution{BaseURL: r.defaultBaseURL, Source: source, Domain: domain}
}
