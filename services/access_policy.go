package services

import (
	"strings"

	"github.com/upb/identity-gateway/models"
)

// AccessPolicy answers the domain and admin allow-list questions asked at login.
// It is immutable after construction and safe for concurrent use.
type AccessPolicy struct {
	domains map[string]struct{}
	admins  map[string]struct{}
}

// NewAccessPolicy builds a policy from the configured lists. Entries are trimmed and lower-cased.
func NewAccessPolicy(allowedDomains, adminEmails []string) *AccessPolicy {
	return &AccessPolicy{
		domains: toSet(allowedDomains),
		admins:  toSet(adminEmails),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// IsDomainAllowed reports whether email may sign in. An empty domain list allows everyone.
func (p *AccessPolicy) IsDomainAllowed(email string) bool {
	if len(p.domains) == 0 {
		return true
	}
	_, ok := p.domains[models.EmailDomain(email)]
	return ok
}

// IsAdminEmail reports whether email is on the admin list, ignoring case
func (p *AccessPolicy) IsAdminEmail(email string) bool {
	_, ok := p.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// AdminEmails returns the configured admin addresses in no particular order
func (p *AccessPolicy) AdminEmails() []string {
	emails := make([]string, 0, len(p.admins))
	for email := range p.admins {
		emails = append(emails, email)
	}
	return emails
}
