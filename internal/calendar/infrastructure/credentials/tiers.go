// Package credentials implements the ordered credential tiers used to reach a
// team member's calendar: the member's own OAuth grant, service-account
// impersonation, a calendar shared with the service identity, and finally the
// service identity's own calendar.
package credentials

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	caldavInfra "github.com/slotwise/slotwise/internal/calendar/infrastructure/caldav"
	googleInfra "github.com/slotwise/slotwise/internal/calendar/infrastructure/google"
	identityOAuth "github.com/slotwise/slotwise/internal/identity/application/oauth"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

const calendarScope = "https://www.googleapis.com/auth/calendar"

// ErrTierNotApplicable signals the tier cannot serve this member's provider.
var ErrTierNotApplicable = errors.New("credential tier not applicable to member")

// CalDAVConfig holds the shared CalDAV account used for members on a CalDAV
// provider. Empty URL disables CalDAV handling.
type CalDAVConfig struct {
	BaseURL  string
	Username string
	Password string
}

// MemberGrantTier uses the member's own stored OAuth grant. For CalDAV
// members it falls back to the configured basic-auth account with the
// member's calendar path.
type MemberGrantTier struct {
	vault  *identityOAuth.Vault
	caldav CalDAVConfig
	logger *slog.Logger
}

// NewMemberGrantTier creates the first-choice tier.
func NewMemberGrantTier(vault *identityOAuth.Vault, caldav CalDAVConfig, logger *slog.Logger) *MemberGrantTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemberGrantTier{vault: vault, caldav: caldav, logger: logger}
}

func (t *MemberGrantTier) Name() string          { return "member_grant" }
func (t *MemberGrantTier) FreeBusyCapable() bool { return true }

func (t *MemberGrantTier) Open(ctx context.Context, member *schedulingDomain.TeamMember) (*calendarApp.Session, error) {
	switch member.CalendarProvider() {
	case schedulingDomain.ProviderCalDAV:
		if t.caldav.BaseURL == "" {
			return nil, ErrTierNotApplicable
		}
		return &calendarApp.Session{
			Provider:   caldavInfra.NewProvider(t.caldav.BaseURL, t.caldav.Username, t.caldav.Password, t.logger),
			CalendarID: member.CalendarID(),
		}, nil

	case schedulingDomain.ProviderGoogle:
		if t.vault == nil || !member.HasOAuthGrant() {
			return nil, identityOAuth.ErrTokenNotFound
		}
		source, err := t.vault.TokenSource(ctx, member.ID())
		if err != nil {
			if errors.Is(err, identityOAuth.ErrTokenRevoked) {
				return nil, calendarApp.ErrCredentialRevoked
			}
			return nil, err
		}
		return &calendarApp.Session{
			Provider:   googleInfra.NewClient(member.Email(), &revocationMappingSource{inner: source}, t.logger),
			CalendarID: member.CalendarID(),
		}, nil

	default:
		return nil, ErrTierNotApplicable
	}
}

// revocationMappingSource surfaces a revoked grant as the calendar-level
// sentinel so the tiered client can skip ahead and flag the member.
type revocationMappingSource struct {
	inner oauth2.TokenSource
}

func (s *revocationMappingSource) Token() (*oauth2.Token, error) {
	token, err := s.inner.Token()
	if err != nil {
		if errors.Is(err, identityOAuth.ErrTokenRevoked) {
			return nil, calendarApp.ErrCredentialRevoked
		}
		return nil, err
	}
	return token, nil
}

// ImpersonationTier uses a Google service account with domain-wide delegation
// to act as the member directly.
type ImpersonationTier struct {
	serviceAccountEmail string
	privateKey          []byte
	logger              *slog.Logger
}

// NewImpersonationTier creates the impersonation tier. A nil private key
// disables it.
func NewImpersonationTier(serviceAccountEmail string, privateKey []byte, logger *slog.Logger) *ImpersonationTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpersonationTier{
		serviceAccountEmail: serviceAccountEmail,
		privateKey:          privateKey,
		logger:              logger,
	}
}

func (t *ImpersonationTier) Name() string          { return "impersonation" }
func (t *ImpersonationTier) FreeBusyCapable() bool { return true }

func (t *ImpersonationTier) Open(ctx context.Context, member *schedulingDomain.TeamMember) (*calendarApp.Session, error) {
	if member.CalendarProvider() != schedulingDomain.ProviderGoogle {
		return nil, ErrTierNotApplicable
	}
	if len(t.privateKey) == 0 || t.serviceAccountEmail == "" {
		return nil, ErrTierNotApplicable
	}

	cfg := &jwt.Config{
		Email:      t.serviceAccountEmail,
		PrivateKey: t.privateKey,
		Scopes:     []string{calendarScope},
		TokenURL:   googleTokenURL,
		Subject:    member.Email(),
	}
	return &calendarApp.Session{
		Provider:   googleInfra.NewClient(member.Email(), cfg.TokenSource(ctx), t.logger),
		CalendarID: member.CalendarID(),
	}, nil
}

// DelegatedTier uses the service account's own identity against a member
// calendar that was explicitly shared with it.
type DelegatedTier struct {
	serviceAccountEmail string
	privateKey          []byte
	logger              *slog.Logger
}

// NewDelegatedTier creates the shared-calendar tier.
func NewDelegatedTier(serviceAccountEmail string, privateKey []byte, logger *slog.Logger) *DelegatedTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DelegatedTier{
		serviceAccountEmail: serviceAccountEmail,
		privateKey:          privateKey,
		logger:              logger,
	}
}

func (t *DelegatedTier) Name() string          { return "delegated_calendar" }
func (t *DelegatedTier) FreeBusyCapable() bool { return true }

func (t *DelegatedTier) Open(ctx context.Context, member *schedulingDomain.TeamMember) (*calendarApp.Session, error) {
	if member.CalendarProvider() != schedulingDomain.ProviderGoogle {
		return nil, ErrTierNotApplicable
	}
	if len(t.privateKey) == 0 || t.serviceAccountEmail == "" {
		return nil, ErrTierNotApplicable
	}

	cfg := &jwt.Config{
		Email:      t.serviceAccountEmail,
		PrivateKey: t.privateKey,
		Scopes:     []string{calendarScope},
		TokenURL:   googleTokenURL,
	}
	return &calendarApp.Session{
		Provider:   googleInfra.NewClient(member.Email(), cfg.TokenSource(ctx), t.logger),
		CalendarID: member.CalendarID(),
	}, nil
}

// OwnCalendarTier is the last resort: the event lands on the service
// identity's own calendar and the member and invitee are invited as attendees.
// It cannot answer free/busy for the member.
type OwnCalendarTier struct {
	serviceAccountEmail string
	privateKey          []byte
	ownCalendarID       string
	logger              *slog.Logger
}

// NewOwnCalendarTier creates the fallback tier writing to the service's own
// calendar.
func NewOwnCalendarTier(serviceAccountEmail string, privateKey []byte, ownCalendarID string, logger *slog.Logger) *OwnCalendarTier {
	if logger == nil {
		logger = slog.Default()
	}
	if ownCalendarID == "" {
		ownCalendarID = "primary"
	}
	return &OwnCalendarTier{
		serviceAccountEmail: serviceAccountEmail,
		privateKey:          privateKey,
		ownCalendarID:       ownCalendarID,
		logger:              logger,
	}
}

func (t *OwnCalendarTier) Name() string          { return "own_calendar" }
func (t *OwnCalendarTier) FreeBusyCapable() bool { return false }

func (t *OwnCalendarTier) Open(ctx context.Context, member *schedulingDomain.TeamMember) (*calendarApp.Session, error) {
	if len(t.privateKey) == 0 || t.serviceAccountEmail == "" {
		return nil, ErrTierNotApplicable
	}

	cfg := &jwt.Config{
		Email:      t.serviceAccountEmail,
		PrivateKey: t.privateKey,
		Scopes:     []string{calendarScope},
		TokenURL:   googleTokenURL,
	}
	return &calendarApp.Session{
		Provider:       googleInfra.NewClient(t.ownCalendarID, cfg.TokenSource(ctx), t.logger),
		CalendarID:     t.ownCalendarID,
		ExtraAttendees: []string{member.Email()},
	}, nil
}

// BuildTiers assembles the full fallback chain in priority order.
func BuildTiers(
	vault *identityOAuth.Vault,
	caldav CalDAVConfig,
	serviceAccountEmail string,
	privateKey []byte,
	ownCalendarID string,
	logger *slog.Logger,
) []calendarApp.Tier {
	return []calendarApp.Tier{
		NewMemberGrantTier(vault, caldav, logger),
		NewImpersonationTier(serviceAccountEmail, privateKey, logger),
		NewDelegatedTier(serviceAccountEmail, privateKey, logger),
		NewOwnCalendarTier(serviceAccountEmail, privateKey, ownCalendarID, logger),
	}
}
