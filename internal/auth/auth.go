// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/models"
)

type campaign struct {
	token   string
	domains []string
}

// Authenticator validates campaign and admin tokens.
type Authenticator struct {
	campaigns  map[string]campaign
	adminToken string
}

// New builds an Authenticator from security settings.
func New(sec *config.SecurityConfig) *Authenticator {
	a := &Authenticator{
		campaigns:  make(map[string]campaign, len(sec.Campaigns)),
		adminToken: sec.AdminToken,
	}
	for _, c := range sec.Campaigns {
		domains := make([]string, 0, len(c.AllowedDomains))
		for _, d := range c.AllowedDomains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				domains = append(domains, strings.TrimPrefix(d, "."))
			}
		}
		a.campaigns[c.ID] = campaign{token: c.Token, domains: domains}
	}
	return a
}

// AuthorizeToken checks token against the campaign without looking at the
// page origin. It is used for beacon and completion calls, which browsers
// may send without a usable Origin.
func (a *Authenticator) AuthorizeToken(campaignID, token string) error {
	_, err := a.campaign(campaignID, token)
	return err
}

// AuthorizeCampaign checks token against the campaign and the page origin
// against its allowed domains. origin may be a full URL or empty.
func (a *Authenticator) AuthorizeCampaign(campaignID, token, origin string) error {
	c, err := a.campaign(campaignID, token)
	if err != nil {
		return err
	}
	if len(c.domains) == 0 {
		return nil
	}

	host := originHost(origin)
	if host == "" {
		return fmt.Errorf("%w: origin required for campaign %s", models.ErrForbidden, campaignID)
	}
	for _, d := range c.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return fmt.Errorf("%w: origin %s not allowed for campaign %s", models.ErrForbidden, host, campaignID)
}

func (a *Authenticator) campaign(campaignID, token string) (campaign, error) {
	c, ok := a.campaigns[campaignID]
	if !ok {
		return campaign{}, fmt.Errorf("%w: %s", models.ErrCampaignNotFound, campaignID)
	}
	if !tokensEqual(token, c.token) {
		return campaign{}, fmt.Errorf("%w: invalid campaign token", models.ErrUnauthorized)
	}
	return c, nil
}

// AuthorizeAdmin checks the operator token.
func (a *Authenticator) AuthorizeAdmin(token string) error {
	if a.adminToken == "" || !tokensEqual(token, a.adminToken) {
		return fmt.Errorf("%w: invalid admin token", models.ErrUnauthorized)
	}
	return nil
}

// HasCampaign reports whether campaignID is configured.
func (a *Authenticator) HasCampaign(campaignID string) bool {
	_, ok := a.campaigns[campaignID]
	return ok
}

func tokensEqual(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func originHost(origin string) string {
	if origin == "" || origin == "null" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
