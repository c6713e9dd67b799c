// Package org holds the Salesforce org session used by build tasks and refreshes
// it through the connected app's OAuth client.
package org

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/logfields"
)

const tokenPath = "/services/oauth2/token"

// ConnectedApp identifies the OAuth client.
type ConnectedApp struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Config is an org session. It satisfies ant.Credentials.
type Config struct {
	mu           sync.RWMutex
	username     string
	accessToken  string
	instanceURL  string
	refreshToken string
	loginURL     string
	httpClient   *http.Client
}

// FromConfig builds a session from the org section of the configuration.
func FromConfig(c config.OrgConfig) *Config {
	return &Config{
		username:     c.Username,
		accessToken:  c.AccessToken,
		instanceURL:  c.InstanceURL,
		refreshToken: c.RefreshToken,
		loginURL:     strings.TrimRight(c.LoginURL, "/"),
	}
}

// AppFromConfig converts the connected_app section.
func AppFromConfig(c config.ConnectedAppConfig) ConnectedApp {
	return ConnectedApp(c)
}

// WithHTTPClient sets the client used for token requests (tests, proxies).
func (c *Config) WithHTTPClient(hc *http.Client) *Config {
	c.httpClient = hc
	return c
}

// SessionToken returns the current access token.
func (c *Config) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// ServerURL returns the current instance URL.
func (c *Config) ServerURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instanceURL
}

// String never includes tokens.
func (c *Config) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("org(username=%q, refreshable=%t)", c.username, c.refreshToken != "")
}

// RefreshOAuthToken exchanges the refresh token for a new access token and
// instance URL. Without a refresh token the stored session is used as is.
func (c *Config) RefreshOAuthToken(ctx context.Context, app ConnectedApp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshToken == "" {
		slog.Debug("No refresh token configured, using stored org session")
		return nil
	}
	if app.ClientID == "" {
		return ferrors.ConfigError("connected app client_id is required to refresh the org token").Build()
	}

	oc := &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  app.CallbackURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.loginURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	// An expired token forces the source to hit the token endpoint.
	tok, err := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryAuth, "refresh org OAuth token").
			UserAction().
			WithContext("login_url", c.loginURL).
			Build()
	}

	c.accessToken = tok.AccessToken
	if instance, ok := tok.Extra("instance_url").(string); ok && instance != "" {
		c.instanceURL = instance
	}
	if tok.RefreshToken != "" {
		c.refreshToken = tok.RefreshToken
	}
	slog.Info("Refreshed org OAuth token", logfields.URL(c.loginURL))
	return nil
}
