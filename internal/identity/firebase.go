package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/version"
)

// Default Firebase Authentication REST endpoints.
const (
	DefaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL = "https://securetoken.googleapis.com/v1"
)

// FirebaseConfig configures a FirebaseProvider.
type FirebaseConfig struct {
	APIKey     string
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
	Store      CredentialStore
	Logger     *log.Logger
}

// FirebaseProvider implements Provider over the Firebase Authentication REST API.
type FirebaseProvider struct {
	Hub

	apiKey   string
	authURL  string
	tokenURL string
	http     *http.Client
	store    CredentialStore
	logger   *log.Logger
}

// NewFirebaseProvider creates a provider. Call Restore to pick up a stored session.
func NewFirebaseProvider(cfg FirebaseConfig) *FirebaseProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &FirebaseProvider{
		apiKey:   cfg.APIKey,
		authURL:  strings.TrimRight(cfg.AuthURL, "/"),
		tokenURL: strings.TrimRight(cfg.TokenURL, "/"),
		http:     cfg.HTTPClient,
		store:    cfg.Store,
		logger:   log.OrDefault(cfg.Logger).With("component", "identity"),
	}
}

// Restore publishes the stored principal, if any. No network call is made;
// the first BearerToken call refreshes an expired token.
func (p *FirebaseProvider) Restore() (*Principal, error) {
	if p.store == nil {
		return nil, nil
	}
	creds, err := p.store.Load()
	if err != nil {
		p.logger.WithError(err).Warn("discarding unreadable credentials")
		_ = p.store.Clear()
		return nil, err
	}
	if creds == nil {
		p.Publish(nil)
		return nil, nil
	}

	principal := p.principalFor(creds)
	p.Publish(principal)
	p.logger.Debug("restored session", "uid", creds.UID)
	return principal, nil
}

// SignIn implements Provider.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	return p.passwordAuth(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp implements Provider. The new account is signed in on success.
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Principal, error) {
	return p.passwordAuth(ctx, "accounts:signUp", email, password)
}

// SendPasswordReset implements Provider.
func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}
	return p.postJSON(ctx, p.authURL+"/accounts:sendOobCode", body, nil)
}

// SignOut implements Provider.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	var err error
	if p.store != nil {
		err = p.store.Clear()
	}
	p.Publish(nil)
	return err
}

type passwordAuthResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

func (p *FirebaseProvider) passwordAuth(ctx context.Context, endpoint, email, password string) (*Principal, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp passwordAuthResponse
	if err := p.postJSON(ctx, p.authURL+"/"+endpoint, body, &resp); err != nil {
		return nil, err
	}

	creds := &Credentials{
		UID:          resp.LocalID,
		Email:        resp.Email,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiryFrom(resp.ExpiresIn),
	}
	fillFromClaims(creds)
	if creds.UID == "" {
		return nil, fmt.Errorf("identity provider response has no user id")
	}

	if p.store != nil {
		if err := p.store.Save(creds); err != nil {
			p.logger.WithError(err).Warn("failed to persist credentials")
		}
	}

	principal := p.principalFor(creds)
	p.Publish(principal)
	p.logger.Info("signed in", "uid", creds.UID)
	return principal, nil
}

func (p *FirebaseProvider) principalFor(creds *Credentials) *Principal {
	src := &refreshSource{
		provider:     p,
		uid:          creds.UID,
		email:        creds.Email,
		refreshToken: creds.RefreshToken,
	}
	var current *oauth2.Token
	if creds.IDToken != "" {
		current = &oauth2.Token{
			AccessToken:  creds.IDToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.Expiry,
		}
	}
	return newPrincipal(creds.UID, creds.Email, current, src)
}

// expire signs out uid if it is still the current principal.
func (p *FirebaseProvider) expire(uid string) {
	if cur := p.Current(); cur == nil || cur.UID != uid {
		return
	}
	p.logger.Info("session expired, signing out", "uid", uid)
	if p.store != nil {
		_ = p.store.Clear()
	}
	p.Publish(nil)
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// refreshSource exchanges a refresh token for a new ID token.
type refreshSource struct {
	provider *FirebaseProvider
	uid      string
	email    string

	mu           sync.Mutex
	refreshToken string
}

// Token implements oauth2.TokenSource.
func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	rt := s.refreshToken
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.provider.http.Timeout+time.Second)
	defer cancel()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {rt},
	}
	var resp refreshResponse
	if err := s.provider.postForm(ctx, s.provider.tokenURL+"/token", form, &resp); err != nil {
		if idErr, ok := err.(*Error); ok && idErr.IsSessionExpired() {
			s.provider.expire(s.uid)
		}
		return nil, err
	}

	if resp.RefreshToken != "" {
		s.mu.Lock()
		s.refreshToken = resp.RefreshToken
		rt = resp.RefreshToken
		s.mu.Unlock()
	}

	creds := &Credentials{
		UID:          s.uid,
		Email:        s.email,
		IDToken:      resp.IDToken,
		RefreshToken: rt,
		Expiry:       expiryFrom(resp.ExpiresIn),
	}
	fillFromClaims(creds)
	if s.provider.store != nil {
		if cur := s.provider.Current(); cur != nil && cur.UID == s.uid {
			if err := s.provider.store.Save(creds); err != nil {
				s.provider.logger.WithError(err).Warn("failed to persist refreshed credentials")
			}
		}
	}
	s.provider.logger.Debug("refreshed id token", "uid", s.uid, "expiry", creds.Expiry)

	return &oauth2.Token{
		AccessToken:  creds.IDToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	}, nil
}

func expiryFrom(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}

// fillFromClaims prefers the token's own claims for uid, email and expiry.
func fillFromClaims(c *Credentials) {
	claims, err := ParseClaims(c.IDToken)
	if err != nil {
		return
	}
	if uid := claims.UID(); uid != "" && c.UID == "" {
		c.UID = uid
	}
	if claims.Email != "" && c.Email == "" {
		c.Email = claims.Email
	}
	if exp := claims.Expiry(); !exp.IsZero() {
		c.Expiry = exp
	}
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) postJSON(ctx context.Context, endpoint string, body, target any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return p.do(ctx, endpoint, "application/json", bytes.NewReader(data), target)
}

func (p *FirebaseProvider) postForm(ctx context.Context, endpoint string, form url.Values, target any) error {
	return p.do(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), target)
}

func (p *FirebaseProvider) do(ctx context.Context, endpoint, contentType string, body io.Reader, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(p.apiKey), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
			return newError(resp.StatusCode, env.Error.Message)
		}
		return &Error{StatusCode: resp.StatusCode}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode identity response: %w", err)
		}
	}
	return nil
}
