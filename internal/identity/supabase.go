package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/auth"
	"go-jobportal-web/pkg/logger"
	"go-jobportal-web/pkg/metrics"

	"golang.org/x/oauth2"
)

// expirySkew treats tokens as expired slightly early so forwarded tokens
// never expire in flight.
const expirySkew = 30 * time.Second

type SupabaseConfig struct {
	URL         string
	APIKey      string
	RedirectURL string // where the provider sends the browser after consent
	HTTPClient  *http.Client
}

// SupabaseClient talks to the Supabase Auth (GoTrue) REST API.
type SupabaseClient struct {
	baseURL     string
	apiKey      string
	redirectURL string
	http        *http.Client
	verifier    *auth.Verifier
	hub         *Hub
	log         *logger.Logger
	now         func() time.Time
}

func NewSupabase(cfg SupabaseConfig, verifier *auth.Verifier, log *logger.Logger) *SupabaseClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SupabaseClient{
		baseURL:     cfg.URL,
		apiKey:      cfg.APIKey,
		redirectURL: cfg.RedirectURL,
		http:        httpClient,
		verifier:    verifier,
		hub:         NewHub(),
		log:         log,
		now:         time.Now,
	}
}

type gotrueUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]any    `json:"user_metadata"`
	Identities   []json.RawMessage `json:"identities"`
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	User         gotrueUser `json:"user"`
}

func (t tokenResponse) tokens(now time.Time) *domain.Tokens {
	exp := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	if t.ExpiresAt > 0 {
		exp = time.Unix(t.ExpiresAt, 0)
	}
	return &domain.Tokens{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, ExpiresAt: exp}
}

func metadataString(md map[string]any, keys ...string) *string {
	for _, k := range keys {
		if v, ok := md[k].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

func (u gotrueUser) identity() *domain.Identity {
	id := &domain.Identity{
		ID:          u.ID,
		DisplayName: metadataString(u.UserMetadata, "full_name", "name", "user_name"),
		AvatarURL:   metadataString(u.UserMetadata, "avatar_url", "picture"),
	}
	if u.Email != "" {
		email := u.Email
		id.Email = &email
	}
	return id
}

func identityFromClaims(c *auth.Claims) *domain.Identity {
	u := gotrueUser{ID: c.Subject, Email: c.Email, UserMetadata: c.UserMetadata}
	return u.identity()
}

func (s *SupabaseClient) Subscribe() (<-chan Event, func()) {
	return s.hub.Subscribe()
}

// publish delivers an event even if the originating request has gone away.
func (s *SupabaseClient) publish(ctx context.Context, ev Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.hub.Publish(pctx, ev); err != nil {
		s.log.Error("failed to publish auth event", "kind", ev.Kind, "error", err)
	}
}

func (s *SupabaseClient) SignUp(ctx context.Context, sid, email, password string) error {
	var out struct {
		tokenResponse
		gotrueUser
	}
	body := map[string]string{"email": email, "password": password}
	if err := s.do(ctx, "signup", http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return err
	}

	if out.AccessToken == "" {
		// With email confirmation enabled an existing address comes back as
		// a user without identities instead of an error.
		if out.gotrueUser.ID != "" && out.gotrueUser.Identities != nil && len(out.gotrueUser.Identities) == 0 {
			return domain.ErrDuplicateAccount
		}
		return domain.ErrEmailNotConfirmed
	}

	s.publish(ctx, Event{
		Kind:      EventSignedIn,
		SessionID: sid,
		Identity:  out.tokenResponse.User.identity(),
		Tokens:    out.tokenResponse.tokens(s.now()),
	})
	return nil
}

func (s *SupabaseClient) SignInWithPassword(ctx context.Context, sid, email, password string) error {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.do(ctx, "sign_in", http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out); err != nil {
		return err
	}
	s.publish(ctx, Event{Kind: EventSignedIn, SessionID: sid, Identity: out.User.identity(), Tokens: out.tokens(s.now())})
	return nil
}

func (s *SupabaseClient) AuthorizeURL(_ context.Context, kind domain.ProviderKind) (string, string, error) {
	if !kind.Valid() {
		return "", "", fmt.Errorf("unsupported identity provider %q", kind)
	}

	verifier := oauth2.GenerateVerifier()
	q := url.Values{}
	q.Set("provider", string(kind))
	q.Set("redirect_to", s.redirectURL)
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")
	return s.baseURL + "/auth/v1/authorize?" + q.Encode(), verifier, nil
}

func (s *SupabaseClient) ExchangeCode(ctx context.Context, sid, code, verifier string) error {
	if code == "" || verifier == "" {
		return errors.New("identity provider: missing authorization code or verifier")
	}
	var out tokenResponse
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	if err := s.do(ctx, "exchange_code", http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &out); err != nil {
		return err
	}
	s.publish(ctx, Event{Kind: EventSignedIn, SessionID: sid, Identity: out.User.identity(), Tokens: out.tokens(s.now())})
	return nil
}

func (s *SupabaseClient) UpdateUser(ctx context.Context, sid string, tokens *domain.Tokens, upd domain.ProfileUpdate) error {
	if tokens == nil || tokens.AccessToken == "" {
		return domain.ErrUnauthenticated
	}

	data := map[string]string{}
	if upd.DisplayName != nil {
		data["full_name"] = *upd.DisplayName
	}
	if upd.AvatarURL != nil {
		data["avatar_url"] = *upd.AvatarURL
	}

	var out gotrueUser
	if err := s.do(ctx, "update_user", http.MethodPut, "/auth/v1/user", tokens.AccessToken, map[string]any{"data": data}, &out); err != nil {
		return err
	}
	s.publish(ctx, Event{Kind: EventUserUpdated, SessionID: sid, Identity: out.identity()})
	return nil
}

// SignOut revokes the refresh token. Local credentials are dropped even when
// the provider cannot be reached.
func (s *SupabaseClient) SignOut(ctx context.Context, sid string, tokens *domain.Tokens) error {
	if tokens != nil && tokens.AccessToken != "" {
		if err := s.do(ctx, "sign_out", http.MethodPost, "/auth/v1/logout", tokens.AccessToken, nil, nil); err != nil {
			s.log.Warn("provider logout failed, signing out locally", "error", err)
		}
	}
	s.publish(ctx, Event{Kind: EventSignedOut, SessionID: sid})
	return nil
}

func (s *SupabaseClient) Restore(ctx context.Context, sid string, tokens *domain.Tokens) error {
	if tokens == nil || tokens.AccessToken == "" {
		s.publish(ctx, Event{Kind: EventInitial, SessionID: sid})
		return nil
	}

	if !tokens.Expired(s.now().Add(expirySkew)) {
		ident, err := s.currentUser(ctx, tokens.AccessToken)
		if err == nil {
			s.publish(ctx, Event{Kind: EventInitial, SessionID: sid, Identity: ident, Tokens: tokens})
			return nil
		}
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return err
		}
		s.log.Debug("stored access token rejected, refreshing", "error", err)
	}

	var out tokenResponse
	body := map[string]string{"refresh_token": tokens.RefreshToken}
	err := s.do(ctx, "refresh", http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &out)
	switch {
	case err == nil:
		s.publish(ctx, Event{Kind: EventTokenRefreshed, SessionID: sid, Identity: out.User.identity(), Tokens: out.tokens(s.now())})
		return nil
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, context.Canceled):
		return err
	default:
		s.publish(ctx, Event{Kind: EventSignedOut, SessionID: sid})
		return nil
	}
}

// currentUser resolves the identity behind an access token, locally when a
// verifier is configured.
func (s *SupabaseClient) currentUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if s.verifier != nil {
		claims, err := s.verifier.Verify(accessToken)
		if err != nil {
			return nil, err
		}
		return identityFromClaims(claims), nil
	}

	var out gotrueUser
	if err := s.do(ctx, "get_user", http.MethodGet, "/auth/v1/user", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out.identity(), nil
}

func (s *SupabaseClient) do(ctx context.Context, op, method, path, bearer string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("identity", op, err, time.Since(start)) }()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer == "" {
		bearer = s.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := s.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		return classify(resp.StatusCode, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// CallbackError converts the error parameters of the OAuth callback, if any.
func CallbackError(q url.Values) error {
	if q.Get("error") == "" && q.Get("error_code") == "" {
		return nil
	}
	return classifyCallback(q.Get("error"), q.Get("error_code"), q.Get("error_description"))
}
