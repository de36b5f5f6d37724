package hostiq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"hostiq/internal/adapters/observability"
	"hostiq/internal/domain"
)

const refreshPath = "/auth/refresh"

// refreshAccess rotates the access token after a 403. orig is returned when
// no refresh token is stored. Any refresh failure clears both tokens and the
// refresh error is returned instead of orig.
func (c *Client) refreshAccess(ctx context.Context, orig error) (string, error) {
	rt, ok, err := c.tokens.Get(ctx, domain.RefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if !ok || rt == "" {
		observability.ObserveRefresh("no_refresh_token")
		return "", orig
	}

	var pair domain.TokenPair
	if c.sf != nil {
		// the shared refresh outlives any one waiter; hc.Timeout bounds it
		ch := c.sf.DoChan("refresh", func() (any, error) {
			return c.refresh(context.WithoutCancel(ctx), rt)
		})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-ch:
			if res.Val != nil {
				pair = res.Val.(domain.TokenPair)
			}
			err = res.Err
			log.Debug().Bool("shared", res.Shared).Msg("token refresh (deduplicated)")
		}
	} else {
		pair, err = c.refresh(ctx, rt)
	}

	if err != nil {
		// the caller gave up (cancel or deadline); the refresh token was not rejected
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		observability.ObserveRefresh("failure")
		log.Warn().Err(err).Msg("token refresh failed; clearing stored tokens")
		if cerr := c.clearTokens(context.WithoutCancel(ctx)); cerr != nil {
			log.Error().Err(cerr).Msg("clear tokens after failed refresh")
		}
		return "", err
	}

	if err := c.tokens.Set(ctx, domain.AccessTokenKey, pair.AccessToken); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	if pair.RefreshToken != "" && pair.RefreshToken != rt {
		if err := c.tokens.Set(ctx, domain.RefreshTokenKey, pair.RefreshToken); err != nil {
			return "", fmt.Errorf("persist refresh token: %w", err)
		}
	}
	observability.ObserveRefresh("success")
	log.Debug().Msg("access token refreshed")
	return pair.AccessToken, nil
}

// refresh posts the refresh token with the bare HTTP client: no bearer
// header and no 403 handling of its own.
func (c *Client) refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return domain.TokenPair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+refreshPath, bytes.NewReader(body))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	start := time.Now()
	resp, err := c.hc.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	observability.ObserveExternal(serviceLabel, refreshPath, status, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return domain.TokenPair{}, ctx.Err()
		}
		return domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.TokenPair{}, newAPIError(http.MethodPost, refreshPath, resp)
	}
	var pair domain.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return domain.TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return domain.TokenPair{}, domain.ErrEmptyAccessToken
	}
	return pair, nil
}

func (c *Client) clearTokens(ctx context.Context) error {
	return errors.Join(
		c.tokens.Delete(ctx, domain.AccessTokenKey),
		c.tokens.Delete(ctx, domain.RefreshTokenKey),
	)
}
