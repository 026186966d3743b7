package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookie is the wire shape for the set_cookies/get_cookies tool verbs.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// GetCookies returns every cookie visible to the tab's current document.
func GetCookies(tab *Tab, session *Session) ([]Cookie, error) {
	var raw []*network.Cookie
	err := session.dispatch(tab.ctx, tab.ID, "Network.getCookies", chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, translate(KindSessionError, "get_cookies", err)
	}

	cookies := make([]Cookie, len(raw))
	for i, c := range raw {
		cookies[i] = Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
	}
	return cookies, nil
}

// SetCookie installs one cookie on the tab's browser context.
func SetCookie(tab *Tab, session *Session, c Cookie) error {
	action := network.SetCookie(c.Name, c.Value)
	if c.Domain != "" {
		action = action.WithDomain(c.Domain)
	}
	if c.Path != "" {
		action = action.WithPath(c.Path)
	}
	if c.Expires > 0 {
		expires := cdp.TimeSinceEpoch(time.Unix(0, int64(c.Expires*float64(time.Second))))
		action = action.WithExpires(&expires)
	}
	if c.HTTPOnly {
		action = action.WithHTTPOnly(true)
	}
	if c.Secure {
		action = action.WithSecure(true)
	}
	if c.SameSite != "" {
		action = action.WithSameSite(network.CookieSameSite(c.SameSite))
	}

	err := session.dispatch(tab.ctx, tab.ID, "Network.setCookie", chromedp.ActionFunc(func(ctx context.Context) error {
		return action.Do(ctx)
	}))
	if err != nil {
		return translate(KindSessionError, "set_cookies", err)
	}
	return nil
}

// ClearCookies removes every cookie from the tab's browser context.
func ClearCookies(tab *Tab, session *Session) error {
	if err := session.dispatch(tab.ctx, tab.ID, "Network.clearBrowserCookies", network.ClearBrowserCookies()); err != nil {
		return translate(KindSessionError, "clear_cookies", err)
	}
	return nil
}

// SetHeaders installs extra HTTP headers sent with every subsequent
// request on the tab.
func SetHeaders(tab *Tab, session *Session, headers map[string]string) error {
	hdrs := make(network.Headers, len(headers))
	for k, v := range headers {
		hdrs[k] = v
	}
	if err := session.dispatch(tab.ctx, tab.ID, "Network.setExtraHTTPHeaders", network.SetExtraHTTPHeaders(hdrs)); err != nil {
		return translate(KindSessionError, "set_headers", err)
	}
	return nil
}
