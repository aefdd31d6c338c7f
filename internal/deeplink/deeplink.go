// Package deeplink translates custom-scheme URLs handed to the app by the
// OS into typed navigation targets. Parse failures are expected input, so
// they are classified error values, never panics.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the custom protocol the app registers with the OS.
const Scheme = "spire"

// Path constants for the recognized deep link targets.
const (
	PathConnectMyComputer     = "/connect_my_computer"
	PathAuthenticateWebDevice = "/authenticate_web_device"
)

// AuthenticateWebDeviceParams are the query parameters of the device-auth
// path. ID and Token are required.
type AuthenticateWebDeviceParams struct {
	ID          string
	Token       string
	RedirectURI string
}

// DeepLink is a successfully parsed deep link. Host carries the original
// host:port form; Username is percent-decoded. Exactly one of the
// path-specific params pointers is set, matching Pathname.
type DeepLink struct {
	Host     string
	Hostname string
	Port     string
	Pathname string
	Username string

	AuthenticateWebDevice *AuthenticateWebDeviceParams
}

// MalformedURLError reports input that is not a valid URL at all, or a
// recognized path with its required parameters missing. It carries the
// underlying error.
type MalformedURLError struct {
	Err error
}

func (e *MalformedURLError) Error() string { return fmt.Sprintf("malformed URL: %v", e.Err) }
func (e *MalformedURLError) Unwrap() error { return e.Err }

// UnknownProtocolError reports a scheme other than the app's own. It carries
// the offending protocol including the trailing colon.
type UnknownProtocolError struct {
	Protocol string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol %q", e.Protocol)
}

// UnsupportedURLError reports a URL with the right scheme but an
// unrecognized path.
type UnsupportedURLError struct {
	Path string
}

func (e *UnsupportedURLError) Error() string {
	return fmt.Sprintf("unsupported URL path %q", e.Path)
}

// Parse classifies a deep link invocation. The error is one of
// *MalformedURLError, *UnknownProtocolError, or *UnsupportedURLError.
func Parse(raw string) (*DeepLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &MalformedURLError{Err: err}
	}
	if u.Scheme != Scheme {
		return nil, &UnknownProtocolError{Protocol: u.Scheme + ":"}
	}

	link := &DeepLink{
		Host:     u.Host,
		Hostname: u.Hostname(),
		Port:     u.Port(),
		Pathname: u.Path,
	}
	if u.User != nil {
		link.Username = u.User.Username()
	}

	switch u.Path {
	case PathConnectMyComputer:
		return link, nil
	case PathAuthenticateWebDevice:
		q := u.Query()
		params := &AuthenticateWebDeviceParams{
			ID:          q.Get("id"),
			Token:       q.Get("token"),
			RedirectURI: q.Get("redirect_uri"),
		}
		if params.ID == "" || params.Token == "" {
			return nil, &MalformedURLError{
				Err: fmt.Errorf("%s requires id and token query parameters", PathAuthenticateWebDevice),
			}
		}
		link.AuthenticateWebDevice = params
		return link, nil
	default:
		return nil, &UnsupportedURLError{Path: u.Path}
	}
}

// Make serializes a deep link back into its canonical URL form. It is the
// inverse of Parse: Parse(Make(l)) reproduces l, including percent-encoding
// of reserved characters in the username.
func Make(l *DeepLink) string {
	u := url.URL{
		Scheme: Scheme,
		Host:   l.Host,
		Path:   l.Pathname,
	}
	if l.Username != "" {
		u.User = url.User(l.Username)
	}
	if l.AuthenticateWebDevice != nil {
		q := url.Values{}
		q.Set("id", l.AuthenticateWebDevice.ID)
		q.Set("token", l.AuthenticateWebDevice.Token)
		if l.AuthenticateWebDevice.RedirectURI != "" {
			q.Set("redirect_uri", l.AuthenticateWebDevice.RedirectURI)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// IsDeepLinkURL reports whether the string looks like an invocation of the
// app's custom protocol, regardless of whether it parses fully.
func IsDeepLinkURL(raw string) bool {
	return strings.HasPrefix(raw, Scheme+"://")
}
