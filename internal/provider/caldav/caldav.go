package caldav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	wdcaldav "github.com/emersion/go-webdav/caldav"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/ics"
	"github.com/caldirhq/caldir/internal/provider"
)

// Provider is a provider.Remote backed by a generic CalDAV server.
// Unlike the Google backend, every call carries the credentials it needs
// in remoteConfig — there is no separate on-disk token, since HTTP Basic
// auth is presented on every request rather than exchanged once for a
// bearer token.
type Provider struct{}

// New returns a Provider ready to serve one subprocess invocation.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) AuthInit(ctx context.Context) (*provider.AuthInitResponse, error) {
	help := "Found under Account Settings on most CalDAV hosts; iCloud requires an app-specific password."
	return &provider.AuthInitResponse{
		AuthType: provider.AuthCredentials,
		Credentials: []provider.CredentialField{
			{ID: "server_url", Label: "CalDAV server URL", FieldType: "url", Required: true},
			{ID: "username", Label: "Username", FieldType: "text", Required: true},
			{ID: "password", Label: "Password", FieldType: "password", Required: true, Help: &help},
		},
	}, nil
}

func (p *Provider) AuthSubmit(ctx context.Context, fields map[string]string) (*provider.AuthSubmitResponse, error) {
	serverURL, username, password := fields["server_url"], fields["username"], fields["password"]
	if serverURL == "" || username == "" || password == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "auth_submit requires server_url, username, and password")
	}

	client := newHTTPClient(username, password)
	wc, err := webdav.NewClient(client, serverURL)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "connect to CalDAV server", err)
	}
	principal, err := wc.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "validate CalDAV credentials", err)
	}

	return &provider.AuthSubmitResponse{AccountIdentifier: username + "@" + principal}, nil
}

func (p *Provider) client(remoteConfig map[string]string) (*wdcaldav.Client, error) {
	serverURL := remoteConfig["server_url"]
	username := remoteConfig["username"]
	password := remoteConfig["password"]
	if serverURL == "" || username == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "remote config missing server_url/username")
	}
	httpClient := newHTTPClient(username, password)
	c, err := wdcaldav.NewClient(httpClient, serverURL)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProvider, "create CalDAV client", err)
	}
	return c, nil
}

func (p *Provider) ListCalendars(ctx context.Context, remoteConfig map[string]string) ([]provider.RemoteCalendar, error) {
	c, err := p.client(remoteConfig)
	if err != nil {
		return nil, err
	}
	principal, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, wrapCalDAVErr("resolve principal", err)
	}
	homeSet, err := c.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, wrapCalDAVErr("resolve calendar home set", err)
	}
	cals, err := c.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, wrapCalDAVErr("list calendars", err)
	}
	out := make([]provider.RemoteCalendar, 0, len(cals))
	for _, cal := range cals {
		out = append(out, provider.RemoteCalendar{ID: cal.Path, Name: cal.Name})
	}
	return out, nil
}

func (p *Provider) ListEvents(ctx context.Context, remoteConfig map[string]string, from, to time.Time) ([]*event.Event, error) {
	c, err := p.client(remoteConfig)
	if err != nil {
		return nil, err
	}
	calendarPath := remoteConfig["calendar_path"]
	if calendarPath == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "remote config missing calendar_path")
	}

	query := &wdcaldav.CalendarQuery{
		CompRequest: wdcaldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: wdcaldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []wdcaldav.CompFilter{
				{Name: "VEVENT", Start: from, End: to},
			},
		},
	}
	objs, err := c.QueryCalendar(ctx, calendarPath, query)
	if err != nil {
		return nil, wrapCalDAVErr("query calendar", err)
	}

	out := make([]*event.Event, 0, len(objs))
	for _, obj := range objs {
		e, err := ics.ParseCalendar(obj.Data)
		if err != nil {
			return nil, caldirerr.Wrap(caldirerr.KindProvider, fmt.Sprintf("parse calendar object %s", obj.Path), err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *Provider) CreateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	return p.putEvent(ctx, remoteConfig, e)
}

func (p *Provider) UpdateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	return p.putEvent(ctx, remoteConfig, e)
}

func (p *Provider) putEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	c, err := p.client(remoteConfig)
	if err != nil {
		return nil, err
	}
	calendarPath := remoteConfig["calendar_path"]
	if calendarPath == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "remote config missing calendar_path")
	}

	cal, err := ics.ToICalCalendar(e)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProvider, "render event", err)
	}

	path := objectPath(calendarPath, e.Identity().String())
	if _, err := c.PutCalendarObject(ctx, path, cal); err != nil {
		return nil, wrapCalDAVErr("put event", err)
	}
	// A CalDAV PUT response carries only an ETag, not the object body, so
	// unlike the Google backend there is no server-canonical event to
	// hand back — the caller's own copy is already what the server holds.
	return e, nil
}

func (p *Provider) DeleteEvent(ctx context.Context, remoteConfig map[string]string, eventID string) error {
	serverURL := remoteConfig["server_url"]
	username := remoteConfig["username"]
	password := remoteConfig["password"]
	calendarPath := remoteConfig["calendar_path"]
	if serverURL == "" || calendarPath == "" {
		return caldirerr.New(caldirerr.KindAuthRequired, "remote config missing server_url/calendar_path")
	}

	base, err := url.Parse(serverURL)
	if err != nil {
		return caldirerr.Wrap(caldirerr.KindProvider, "parse server_url", err)
	}
	target := objectPath(calendarPath, eventID)
	resolved := base.ResolveReference(&url.URL{Path: target})

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, resolved.String(), nil)
	if err != nil {
		return caldirerr.Wrap(caldirerr.KindProvider, "build delete request", err)
	}
	client := newHTTPClient(username, password)
	resp, err := client.Do(req)
	if err != nil {
		return wrapCalDAVErr("delete event", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		// Already gone remotely: delete is idempotent, so this is success.
		return nil
	}
	if resp.StatusCode >= 400 {
		return caldirerr.Wrap(caldirerr.KindProvider, "delete event", &provider.ProviderError{Kind: classifyStatus(resp.StatusCode), Message: resp.Status})
	}
	return nil
}

// objectPath builds the calendar-relative URL of the .ics resource for
// identity id, one resource per (uid, recurrence_id) pair — simpler than
// RFC 4791's convention of cohabiting recurrence overrides in their
// master's resource, and consistent with how caldir already lays out one
// file per identity in the local store.
func objectPath(calendarPath, id string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + url.PathEscape(id) + ".ics"
}

func wrapCalDAVErr(action string, err error) error {
	return caldirerr.Wrap(caldirerr.KindProvider, action, &provider.ProviderError{Kind: provider.ErrorNetwork, Message: err.Error()})
}

func classifyStatus(code int) provider.ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return provider.ErrorAuthRequired
	case code == http.StatusTooManyRequests || code >= 500:
		return provider.ErrorRateLimited
	default:
		return provider.ErrorOther
	}
}
