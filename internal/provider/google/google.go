package google

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/provider"
)

// Provider is a provider.Remote backed by the Google Calendar REST API.
// It is stateless between calls: cmd/caldir-provider-google constructs a
// fresh Provider for every subprocess invocation, so no field here may
// carry state across a call boundary.
type Provider struct{}

// New returns a Provider ready to serve one subprocess invocation.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) AuthInit(ctx context.Context) (*provider.AuthInitResponse, error) {
	cfg, err := oauthConfig()
	if err != nil {
		return nil, err
	}
	state := uuid.NewString()
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &provider.AuthInitResponse{
		AuthType: provider.AuthOAuthRedirect,
		OAuth: &provider.OAuthData{
			AuthorizationURL: url,
			State:            state,
			Scopes:           cfg.Scopes,
		},
	}, nil
}

func (p *Provider) AuthSubmit(ctx context.Context, fields map[string]string) (*provider.AuthSubmitResponse, error) {
	code := fields["code"]
	if code == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "auth_submit missing \"code\" field")
	}
	cfg, err := oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "exchange authorization code", err)
	}

	store, err := tokenStoreFromEnv()
	if err != nil {
		return nil, err
	}
	if err := store.SaveToken(token); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindIO, "save Google token", err)
	}

	client := cfg.Client(ctx, token)
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProvider, "create calendar service", err)
	}
	primary, err := svc.Calendars.Get("primary").Do()
	if err != nil {
		return nil, wrapGoogleErr("resolve authenticated account", err)
	}
	return &provider.AuthSubmitResponse{AccountIdentifier: primary.Id}, nil
}

func (p *Provider) service(ctx context.Context, remoteConfig map[string]string) (*gcal.Service, error) {
	store, err := tokenStoreFromConfig(remoteConfig)
	if err != nil {
		return nil, err
	}
	client, err := httpClient(ctx, store)
	if err != nil {
		return nil, err
	}
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProvider, "create calendar service", err)
	}
	return svc, nil
}

func (p *Provider) ListCalendars(ctx context.Context, remoteConfig map[string]string) ([]provider.RemoteCalendar, error) {
	svc, err := p.service(ctx, remoteConfig)
	if err != nil {
		return nil, err
	}
	list, err := svc.CalendarList.List().Do()
	if err != nil {
		return nil, wrapGoogleErr("list calendars", err)
	}
	out := make([]provider.RemoteCalendar, 0, len(list.Items))
	for _, c := range list.Items {
		out = append(out, provider.RemoteCalendar{ID: c.Id, Name: c.Summary, Primary: c.Primary})
	}
	return out, nil
}

func (p *Provider) ListEvents(ctx context.Context, remoteConfig map[string]string, from, to time.Time) ([]*event.Event, error) {
	svc, err := p.service(ctx, remoteConfig)
	if err != nil {
		return nil, err
	}
	calendarID := remoteConfig["calendar_id"]
	if calendarID == "" {
		calendarID = "primary"
	}

	var out []*event.Event
	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			TimeMin(from.UTC().Format(time.RFC3339)).
			TimeMax(to.UTC().Format(time.RFC3339)).
			SingleEvents(true). // expand recurring series into per-occurrence events
			MaxResults(2500)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapGoogleErr("list events", err)
		}
		for _, g := range resp.Items {
			if g.Status == "cancelled" {
				continue
			}
			e, err := FromGoogleEvent(g)
			if err != nil {
				return nil, caldirerr.Wrap(caldirerr.KindProvider, "convert Google event", err)
			}
			out = append(out, e)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

func (p *Provider) CreateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	svc, err := p.service(ctx, remoteConfig)
	if err != nil {
		return nil, err
	}
	calendarID := remoteConfig["calendar_id"]
	if calendarID == "" {
		calendarID = "primary"
	}
	created, err := svc.Events.Insert(calendarID, ToGoogleEvent(e)).SendUpdates("none").Do()
	if err != nil {
		return nil, wrapGoogleErr("create event", err)
	}
	return FromGoogleEvent(created)
}

func (p *Provider) UpdateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	svc, err := p.service(ctx, remoteConfig)
	if err != nil {
		return nil, err
	}
	calendarID := remoteConfig["calendar_id"]
	if calendarID == "" {
		calendarID = "primary"
	}
	remoteID := e.Identity().String()
	updated, err := svc.Events.Update(calendarID, remoteID, ToGoogleEvent(e)).SendUpdates("none").Do()
	if err != nil {
		return nil, wrapGoogleErr("update event", err)
	}
	return FromGoogleEvent(updated)
}

func (p *Provider) DeleteEvent(ctx context.Context, remoteConfig map[string]string, eventID string) error {
	svc, err := p.service(ctx, remoteConfig)
	if err != nil {
		return err
	}
	calendarID := remoteConfig["calendar_id"]
	if calendarID == "" {
		calendarID = "primary"
	}
	if err := svc.Events.Delete(calendarID, eventID).SendUpdates("none").Do(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			// Already gone remotely: delete is idempotent, so this is success.
			return nil
		}
		return wrapGoogleErr("delete event", err)
	}
	return nil
}

// wrapGoogleErr classifies a googleapi.Error into the ProviderError kinds
// the sync applier branches on: 429 and 5xx are retried, 401/403 mean the
// stored token needs re-authorization, 404 means the remote object is
// already gone.
func wrapGoogleErr(action string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return caldirerr.Wrap(caldirerr.KindProvider, action, &provider.ProviderError{Kind: provider.ErrorNetwork, Message: err.Error()})
	}
	switch {
	case gerr.Code == 401 || gerr.Code == 403:
		return caldirerr.Wrap(caldirerr.KindAuthRequired, action, &provider.ProviderError{Kind: provider.ErrorAuthRequired, Message: gerr.Message})
	case gerr.Code == 404:
		return caldirerr.Wrap(caldirerr.KindProvider, action, &provider.ProviderError{Kind: provider.ErrorNotFound, Message: gerr.Message})
	case gerr.Code == 429 || gerr.Code >= 500:
		return caldirerr.Wrap(caldirerr.KindProvider, action, &provider.ProviderError{Kind: provider.ErrorRateLimited, Message: gerr.Message})
	default:
		return caldirerr.Wrap(caldirerr.KindProvider, action, &provider.ProviderError{Kind: provider.ErrorOther, Message: gerr.Message})
	}
}

