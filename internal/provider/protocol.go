// Package provider implements the JSON-over-stdio protocol caldir uses
// to talk to provider binaries (caldir-provider-google,
// caldir-provider-caldav, ...), plus the Remote interface those
// binaries' in-process libraries implement.
package provider

import "encoding/json"

// Command names the seven operations every provider binary must support.
type Command string

const (
	CommandAuthInit      Command = "auth_init"
	CommandAuthSubmit    Command = "auth_submit"
	CommandListCalendars Command = "list_calendars"
	CommandListEvents    Command = "list_events"
	CommandCreateEvent   Command = "create_event"
	CommandUpdateEvent   Command = "update_event"
	CommandDeleteEvent   Command = "delete_event"
)

// Request is one line of JSON written to a provider subprocess's stdin.
type Request struct {
	Command Command         `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the one line of JSON a provider subprocess writes back to
// stdout. Exactly one of Data/Error is meaningful, discriminated by
// Status.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *ProviderError  `json:"error,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ErrorKind classifies a provider-reported failure so the sync applier
// knows whether to retry, abort the calendar, or record a failed
// operation.
type ErrorKind string

const (
	// ErrorAuthRequired means the stored credentials are no longer valid;
	// the caller must re-run the auth flow before syncing this calendar.
	ErrorAuthRequired ErrorKind = "auth_required"
	// ErrorNotFound means the remote no longer has the referenced event
	// or calendar (e.g. it was deleted out of band).
	ErrorNotFound ErrorKind = "not_found"
	// ErrorRateLimited and ErrorNetwork are retried with backoff before
	// being recorded as a failed operation.
	ErrorRateLimited ErrorKind = "rate_limited"
	ErrorNetwork     ErrorKind = "network"
	// ErrorOther is anything else the provider reports.
	ErrorOther ErrorKind = "other"
)

// ProviderError is the structured error a provider returns instead of a
// bare message string.
type ProviderError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ProviderError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// AuthType names which of the four auth_init flows a provider needs.
type AuthType string

const (
	// AuthOAuthRedirect: the core opens a browser and a local TCP
	// listener, then waits for the OAuth callback itself.
	AuthOAuthRedirect AuthType = "oauth_redirect"
	// AuthHostedOAuth: same shape as OAuthRedirect, but a relay
	// service handles the authorization code exchange, so the caller
	// only needs the URL to send the user to.
	AuthHostedOAuth AuthType = "hosted_oauth"
	// AuthNeedsSetup: the provider cannot proceed until the user
	// performs an out-of-band setup step (e.g. registering an OAuth
	// application); Instructions explains what to do.
	AuthNeedsSetup AuthType = "needs_setup"
	// AuthCredentials: the caller collects the listed CredentialFields
	// and passes them back via auth_submit.
	AuthCredentials AuthType = "credentials"
)

// OAuthData is the auth_init response body for an OAuthRedirect flow.
type OAuthData struct {
	AuthorizationURL string   `json:"authorization_url"`
	State            string   `json:"state"`
	Scopes           []string `json:"scopes"`
}

// HostedOAuthData is the auth_init response body for a HostedOAuth flow.
type HostedOAuthData struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CredentialField describes one input the caller must collect from the
// user before calling auth_submit.
type CredentialField struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	FieldType string  `json:"field_type"` // "text", "password", "url"
	Required  bool    `json:"required"`
	Help      *string `json:"help,omitempty"`
}

// AuthInitResponse is the auth_init response body. Exactly one of
// OAuth, HostedOAuth, Instructions, Credentials is populated,
// discriminated by AuthType.
type AuthInitResponse struct {
	AuthType     AuthType          `json:"auth_type"`
	OAuth        *OAuthData        `json:"oauth,omitempty"`
	HostedOAuth  *HostedOAuthData  `json:"hosted_oauth,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Credentials  []CredentialField `json:"credentials,omitempty"`
}

// AuthSubmitParams carries whatever the chosen auth flow collected: the
// OAuth authorization code and state for OAuthRedirect, or the field
// values keyed by CredentialField.ID for Credentials.
type AuthSubmitParams struct {
	Fields map[string]string `json:"fields"`
}

// AuthSubmitResponse identifies the now-authenticated account.
type AuthSubmitResponse struct {
	AccountIdentifier string `json:"account_identifier"`
}

// RemoteCalendar is a calendar as reported by list_calendars.
type RemoteCalendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// ListEventsParams requests events overlapping [From, To).
type ListEventsParams struct {
	RemoteConfig map[string]string `json:"remote_config"`
	From         string            `json:"from"` // RFC 3339
	To           string            `json:"to"`
}

// EventParams wraps an event.Event payload alongside the remote config
// needed to place it (calendar id, etc.), used by create_event and
// update_event.
type EventParams struct {
	RemoteConfig map[string]string `json:"remote_config"`
	Event        json.RawMessage   `json:"event"`
}

// DeleteEventParams identifies the remote event to delete.
type DeleteEventParams struct {
	RemoteConfig map[string]string `json:"remote_config"`
	EventID      string            `json:"event_id"`
}
