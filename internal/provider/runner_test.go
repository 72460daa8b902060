package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
)

// fakeRemote is an in-memory Remote used to exercise Run's dispatch
// logic without spawning a process.
type fakeRemote struct {
	events    []*event.Event
	created   *event.Event
	updated   *event.Event
	deletedID string
	listErr   error
	deleteErr error
}

func (f *fakeRemote) AuthInit(ctx context.Context) (*AuthInitResponse, error) {
	return &AuthInitResponse{AuthType: AuthCredentials, Credentials: []CredentialField{{ID: "token", Label: "Token"}}}, nil
}

func (f *fakeRemote) AuthSubmit(ctx context.Context, fields map[string]string) (*AuthSubmitResponse, error) {
	return &AuthSubmitResponse{AccountIdentifier: fields["token"]}, nil
}

func (f *fakeRemote) ListCalendars(ctx context.Context, remoteConfig map[string]string) ([]RemoteCalendar, error) {
	return []RemoteCalendar{{ID: "cal1", Name: "Primary", Primary: true}}, nil
}

func (f *fakeRemote) ListEvents(ctx context.Context, remoteConfig map[string]string, from, to time.Time) ([]*event.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeRemote) CreateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	f.created = e
	return e, nil
}

func (f *fakeRemote) UpdateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	f.updated = e
	return e, nil
}

func (f *fakeRemote) DeleteEvent(ctx context.Context, remoteConfig map[string]string, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = eventID
	return nil
}

func runOnce(t *testing.T, remote Remote, req Request) Response {
	t.Helper()
	reqJSON, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	var out bytes.Buffer
	if err := Run(context.Background(), remote, bytes.NewReader(append(reqJSON, '\n')), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (raw: %s)", err, out.String())
	}
	return resp
}

func mustParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return data
}

func TestRunAuthInit(t *testing.T) {
	resp := runOnce(t, &fakeRemote{}, Request{Command: CommandAuthInit})
	if resp.Status != statusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", resp.Status, resp.Error)
	}
	var got AuthInitResponse
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if got.AuthType != AuthCredentials {
		t.Errorf("AuthType = %q, want credentials", got.AuthType)
	}
}

func TestRunListCalendars(t *testing.T) {
	params := mustParams(t, struct {
		RemoteConfig map[string]string `json:"remote_config"`
	}{RemoteConfig: map[string]string{"account": "a@ex.com"}})
	resp := runOnce(t, &fakeRemote{}, Request{Command: CommandListCalendars, Params: params})
	if resp.Status != statusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", resp.Status, resp.Error)
	}
	var cals []RemoteCalendar
	if err := json.Unmarshal(resp.Data, &cals); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(cals) != 1 || cals[0].ID != "cal1" {
		t.Fatalf("unexpected calendars: %+v", cals)
	}
}

func TestRunListEvents(t *testing.T) {
	e := &event.Event{
		UID:     "e1@ex",
		Start:   event.NewUTC(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)),
		End:     event.NewUTC(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)),
		Summary: "Standup",
	}
	remote := &fakeRemote{events: []*event.Event{e}}
	params := mustParams(t, ListEventsParams{
		From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		To:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	})
	resp := runOnce(t, remote, Request{Command: CommandListEvents, Params: params})
	if resp.Status != statusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", resp.Status, resp.Error)
	}
	var wire []json.RawMessage
	if err := json.Unmarshal(resp.Data, &wire); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(wire) != 1 {
		t.Fatalf("expected 1 event, got %d", len(wire))
	}
	got, err := UnmarshalEvent(wire[0])
	if err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if got.UID != "e1@ex" {
		t.Errorf("UID = %q, want e1@ex", got.UID)
	}
}

func TestRunListEventsBadFromRejected(t *testing.T) {
	params := mustParams(t, ListEventsParams{From: "not-a-time", To: time.Now().Format(time.RFC3339)})
	resp := runOnce(t, &fakeRemote{}, Request{Command: CommandListEvents, Params: params})
	if resp.Status != statusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
}

func TestRunCreateEvent(t *testing.T) {
	e := &event.Event{
		UID:     "new@ex",
		Start:   event.NewUTC(time.Now().UTC()),
		End:     event.NewUTC(time.Now().UTC().Add(time.Hour)),
		Summary: "New event",
	}
	eventJSON, err := MarshalEvent(e)
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	remote := &fakeRemote{}
	params := mustParams(t, EventParams{RemoteConfig: map[string]string{"calendar_id": "primary"}, Event: eventJSON})
	resp := runOnce(t, remote, Request{Command: CommandCreateEvent, Params: params})
	if resp.Status != statusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", resp.Status, resp.Error)
	}
	if remote.created == nil || remote.created.UID != "new@ex" {
		t.Fatalf("CreateEvent was not called with the decoded event, got %+v", remote.created)
	}
}

func TestRunDeleteEvent(t *testing.T) {
	remote := &fakeRemote{}
	params := mustParams(t, DeleteEventParams{RemoteConfig: map[string]string{}, EventID: "gone@ex"})
	resp := runOnce(t, remote, Request{Command: CommandDeleteEvent, Params: params})
	if resp.Status != statusSuccess {
		t.Fatalf("status = %q, want success (error: %+v)", resp.Status, resp.Error)
	}
	if remote.deletedID != "gone@ex" {
		t.Errorf("deletedID = %q, want gone@ex", remote.deletedID)
	}
}

func TestRunDeleteEventErrorIsClassified(t *testing.T) {
	remote := &fakeRemote{deleteErr: caldirerr.New(caldirerr.KindAuthRequired, "token expired")}
	params := mustParams(t, DeleteEventParams{EventID: "gone@ex"})
	resp := runOnce(t, remote, Request{Command: CommandDeleteEvent, Params: params})
	if resp.Status != statusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
	if resp.Error == nil || resp.Error.Kind != ErrorAuthRequired {
		t.Fatalf("Error = %+v, want kind auth_required", resp.Error)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	resp := runOnce(t, &fakeRemote{}, Request{Command: Command("bogus")})
	if resp.Status != statusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
}

func TestRunProviderErrorPassesThrough(t *testing.T) {
	remote := &fakeRemote{listErr: &ProviderError{Kind: ErrorRateLimited, Message: "slow down"}}
	params := mustParams(t, ListEventsParams{From: time.Now().Format(time.RFC3339), To: time.Now().Format(time.RFC3339)})
	resp := runOnce(t, remote, Request{Command: CommandListEvents, Params: params})
	if resp.Status != statusError {
		t.Fatalf("status = %q, want error", resp.Status)
	}
	if resp.Error == nil || resp.Error.Kind != ErrorRateLimited {
		t.Fatalf("Error = %+v, want kind rate_limited", resp.Error)
	}
}

func TestRunNoInputReturnsNil(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), &fakeRemote{}, bytes.NewReader(nil), &out); err != nil {
		t.Fatalf("Run with empty input: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output for empty input, got %q", out.String())
	}
}
