package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
)

// DefaultTimeout bounds a single provider call end to end: process spawn,
// request write, response read, and process exit.
const DefaultTimeout = 120 * time.Second

// Remote is what every caldir provider — in-process or subprocess —
// implements. The sync core only ever talks to a Remote; it never knows
// whether the calendar behind it is Google, CalDAV, or a test fake.
type Remote interface {
	AuthInit(ctx context.Context) (*AuthInitResponse, error)
	AuthSubmit(ctx context.Context, fields map[string]string) (*AuthSubmitResponse, error)
	ListCalendars(ctx context.Context, remoteConfig map[string]string) ([]RemoteCalendar, error)
	ListEvents(ctx context.Context, remoteConfig map[string]string, from, to time.Time) ([]*event.Event, error)
	CreateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error)
	UpdateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error)
	DeleteEvent(ctx context.Context, remoteConfig map[string]string, eventID string) error
}

// Subprocess is a Remote backed by a caldir-provider-<name> binary
// resolved from PATH, speaking one JSON request/response line per call.
type Subprocess struct {
	Name    string
	Path    string
	Timeout time.Duration
}

// NewSubprocess resolves caldir-provider-<name> from PATH.
func NewSubprocess(name string) (*Subprocess, error) {
	binaryName := "caldir-provider-" + name
	path, err := exec.LookPath(binaryName)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, fmt.Sprintf("provider %q not found in PATH", name), err)
	}
	return &Subprocess{Name: name, Path: path, Timeout: DefaultTimeout}, nil
}

// call spawns the provider binary, writes one JSON request line, reads
// one JSON response line, and waits for exit — all under a single
// deadline, so a hung provider cannot block a sync indefinitely.
func (s *Subprocess) call(ctx context.Context, cmd Command, params any) (json.RawMessage, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "marshal provider request", err)
	}
	reqJSON, err := json.Marshal(Request{Command: cmd, Params: paramsJSON})
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "marshal provider request", err)
	}

	proc := exec.CommandContext(ctx, s.Path)
	stdin, err := proc.StdinPipe()
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "open provider stdin", err)
	}
	var stdout bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = os.Stderr // provider diagnostics surface on caldir's own stderr

	if err := proc.Start(); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, fmt.Sprintf("start provider %s", s.Name), err)
	}

	if _, err := stdin.Write(append(reqJSON, '\n')); err != nil {
		proc.Process.Kill()
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "write provider request", err)
	}
	stdin.Close()

	if err := proc.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, caldirerr.Wrap(caldirerr.KindProtocol, fmt.Sprintf("provider %s timed out after %s", s.Name, timeout), err)
		}
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, fmt.Sprintf("provider %s exited with error", s.Name), err)
	}

	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	if !scanner.Scan() {
		return nil, caldirerr.New(caldirerr.KindProtocol, fmt.Sprintf("provider %s returned no response", s.Name))
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, fmt.Sprintf("parse provider %s response", s.Name), err)
	}

	if resp.Status == statusError {
		if resp.Error == nil {
			return nil, caldirerr.New(caldirerr.KindProvider, "provider reported an error with no detail")
		}
		return nil, caldirerr.Wrap(kindForProviderError(resp.Error.Kind), resp.Error.Message, resp.Error)
	}

	return resp.Data, nil
}

func kindForProviderError(k ErrorKind) caldirerr.Kind {
	if k == ErrorAuthRequired {
		return caldirerr.KindAuthRequired
	}
	return caldirerr.KindProvider
}

// IsRetryable reports whether err represents a RateLimited or Network
// provider failure — the only two kinds the sync applier retries with
// backoff before recording a failed operation.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == ErrorRateLimited || pe.Kind == ErrorNetwork
}

func (s *Subprocess) AuthInit(ctx context.Context) (*AuthInitResponse, error) {
	data, err := s.call(ctx, CommandAuthInit, struct{}{})
	if err != nil {
		return nil, err
	}
	var out AuthInitResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse auth_init response", err)
	}
	return &out, nil
}

func (s *Subprocess) AuthSubmit(ctx context.Context, fields map[string]string) (*AuthSubmitResponse, error) {
	data, err := s.call(ctx, CommandAuthSubmit, AuthSubmitParams{Fields: fields})
	if err != nil {
		return nil, err
	}
	var out AuthSubmitResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse auth_submit response", err)
	}
	return &out, nil
}

func (s *Subprocess) ListCalendars(ctx context.Context, remoteConfig map[string]string) ([]RemoteCalendar, error) {
	data, err := s.call(ctx, CommandListCalendars, struct {
		RemoteConfig map[string]string `json:"remote_config"`
	}{remoteConfig})
	if err != nil {
		return nil, err
	}
	var out []RemoteCalendar
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse list_calendars response", err)
	}
	return out, nil
}

func (s *Subprocess) ListEvents(ctx context.Context, remoteConfig map[string]string, from, to time.Time) ([]*event.Event, error) {
	data, err := s.call(ctx, CommandListEvents, ListEventsParams{
		RemoteConfig: remoteConfig,
		From:         from.UTC().Format(time.RFC3339),
		To:           to.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	var wire []json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse list_events response", err)
	}
	events := make([]*event.Event, 0, len(wire))
	for _, w := range wire {
		e, err := UnmarshalEvent(w)
		if err != nil {
			return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse list_events event", err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *Subprocess) CreateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	return s.putEvent(ctx, CommandCreateEvent, remoteConfig, e)
}

func (s *Subprocess) UpdateEvent(ctx context.Context, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	return s.putEvent(ctx, CommandUpdateEvent, remoteConfig, e)
}

func (s *Subprocess) putEvent(ctx context.Context, cmd Command, remoteConfig map[string]string, e *event.Event) (*event.Event, error) {
	wire, err := MarshalEvent(e)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "marshal event", err)
	}
	data, err := s.call(ctx, cmd, EventParams{RemoteConfig: remoteConfig, Event: wire})
	if err != nil {
		return nil, err
	}
	result, err := UnmarshalEvent(data)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProtocol, "parse event response", err)
	}
	return result, nil
}

func (s *Subprocess) DeleteEvent(ctx context.Context, remoteConfig map[string]string, eventID string) error {
	_, err := s.call(ctx, CommandDeleteEvent, DeleteEventParams{RemoteConfig: remoteConfig, EventID: eventID})
	return err
}
