package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
)

// Run drives the provider subprocess protocol against remote: read one
// JSON request line from in, dispatch it to the matching Remote method,
// write one JSON response line to out, and return. Only the first line
// of in is read, matching the "one request/response per invocation"
// contract — a caldir-provider-* binary only ever handles a single
// command per process lifetime. Empty input returns nil without writing
// a response; a malformed request line is answered with an error
// response.
func Run(ctx context.Context, remote Remote, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		return nil
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		return writeResponse(out, errorResponse(fmt.Errorf("malformed request: %w", err)))
	}

	resp := dispatch(ctx, remote, req)
	return writeResponse(out, resp)
}

func dispatch(ctx context.Context, remote Remote, req Request) Response {
	switch req.Command {
	case CommandAuthInit:
		return call(func() (any, error) { return remote.AuthInit(ctx) })
	case CommandAuthSubmit:
		var p AuthSubmitParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		return call(func() (any, error) { return remote.AuthSubmit(ctx, p.Fields) })
	case CommandListCalendars:
		var p struct {
			RemoteConfig map[string]string `json:"remote_config"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		return call(func() (any, error) { return remote.ListCalendars(ctx, p.RemoteConfig) })
	case CommandListEvents:
		var p ListEventsParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		from, err := time.Parse(time.RFC3339, p.From)
		if err != nil {
			return errorResponse(fmt.Errorf("parse from: %w", err))
		}
		to, err := time.Parse(time.RFC3339, p.To)
		if err != nil {
			return errorResponse(fmt.Errorf("parse to: %w", err))
		}
		return call(func() (any, error) {
			events, err := remote.ListEvents(ctx, p.RemoteConfig, from, to)
			if err != nil {
				return nil, err
			}
			wire := make([]json.RawMessage, 0, len(events))
			for _, e := range events {
				w, err := MarshalEvent(e)
				if err != nil {
					return nil, err
				}
				wire = append(wire, w)
			}
			return wire, nil
		})
	case CommandCreateEvent:
		return dispatchPutEvent(ctx, req, remote.CreateEvent)
	case CommandUpdateEvent:
		return dispatchPutEvent(ctx, req, remote.UpdateEvent)
	case CommandDeleteEvent:
		var p DeleteEventParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		return call(func() (any, error) {
			return nil, remote.DeleteEvent(ctx, p.RemoteConfig, p.EventID)
		})
	default:
		return errorResponse(fmt.Errorf("unknown command %q", req.Command))
	}
}

func dispatchPutEvent(ctx context.Context, req Request, put func(context.Context, map[string]string, *event.Event) (*event.Event, error)) Response {
	var p EventParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(err)
	}
	e, err := UnmarshalEvent(p.Event)
	if err != nil {
		return errorResponse(err)
	}
	return call(func() (any, error) { return put(ctx, p.RemoteConfig, e) })
}

// call runs fn and folds its result into a Response, marshaling a
// successful value into Data or classifying the error into Status
// "error" with a structured ProviderError.
func call(fn func() (any, error)) Response {
	data, err := fn()
	if err != nil {
		return errorResponse(err)
	}
	if data == nil {
		return Response{Status: statusSuccess}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: statusSuccess, Data: raw}
}

func errorResponse(err error) Response {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return Response{Status: statusError, Error: pe}
	}
	var ce *caldirerr.Error
	if errors.As(err, &ce) {
		return Response{Status: statusError, Error: &ProviderError{Kind: errorKindForCaldirKind(ce.Kind), Message: ce.Error()}}
	}
	return Response{Status: statusError, Error: &ProviderError{Kind: ErrorOther, Message: err.Error()}}
}

func errorKindForCaldirKind(k caldirerr.Kind) ErrorKind {
	if k == caldirerr.KindAuthRequired {
		return ErrorAuthRequired
	}
	return ErrorOther
}

func writeResponse(out io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}
