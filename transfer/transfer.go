package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
)

// Client fetches remote resources.
// Implementations must report every unsuccessful response as an [*Error] so
// callers can tell an absent resource apart from any other failure with [IsNotFound].
type Client interface {
	// Bytes performs a GET request returning the full response body.
	Bytes(ctx context.Context, url string) ([]byte, error)
	// Head performs a HEAD request, only to probe that the resource exists.
	Head(ctx context.Context, url string) error
	// Stream starts a GET request whose body is consumed through the returned [Stream].
	Stream(ctx context.Context, url string) (Stream, error)
	// Download performs a GET request writing the response body to w.
	Download(ctx context.Context, url string, w io.Writer) error
	// Post performs a body-less POST request discarding the response.
	Post(ctx context.Context, url string) error
}

// Stream is an in-flight transfer.
// Wait must be called once the consumer is done reading; its result is authoritative,
// a transfer that started fine can still fail mid-body or turn out to be a 404.
type Stream interface {
	io.Reader
	Wait() error
}

// Default returns a curl backed client when curl is available and
// falls back to the in-process http client otherwise.
func Default(useragent string) Client {
	if _, err := exec.LookPath(curlProgram); err == nil {
		return NewCurl(useragent)
	}
	return NewHTTP(useragent)
}

// Error describes an unsuccessful transfer.
type Error struct {
	URL string
	// StatusCode is the http status of the response, or 0 when no response
	// status is known (connection errors, timeouts, ...).
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("request to %s failed with http status %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err was caused by the remote resource not existing.
// This is the only transfer failure that is ever recovered from.
func IsNotFound(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound
}

// PayloadError is returned when a response expected to be json is malformed.
type PayloadError struct {
	URL string
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("Failed to parse json downloaded from '%s': %s", e.URL, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// ShapeError is returned when a well formed json document doesn't have the
// structure the caller expected.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return e.Reason
}

// FetchJSON downloads url and decodes its json body into v.
func FetchJSON(ctx context.Context, c Client, url string, v any) error {
	body, err := c.Bytes(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		var typerr *json.UnmarshalTypeError
		if errors.As(err, &typerr) {
			return &ShapeError{
				Reason: fmt.Sprintf("Expecting %s at %q, but found %s", typerr.Type, typerr.Field, typerr.Value),
			}
		}
		return &PayloadError{URL: url, Err: err}
	}

	return nil
}
