package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// HTTP is a [Client] that performs requests in process.
type HTTP struct {
	client    *http.Client
	useragent string
	progress  bool
}

// NewHTTP creates an in-process client identifying itself with useragent.
// Timeouts are left to the transport defaults, same as with curl.
func NewHTTP(useragent string) *HTTP {
	return &HTTP{
		client:    &http.Client{},
		useragent: useragent,
		progress:  true,
	}
}

// WithoutProgress disables the progress bar shown for streamed bodies.
func (h *HTTP) WithoutProgress() *HTTP {
	h.progress = false
	return h
}

func (h *HTTP) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}

func (h *HTTP) Head(ctx context.Context, url string) error {
	resp, err := h.do(ctx, http.MethodHead, url)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (h *HTTP) Stream(ctx context.Context, url string) (Stream, error) {
	resp, err := h.do(ctx, http.MethodGet, url)
	if err != nil {
		// the failure surfaces when the stream is joined, same as with a spawned curl
		return &httpstream{reader: eof{}, err: err, finish: func() {}}, nil
	}

	reader, finish := h.wrap(resp.Body, resp.ContentLength)
	return &httpstream{url: url, body: resp.Body, reader: reader, finish: finish}, nil
}

func (h *HTTP) Download(ctx context.Context, url string, w io.Writer) error {
	resp, err := h.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, finish := h.wrap(resp.Body, resp.ContentLength)
	defer finish()

	if _, err := io.Copy(w, data); err != nil {
		return &Error{URL: url, Err: fmt.Errorf("failed to download %s: %w", url, err)}
	}
	return nil
}

func (h *HTTP) Post(ctx context.Context, url string) error {
	resp, err := h.do(ctx, http.MethodPost, url)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// do sends the request and turns anything but a 2xx response into an [*Error].
func (h *HTTP) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("User-Agent", h.useragent)

	zerolog.Ctx(ctx).Debug().
		Str("component", "transfer").
		Str("method", method).
		Str("url", url).
		Msg("sending request")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()

		zerolog.Ctx(ctx).Debug().
			Str("component", "transfer").
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("unexpected response")

		return nil, &Error{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("received unexpected response from %s: http%d", url, resp.StatusCode),
		}
	}

	return resp, nil
}

func (h *HTTP) wrap(reader io.Reader, size int64) (io.Reader, func()) {
	if !h.progress {
		return reader, func() {}
	}
	return progress(reader, size)
}

type httpstream struct {
	url    string
	body   io.Closer
	reader io.Reader
	finish func()
	err    error
}

func (s *httpstream) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		// a body cut short is a failed transfer, not a short archive
		s.err = &Error{URL: s.url, Err: fmt.Errorf("transfer of %s interrupted: %w", s.url, err)}
	}
	return n, err
}

func (s *httpstream) Wait() error {
	s.finish()
	if s.body != nil {
		_ = s.body.Close()
	}
	return s.err
}

type eof struct{}

func (eof) Read([]byte) (int, error) { return 0, io.EOF }

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }}`,
				),
			),
		).
		SetWriter(os.Stderr).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
