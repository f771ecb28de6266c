package transfer

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aexvir/quickinstall/command"
)

const curlProgram = "curl"

// curl --fail reports http errors as `curl: (22) The requested URL returned error: 404`
var curlStatusPattern = regexp.MustCompile(`returned error: (\d{3})`)

// Curl is a [Client] that shells out to curl.
type Curl struct {
	useragent string
}

// NewCurl creates a curl backed client identifying itself with useragent.
func NewCurl(useragent string) *Curl {
	return &Curl{useragent: useragent}
}

// CurlCommand builds the curl invocation used for every transfer.
// It's exported so dry runs print exactly what would be executed.
func CurlCommand(ctx context.Context, useragent string, args ...string) *command.Invocation {
	return curlCommand(ctx, useragent, args)
}

func curlCommand(ctx context.Context, useragent string, args []string, opts ...command.Opt) *command.Invocation {
	base := []string{
		"--user-agent", useragent,
		"--location",
		"--silent",
		"--show-error",
		"--fail",
	}
	opts = append([]command.Opt{command.WithArgs(base...), command.WithArgs(args...)}, opts...)
	return command.Must(ctx, curlProgram, opts...)
}

func (c *Curl) Bytes(ctx context.Context, url string) ([]byte, error) {
	res, err := CurlCommand(ctx, c.useragent, url).Output()
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	return res.Stdout, nil
}

func (c *Curl) Head(ctx context.Context, url string) error {
	_, err := CurlCommand(ctx, c.useragent, "--head", url).Output()
	return classify(ctx, url, err)
}

func (c *Curl) Stream(ctx context.Context, url string) (Stream, error) {
	child, err := CurlCommand(ctx, c.useragent, url).Start()
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	return &curlstream{ctx: ctx, url: url, child: child}, nil
}

func (c *Curl) Download(ctx context.Context, url string, w io.Writer) error {
	_, err := curlCommand(ctx, c.useragent, []string{url}, command.WithStdOut(w)).Output()
	return classify(ctx, url, err)
}

func (c *Curl) Post(ctx context.Context, url string) error {
	_, err := CurlCommand(ctx, c.useragent, "-X", "POST", url).Output()
	return classify(ctx, url, err)
}

type curlstream struct {
	ctx   context.Context
	url   string
	child *command.Child
}

func (s *curlstream) Read(p []byte) (int, error) {
	return s.child.Stdout.Read(p)
}

func (s *curlstream) Wait() error {
	return classify(s.ctx, s.url, s.child.Wait())
}

// classify wraps curl failures into an [*Error] carrying the http status
// curl reported, if any.
func classify(ctx context.Context, url string, err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var failed *command.FailedError
	if errors.As(err, &failed) {
		if match := curlStatusPattern.FindStringSubmatch(failed.Stderr); match != nil {
			status, _ = strconv.Atoi(match[1])
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "transfer").
		Str("url", url).
		Int("status", status).
		Msg("curl transfer failed")

	return &Error{URL: url, StatusCode: status, Err: err}
}
