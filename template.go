package quickinstall

import (
	"fmt"
	"strings"
	"text/template"
)

// Template contains the fields available to the url templates.
type Template struct {
	// Name of the crate
	Name string
	// Version is the exact crate version, without any `v` prefix
	Version string
	// Target is the platform triple (e.g. "x86_64-unknown-linux-gnu")
	Target string
	// ArchiveFormat is the extension of the archive, "tgz" or "zip";
	// only used for cargo-binstall upstream releases.
	ArchiveFormat string
}

// TemplateFor returns the template fields for target.
func TemplateFor(target Target) Template {
	return Template{
		Name:    target.Crate,
		Version: target.Version,
		Target:  target.Triple,
	}
}

// Resolve executes the provided format string as a template with the Template's fields.
// It returns the resolved string and any error that occurred during template parsing or execution.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("url").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}

// Candidates resolves every artifact url template for target, preserving their order.
func Candidates(formats []string, target Target) ([]string, error) {
	tmpl := TemplateFor(target)

	urls := make([]string, 0, len(formats))
	for _, format := range formats {
		url, err := tmpl.Resolve(format)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve artifact url %q: %w", format, err)
		}
		urls = append(urls, url)
	}

	return urls, nil
}
