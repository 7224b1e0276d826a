package deploy

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/docfleet/internal/docindex"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// DefaultLandingTitle heads the landing page when no title is configured.
const DefaultLandingTitle = "Documentation"

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="docfleet">
<title>{{ .Title }}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
em { color: #a33; }
</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`))

// RenderLanding converts the index listing to a standalone HTML page.
func RenderLanding(ix *docindex.Index, title string) ([]byte, error) {
	if title == "" {
		title = DefaultLandingTitle
	}
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))

	var body bytes.Buffer
	if err := md.Convert([]byte(ix.Markdown(title)), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	err := landingTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())}) //nolint:gosec // goldmark escapes raw HTML by default
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}

// WriteLanding renders and atomically writes <Root>/index.html.
func (d *Deployer) WriteLanding(ix *docindex.Index) (string, error) {
	data, err := RenderLanding(ix, d.LandingTitle)
	if err != nil {
		return "", errors.NewError(errors.CategoryInternal, "failed to render landing page").Warning().WithCause(err).Build()
	}
	path := filepath.Join(d.Root, LandingFile)
	if err := WriteAtomic(d.FS, path, data); err != nil {
		return "", errors.FileSystemError("failed to write landing page").
			WithCause(err).WithContext("path", path).Build()
	}
	return path, nil
}
