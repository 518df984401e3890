package module

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Resolver turns resource names relative to the extension root into absolute
// locations, the way the extension runtime resolves packaged files.
type Resolver struct {
	base *url.URL
}

// NewResolver creates a resolver rooted at base. A bare directory path is
// treated as a file:// root.
func NewResolver(base string) (*Resolver, error) {
	if base == "" {
		base = "."
	}

	if !strings.Contains(base, "://") {
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, err
		}
		base = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &Resolver{base: u}, nil
}

// Base returns the extension root location
func (r *Resolver) Base() string {
	return r.base.String()
}

// GetURL resolves name against the extension root
func (r *Resolver) GetURL(name string) string {
	u := *r.base
	u.Path = path.Join(r.base.Path, strings.TrimPrefix(name, "/"))
	return u.String()
}

// LocalPath converts a file:// location back into a filesystem path.
// Other locations are returned unchanged.
func LocalPath(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "file" {
		return location
	}
	return filepath.FromSlash(u.Path)
}
