package storage

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidObjectReference = errors.New("invalid object reference")

// ObjectKeyFromURL derives the storage object key from a stored artifact
// reference by taking its final path segment.
//
// Only references containing "://" are parsed as URLs; their last escaped
// path segment is unescaped, so "%2F" stays inside the key. Anything else
// ("certs/cert123.pdf", "cert:2024.pdf") is a raw path used as written.
// Query strings and fragments are ignored. A reference that ends in a
// separator or has no final segment is rejected.
func ObjectKeyFromURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.Wrap(ErrInvalidObjectReference, "empty reference")
	}

	absolute := strings.Contains(ref, "://")

	var p string
	if absolute {
		u, err := url.Parse(ref)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidObjectReference, "parse %q: %v", ref, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return "", errors.Wrapf(ErrInvalidObjectReference, "no host in %q", ref)
		}
		p = u.EscapedPath()
	} else {
		p = ref
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
	}

	if p == "" || strings.HasSuffix(p, "/") {
		return "", errors.Wrapf(ErrInvalidObjectReference, "no object segment in %q", ref)
	}

	key := p[strings.LastIndex(p, "/")+1:]
	if absolute {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidObjectReference, "unescape %q: %v", key, err)
		}
		key = unescaped
	}

	if key == "" || key == "." || key == ".." {
		return "", errors.Wrapf(ErrInvalidObjectReference, "no object segment in %q", ref)
	}

	return key, nil
}
