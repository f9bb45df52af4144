package parse

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sriram-PR/storeshot/pkg/utils"
)

// ParsePageURL parses an absolute http(s) URL such as a storefront page link
func ParsePageURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page URL '%s': %w", utils.ErrParsing, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: page URL '%s' is not absolute http(s)", utils.ErrParsing, raw)
	}
	return u, nil
}

// ResolveImageURL resolves an img/srcset/meta reference against base.
// Empty refs, data URIs and non-http(s) results are rejected.
func ResolveImageURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	var (
		u   *url.URL
		err error
	)
	if base != nil {
		u, err = base.Parse(ref)
	} else {
		u, err = url.Parse(ref)
	}
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// SrcsetURLs returns the candidate URLs of a srcset attribute in order, without descriptors
func SrcsetURLs(srcset string) []string {
	var out []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}
