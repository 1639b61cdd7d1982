package helpers

import (
	"errors"
	"net/url"
	"strings"
)

// PathSegmentAfter returns the path segment following marker, e.g. the ASIN after "dp" in /Name/dp/B0ABC/ref=x
func PathSegmentAfter(link, marker string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segments {
		if s == marker && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}
	return "", errors.New("marker " + marker + " not found in " + link)
}

// QueryParam returns a query parameter of link
func QueryParam(link, name string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	v := u.Query().Get(name)
	if v == "" {
		return "", errors.New("query parameter " + name + " not found in " + link)
	}
	return v, nil
}

// LastPathSegment returns the final non-empty path segment of link without its query
func LastPathSegment(link string) (string, error) {
	base := strings.Split(link, "?")[0]
	parts := strings.Split(strings.TrimRight(base, "/"), "/")
	last := parts[len(parts)-1]
	if last == "" || strings.Contains(last, ":") {
		return "", errors.New("no path segment in " + link)
	}
	return last, nil
}
