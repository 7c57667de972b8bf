// Package yopmail implements the DomainSource port against a YopMail
// domain-listing scrape proxy.
package yopmail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DomainSource = (*Client)(nil)

// Client fetches the YopMail domain listing through a scrape proxy and
// parses its HTML. The listing groups domains into a "-- New --" optgroup
// (today's promoted domain) and a "-- Others --" optgroup.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scrape-proxy client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchDomains retrieves and parses the domain listing. A response with no
// recognizable domains is an error so the caller falls back to its static
// rotation.
func (c *Client) FetchDomains(ctx context.Context) (model.DomainList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domain?d=list", nil)
	if err != nil {
		return model.DomainList{}, fmt.Errorf("%w: %v", driven.ErrDomainUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DomainList{}, fmt.Errorf("%w: %v", driven.ErrDomainUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.DomainList{}, fmt.Errorf("%w: domain listing returned %d", driven.ErrDomainUnavailable, resp.StatusCode)
	}

	list, err := ParseDomainList(resp.Body)
	if err != nil {
		return model.DomainList{}, fmt.Errorf("%w: %v", driven.ErrDomainUnavailable, err)
	}
	return list, nil
}

// ParseDomainList tokenizes the listing HTML defensively: either optgroup
// may be absent, and options outside a recognized group are ignored. The
// first "New" entry becomes the featured domain; without a "New" group the
// first "Others" entry is promoted instead.
func ParseDomainList(r io.Reader) (model.DomainList, error) {
	var (
		newGroup    []string
		otherGroup  []string
		group       string // "new", "others", or ""
		pendingText bool   // inside an <option>
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return model.DomainList{}, fmt.Errorf("parse domain listing: %w", z.Err())
			}
			return assemble(newGroup, otherGroup)

		case html.StartTagToken:
			tok := z.Token()
			switch tok.Data {
			case "optgroup":
				group = classifyGroup(tok)
			case "option":
				pendingText = group != ""
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "optgroup":
				group = ""
			case "option":
				pendingText = false
			}

		case html.TextToken:
			if !pendingText {
				continue
			}
			domain := strings.TrimPrefix(strings.TrimSpace(z.Token().Data), "@")
			if domain == "" {
				continue
			}
			switch group {
			case "new":
				newGroup = append(newGroup, domain)
			case "others":
				otherGroup = append(otherGroup, domain)
			}
		}
	}
}

// classifyGroup maps an optgroup label to its domain group.
func classifyGroup(tok html.Token) string {
	for _, attr := range tok.Attr {
		if attr.Key != "label" {
			continue
		}
		label := strings.ToLower(attr.Val)
		switch {
		case strings.Contains(label, "new"):
			return "new"
		case strings.Contains(label, "other"):
			return "others"
		}
	}
	return ""
}

// assemble builds the DomainList from the parsed groups.
func assemble(newGroup, otherGroup []string) (model.DomainList, error) {
	switch {
	case len(newGroup) > 0:
		return model.DomainList{
			Featured: newGroup[0],
			Others:   append(newGroup[1:], otherGroup...),
		}, nil
	case len(otherGroup) > 0:
		return model.DomainList{
			Featured: otherGroup[0],
			Others:   otherGroup[1:],
		}, nil
	default:
		return model.DomainList{}, fmt.Errorf("no domains found in listing")
	}
}
