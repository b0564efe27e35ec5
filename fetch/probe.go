package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// CommunityURL is the registry's community listing, which only renders its
// unit table for a logged-in session.
const CommunityURL = "https://is.ycut.com.tw/magent/Community.aspx"

const (
	communityTableID = "tb2DTable"
	ownerMarkerCall  = "ShowPop"

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// maxPageSize bounds the community page read by Probe.
	maxPageSize = 8 << 20
)

// ProbeReport summarizes a community page.
type ProbeReport struct {
	StatusCode int
	Title      string
	// TableFound reports whether the unit table is present. Without it the
	// session is not logged in or the page is a different one.
	TableFound bool
	// Rows counts the table's tr elements.
	Rows int
	// Markers counts owner links, anchors whose onclick calls ShowPop.
	Markers int
	// FirstMarker is the onclick of the first owner link.
	FirstMarker string
}

// Probe requests rawURL with the browser cookie header value cookie and
// reports what the page contains. The cookie is stored in the session jar
// and never logged.
func (d *Downloader) Probe(ctx context.Context, rawURL, cookie string) (ProbeReport, error) {
	if strings.TrimSpace(cookie) == "" {
		return ProbeReport{}, ErrEmptyCookie
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ProbeReport{}, fmt.Errorf("parse url: %w", err)
	}
	cookies, err := http.ParseCookie(cookie)
	if err != nil {
		return ProbeReport{}, fmt.Errorf("parse cookie: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ProbeReport{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", acceptHTML)
	if d.client.Jar != nil {
		d.client.Jar.SetCookies(u, cookies)
	} else {
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}

	d.logger.Info("probing session", "url", u.Redacted(), "cookies", len(cookies))
	resp, err := d.client.Do(req)
	if err != nil {
		return ProbeReport{}, &Error{URL: u.Redacted(), Err: withContextErr(ctx, err)}
	}
	defer resp.Body.Close()

	report, err := ParseCommunityPage(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return ProbeReport{StatusCode: resp.StatusCode}, err
	}
	report.StatusCode = resp.StatusCode
	return report, nil
}

// ParseCommunityPage extracts the title and unit table summary from a
// community page. The page is read as UTF-8.
func ParseCommunityPage(r io.Reader) (ProbeReport, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return ProbeReport{}, fmt.Errorf("parse html: %w", err)
	}

	var report ProbeReport
	var table *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "title" && report.Title == "":
				report.Title = strings.TrimSpace(textOf(n))
			case table == nil && attrOf(n, "id") == communityTableID:
				table = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if table == nil {
		return report, nil
	}
	report.TableFound = true

	var count func(n *html.Node)
	count = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr":
				report.Rows++
			case "a":
				if onclick := attrOf(n, "onclick"); strings.Contains(onclick, ownerMarkerCall) {
					report.Markers++
					if report.FirstMarker == "" {
						report.FirstMarker = onclick
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			count(c)
		}
	}
	count(table)
	return report, nil
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
