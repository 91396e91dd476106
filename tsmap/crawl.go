// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

var reSourceMapInline = regexp.MustCompile(`(?m)//[#@]\s*sourceMappingURL=data:application/json(?:;charset=[^;]+)?;base64,([A-Za-z0-9+/=]+)`)
var reSourceMapComment = regexp.MustCompile(`(?m)//[#@]\s*sourceMappingURL\s*=\s*(.+)$`)
var reScriptSrc = regexp.MustCompile(`(?i)<script[^>]+src\s*=\s*['"]([^'"]+)['"]`)

// CrawlOptions configure the crawl command.
type CrawlOptions struct {
	URL         string
	OutDir      string
	Concurrency int
	UserAgent   string
	Proxy       string
	Insecure    bool
	Out         io.Writer

	// FS overrides the output filesystem; OutDir is ignored when set.
	FS billy.Filesystem
}

type crawler struct {
	client    *http.Client
	userAgent string
	fs        billy.Filesystem
}

// RunCrawl fetches a page, finds its scripts and unpacks every source
// map it can reach into <out>/<host>/<script dir>/<script name>.
func RunCrawl(ctx context.Context, o CrawlOptions) error {
	c := newConsole(o.Out)

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if o.Proxy != "" {
		proxyURL, err := url.Parse(o.Proxy)
		if err != nil {
			c.errorf("Invalid proxy URL: %v", err)
			return err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		transport.ForceAttemptHTTP2 = false
		transport.TLSHandshakeTimeout = 30 * time.Second
		fmt.Fprintf(c.w, "%s %s\n", c.cyn.Render("Using proxy:"), proxyURL.String())
	}
	// Option to skip TLS verification (for Burp/ZAP interception)
	if o.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		fmt.Fprintf(c.w, "%s TLS verification disabled (insecure mode)\n", c.yel.Render("Warning:"))
	}

	cr := &crawler{
		client:    &http.Client{Timeout: 25 * time.Second, Transport: transport},
		userAgent: o.UserAgent,
		fs:        o.FS,
	}
	if cr.fs == nil {
		cr.fs = osfs.New(o.OutDir)
	}

	rootURL, err := url.Parse(o.URL)
	if err != nil || rootURL.Host == "" {
		c.errorf("Invalid url: %q", o.URL)
		return fmt.Errorf("invalid url %q", o.URL)
	}

	fmt.Fprintf(c.w, "Fetching: %s\n", rootURL.String())
	body, err := cr.fetch(ctx, rootURL.String())
	if err != nil {
		c.errorf("Failed to fetch root URL: %v", err)
		return err
	}

	scripts := parseScriptsHTML(string(body), rootURL)
	if len(scripts) == 0 {
		fmt.Fprintln(c.w, "No external script src found on page.")
	}

	results := make(chan string, len(scripts))
	done := make(chan int)
	go func() {
		unpacked := 0
		for r := range results {
			fmt.Fprintln(c.w, r)
			if strings.HasPrefix(r, "UNPACKED:") {
				unpacked++
			}
		}
		done <- unpacked
	}()

	g, gctx := errgroup.WithContext(ctx)
	if o.Concurrency > 0 {
		g.SetLimit(o.Concurrency)
	}
	for _, s := range scripts {
		g.Go(func() error {
			results <- cr.processScript(gctx, s, c)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	unpacked := <-done

	fmt.Fprintf(c.w, "\n%s Scripts processed: %d. Maps unpacked: %d\n", c.cyn.Render("Done."), len(scripts), unpacked)
	return nil
}

// parseScriptsHTML finds <script src=...> with x/net/html, falling back
// to a regexp when the page cannot be parsed.
func parseScriptsHTML(src string, base *url.URL) []*url.URL {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return parseScriptsRegex(src, base)
	}
	var out []*url.URL
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "script") {
			for _, a := range n.Attr {
				if strings.EqualFold(a.Key, "src") && strings.TrimSpace(a.Val) != "" {
					if u, err := url.Parse(strings.TrimSpace(a.Val)); err == nil {
						out = append(out, base.ResolveReference(u))
					}
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return dedupe(out)
}

func parseScriptsRegex(htmlSrc string, base *url.URL) []*url.URL {
	var out []*url.URL
	for _, m := range reScriptSrc.FindAllStringSubmatch(htmlSrc, -1) {
		if u, err := url.Parse(m[1]); err == nil {
			out = append(out, base.ResolveReference(u))
		}
	}
	return dedupe(out)
}

func dedupe(in []*url.URL) []*url.URL {
	seen := make(map[string]bool)
	var out []*url.URL
	for _, u := range in {
		if u == nil || seen[u.String()] {
			continue
		}
		seen[u.String()] = true
		out = append(out, u)
	}
	return out
}

// processScript returns one result line for the collector.
func (cr *crawler) processScript(ctx context.Context, scriptURL *url.URL, c *console) string {
	js, err := cr.fetch(ctx, scriptURL.String())
	if err != nil {
		return c.yel.Render(fmt.Sprintf("Failed to fetch script %s: %v", scriptURL, err))
	}
	jsText := string(js)
	root := unpackRootFor(scriptURL)

	// 1) inline base64 map
	if m := reSourceMapInline.FindStringSubmatch(jsText); len(m) > 1 {
		data, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return c.yel.Render(fmt.Sprintf("Inline map decode error for %s: %v", scriptURL, err))
		}
		return cr.unpack(root, data, "inline map for "+scriptURL.String(), c)
	}

	// 2) sourceMappingURL comment, relative to the script
	if m := reSourceMapComment.FindStringSubmatch(jsText); len(m) > 1 {
		ref := strings.Trim(strings.TrimSpace(m[1]), "\"'")
		if mapURL, err := scriptURL.Parse(ref); err == nil {
			data, err := cr.fetch(ctx, mapURL.String())
			if err != nil {
				return c.yel.Render(fmt.Sprintf("Failed to fetch map %s: %v", mapURL, err))
			}
			return cr.unpack(root, data, "map "+mapURL.String(), c)
		}
	}

	// 3) script.js.map
	tryMapURL := scriptURL.ResolveReference(&url.URL{Path: scriptURL.Path + ".map"})
	if data, err := cr.fetch(ctx, tryMapURL.String()); err == nil {
		return cr.unpack(root, data, "map "+tryMapURL.String(), c)
	}

	return c.yel.Render("No sourcemap for " + scriptURL.String())
}

func (cr *crawler) unpack(root string, data []byte, what string, c *console) string {
	res, err := NewUnpacker(cr.fs, nil).Unpack(filepath.FromSlash(root), string(data))
	if errors.Is(err, ErrRootExists) {
		return c.yel.Render(fmt.Sprintf("Already unpacked, left alone: %s (%s)", root, what))
	}
	if err != nil {
		return c.yel.Render(fmt.Sprintf("Error processing %s: %v", what, err))
	}
	return fmt.Sprintf("UNPACKED: %s -> %s (%d written, %d skipped)", what, root, res.Written, res.SkippedTotal())
}

func (cr *crawler) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if cr.userAgent != "" {
		req.Header.Set("User-Agent", cr.userAgent)
	}
	resp, err := cr.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// unpackRootFor maps https://host/static/js/app.min.js to
// host/static/js/app.min, slash separated.
func unpackRootFor(scriptURL *url.URL) string {
	name := strings.TrimSuffix(path.Base(scriptURL.Path), ".js")
	if name == "" || name == "." || name == "/" {
		name = "script"
	}
	dir := strings.Trim(path.Dir(scriptURL.Path), "/")
	var segs []string
	for _, s := range strings.Split(dir, "/") {
		if s != "" && s != "." && s != ".." {
			segs = append(segs, s)
		}
	}
	return path.Join(append(append([]string{scriptURL.Hostname()}, segs...), name)...)
}
