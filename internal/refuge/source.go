package refuge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
)

var refugeIDPattern = regexp.MustCompile(`refuge_i(\d+)`)

// Source fetches the refuge catalog and region listing from the booking
// site. The catalog is memoized for the configured directory TTL so
// long-running monitors do not re-scrape the page every cycle.
type Source struct {
	client     *resty.Client
	catalogURL string
	regionsURL string
	specials   []Refuge
	ttl        time.Duration

	now func() time.Time

	mu        sync.Mutex
	cached    *Directory
	fetchedAt time.Time
}

func NewSource(cfg *config.Config) *Source {
	c := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(30 * time.Second)

	specials := make([]Refuge, 0, len(cfg.SpecialRefuges))
	for _, s := range cfg.SpecialRefuges {
		specials = append(specials, Refuge{ID: s.ID, Name: s.Name})
	}

	return &Source{
		client:     c,
		catalogURL: cfg.DirectoryURL,
		regionsURL: cfg.RegionsURL,
		specials:   specials,
		ttl:        cfg.DirectoryTTLDuration(),
		now:        time.Now,
	}
}

// Directory returns the current catalog snapshot, fetching it on first use
// and again once the snapshot is older than the directory TTL. A refresh
// failure keeps serving the last good snapshot.
func (s *Source) Directory(ctx context.Context) (*Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	dir, err := s.load(ctx)
	if err != nil {
		if s.cached != nil {
			log.Warn().Err(err).Msg("directory refresh failed, using previous snapshot")
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = dir
	s.fetchedAt = s.now()
	return dir, nil
}

func (s *Source) load(ctx context.Context) (*Directory, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.catalogURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: catalog page returned %d", ErrDirectoryUnavailable, resp.StatusCode())
	}

	refuges, err := parseCatalog(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if len(refuges) == 0 {
		return nil, fmt.Errorf("%w: no refuges found in catalog page", ErrDirectoryUnavailable)
	}

	// Huts the catalog page does not list still belong in the directory so
	// names resolve and listings show them.
	refuges = append(refuges, s.specials...)

	log.Debug().Int("count", len(refuges)).Msg("refuge catalog loaded")
	return NewDirectory(refuges), nil
}

// parseCatalog pulls refuge ids and names out of the catalog HTML. Refuges
// live under <div id="tabsrefuges"> as <div class="refuge"> blocks: the id
// hides in the anchor href, the display name in the h3 inside
// <div class="bloccontenurefuge">. Blocks missing either piece are skipped.
func parseCatalog(r *strings.Reader) ([]Refuge, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog html: %w", err)
	}

	tabs := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "tabsrefuges"
	})
	if tabs == nil {
		return nil, fmt.Errorf("catalog page has no tabsrefuges section")
	}

	var refuges []Refuge
	walkNodes(tabs, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "div" || !hasClass(n, "refuge") {
			return
		}
		ref, ok := parseListing(n)
		if !ok {
			return
		}
		refuges = append(refuges, ref)
	})
	return refuges, nil
}

func parseListing(listing *html.Node) (Refuge, bool) {
	anchor := findNode(listing, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a" && attr(n, "href") != ""
	})
	if anchor == nil {
		return Refuge{}, false
	}
	m := refugeIDPattern.FindStringSubmatch(attr(anchor, "href"))
	if m == nil {
		return Refuge{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return Refuge{}, false
	}

	content := findNode(listing, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, "bloccontenurefuge")
	})
	if content == nil {
		return Refuge{}, false
	}
	heading := findNode(content, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "h3"
	})
	if heading == nil {
		return Refuge{}, false
	}
	name := strings.TrimSpace(textContent(heading))
	if name == "" {
		return Refuge{}, false
	}
	return Refuge{ID: id, Name: name}, true
}

// Region groups refuge ids under a named stretch of the trail.
type Region struct {
	Name string
	IDs  []int
}

type regionListing struct {
	ListeID []struct {
		Nom string `json:"Nom"`
		ID  string `json:"Id"`
	} `json:"ListeId"`
}

// Regions fetches the region → refuge-id listing. The endpoint speaks
// JSONP with stray padding, and region names carry &nbsp; artifacts.
func (s *Source) Regions(ctx context.Context) ([]Region, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.regionsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: regions listing returned %d", ErrDirectoryUnavailable, resp.StatusCode())
	}
	regions, err := parseRegions(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return regions, nil
}

func parseRegions(body []byte) ([]Region, error) {
	payload := strings.Trim(string(body), "()[]\r\n ;")
	var listing regionListing
	if err := json.Unmarshal([]byte(payload), &listing); err != nil {
		return nil, fmt.Errorf("parsing regions listing: %w", err)
	}

	regions := make([]Region, 0, len(listing.ListeID))
	for _, loc := range listing.ListeID {
		name := strings.ReplaceAll(loc.Nom, "&nbsp;", "'")
		name = strings.Trim(name, "- '")

		var ids []int
		for _, part := range strings.Split(loc.ID, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if name == "" || len(ids) == 0 {
			continue
		}
		regions = append(regions, Region{Name: name, IDs: ids})
	}
	return regions, nil
}

// html helpers

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findNode(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walkNodes(root *html.Node, visit func(*html.Node)) {
	visit(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
