package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const newsTimeout = 5 * time.Second

type Headline struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishedAt"`
}

// Headlines reads the latest n items of the symbol's finance RSS feed.
func (s *Scraper) Headlines(ctx context.Context, symbol string, n int) ([]Headline, error) {

	if s.newsURL == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, newsTimeout)
	defer cancel()

	u := s.newsURL + "?" + url.Values{"s": {symbol}, "region": {"US"}, "lang": {"en-US"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error making request\n%w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request\n%w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error creating document\n%w", err)
	}

	var rtn []Headline
	doc.Find("item").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(rtn) >= n {
			return false
		}
		h := Headline{
			Title:   strings.TrimSpace(item.Find("title").Text()),
			Summary: strings.TrimSpace(item.Find("description").Text()),
		}
		if h.Title == "" {
			return true
		}
		if t, err := time.Parse(time.RFC1123Z, strings.TrimSpace(item.Find("pubdate").Text())); err == nil {
			h.PublishedAt = t.UTC().Format("2006-01-02")
		}
		rtn = append(rtn, h)
		return true
	})

	s.lg.Info().Msgf("Retrieved %d headlines for %s", len(rtn), symbol)
	return rtn, nil
}
