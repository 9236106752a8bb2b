package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultNewsURL is the Google News RSS base
const DefaultNewsURL = "https://news.google.com"

const articlesPerTopic = 5

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      struct {
		Name string `xml:",chardata"`
		URL  string `xml:"url,attr"`
	} `xml:"source"`
}

// News searches Google News RSS per topic
type News struct {
	baseURL string
	fetch   fetcher
	logger  *logger.Logger
}

// NewNews creates a news adapter
func NewNews(baseURL string, client *http.Client, log *logger.Logger) *News {
	if baseURL == "" {
		baseURL = DefaultNewsURL
	}
	return &News{baseURL: strings.TrimRight(baseURL, "/"), fetch: newFetcher(client), logger: log}
}

// SearchByTopics returns up to five articles per topic. A failed topic is
// logged and omitted; the call only fails when every topic fails.
func (n *News) SearchByTopics(ctx context.Context, topics []string) (map[string][]briefing.Article, error) {
	result := make(map[string][]briefing.Article, len(topics))
	if len(topics) == 0 {
		return result, nil
	}

	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		topic := topic
		g.Go(func() error {
			articles, err := n.search(gctx, topic)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				n.logger.Warn("News topic search failed", zap.String("topic", topic), zap.Error(err))
				return nil
			}
			result[topic] = articles
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(topics) {
		return nil, fmt.Errorf("news: all topics failed: %w", lastErr)
	}
	return result, nil
}

func (n *News) search(ctx context.Context, topic string) ([]briefing.Article, error) {
	q := url.Values{}
	q.Set("q", topic+" when:1d")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	body, err := n.fetch.get(ctx, n.baseURL+"/rss/search?"+q.Encode(), "application/rss+xml, application/xml")
	if err != nil {
		return nil, err
	}
	return parseNewsFeed(body, articlesPerTopic)
}

func parseNewsFeed(body []byte, limit int) ([]briefing.Article, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]briefing.Article, 0, limit)
	for _, item := range doc.Channel.Items {
		if len(articles) == limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		source := strings.TrimSpace(item.Source.Name)
		// Google News appends " - Source" to every headline
		if source != "" {
			title = strings.TrimSuffix(title, " - "+source)
		}
		if title == "" {
			title = plainText(item.Description)
		}
		if title == "" {
			continue
		}
		published, _ := time.Parse(time.RFC1123, item.PubDate)
		if published.IsZero() {
			published, _ = time.Parse(time.RFC1123Z, item.PubDate)
		}
		articles = append(articles, briefing.Article{
			Title:     title,
			Source:    source,
			URL:       strings.TrimSpace(item.Link),
			Published: published,
		})
	}
	return articles, nil
}

// plainText strips markup from an HTML fragment
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
