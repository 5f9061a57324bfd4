// Package preview fetches destination page titles so freshly shortened links
// get a human-readable label without the caller typing one.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Scraper fetches the page title of a destination URL.
type Scraper interface {
	ScrapeTitle(ctx context.Context, url string) (string, error)
}

// RodScraper implements Scraper with a headless browser. A fresh browser is
// launched per scrape; title lookups are rare enough that keeping one warm
// is not worth the cleanup complexity.
type RodScraper struct {
	log logrus.FieldLogger
}

func NewRodScraper(logger logrus.FieldLogger) *RodScraper {
	return &RodScraper{
		log: logger.WithField("component", "preview"),
	}
}

func (s *RodScraper) ScrapeTitle(ctx context.Context, url string) (title string, err error) {
	log := s.log.WithField("url", url)

	path, exists := launcher.LookPath()
	if !exists {
		return "", errors.New("browser executable not found")
	}

	u := launcher.New().Bin(path).MustLaunch()
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing browser: %w", closeErr)
		}
	}()

	var page *rod.Page
	page, err = browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing page: %w", closeErr)
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.Warn("Title scrape timed out")
			return "", fmt.Errorf("scrape timed out for %s: %w", url, pageCtx.Err())
		}
		return "", fmt.Errorf("failed waiting for page load: %w", err)
	}

	titleElement, elemErr := page.Element("title")
	if elemErr != nil {
		log.Warn("Page has no title element")
		return "", nil
	}
	title, err = titleElement.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read title element: %w", err)
	}

	title = strings.TrimSpace(title)
	log.WithField("title", title).Debug("Title scraped")
	return title, nil
}

var _ Scraper = (*RodScraper)(nil)
