package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"code_tracker/internal/model"
)

// Source resolves Weibo user IDs to RSSHub routes and fetches them.
// Failures never propagate: a broken source yields no items for this cycle.
type Source struct {
	fetcher *Fetcher
	baseURL string
	log     *slog.Logger
}

// NewSource creates a Source for the RSSHub instance at baseURL.
func NewSource(f *Fetcher, baseURL string, log *slog.Logger) *Source {
	return &Source{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// URL returns the RSSHub route for a Weibo user, excluding reposts.
func (s *Source) URL(sourceID string) string {
	return fmt.Sprintf("%s/weibo/user/%s/showRetweeted=0", s.baseURL, url.PathEscape(sourceID))
}

// Items fetches the entries of one source. Errors are logged and reported as
// an empty result together with ok=false.
func (s *Source) Items(ctx context.Context, sourceID string) ([]model.RawFeedItem, bool) {
	u := s.URL(sourceID)
	feed, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		s.log.Warn("fetch source", "source_id", sourceID, "url", u, "error", err)
		return nil, false
	}
	items := ToRawItems(feed.Items)
	s.log.Debug("fetched source", "source_id", sourceID, "items", len(items))
	return items, true
}
