package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/service/tutor"
	"github.com/hrygo/rod/store"
)

// NewsLimit caps both news endpoints.
const NewsLimit = 20

type ArticleResponse struct {
	ID        int32  `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	ImageURL  string `json:"image_url"`
	Level     string `json:"level"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

type NewsResponse struct {
	Articles []ArticleResponse `json:"articles"`
}

func (s *APIV1Service) listNews(c echo.Context) ([]*store.MediaItem, error) {
	find := &store.FindMediaItem{}
	limit := NewsLimit
	find.Limit = &limit
	if raw := strings.TrimSpace(c.QueryParam("level")); raw != "" {
		level, err := tutor.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		value := string(level)
		find.Level = &value
	}
	items, err := s.Media.ListMediaItems(c.Request().Context(), find)
	if err != nil {
		return nil, apperrors.Internal("failed to list news", err)
	}
	return items, nil
}

// ListNews returns stored articles newest first, optionally filtered by level.
// GET /media/news?level=
func (s *APIV1Service) ListNews(c echo.Context) error {
	items, err := s.listNews(c)
	if err != nil {
		return respondError(c, err)
	}
	resp := NewsResponse{Articles: make([]ArticleResponse, 0, len(items))}
	for _, item := range items {
		resp.Articles = append(resp.Articles, ArticleResponse{
			ID:        item.ID,
			Title:     item.Title,
			Summary:   item.Summary,
			Link:      item.Link,
			ImageURL:  item.ImageURL,
			Level:     item.Level,
			Source:    item.Source,
			CreatedAt: formatTs(item.CreatedTs),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// NewsFeed re-publishes the stored articles as RSS, level in the title.
// GET /media/feed.rss?level=
func (s *APIV1Service) NewsFeed(c echo.Context) error {
	items, err := s.listNews(c)
	if err != nil {
		return respondError(c, err)
	}

	feed := &feeds.Feed{
		Title:       "RoD nyheter",
		Link:        &feeds.Link{Href: s.baseURL(c) + "/media/news"},
		Description: "Nyheter merket med CEFR-nivå for norskøving",
		Created:     time.Now(),
	}
	feed.Items = make([]*feeds.Item, 0, len(items))
	for _, item := range items {
		entry := &feeds.Item{
			Id:          item.Link,
			Title:       "[" + item.Level + "] " + item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: item.Summary,
			Created:     time.Unix(item.CreatedTs, 0),
		}
		if item.ImageURL != "" {
			entry.Enclosure = &feeds.Enclosure{Url: item.ImageURL, Type: "image/jpeg", Length: "0"}
		}
		feed.Items = append(feed.Items, entry)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return respondError(c, apperrors.Internal("failed to render feed", err))
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
