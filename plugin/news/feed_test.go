package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>NRK</title>
  <item>
    <title>Storm på Vestlandet</title>
    <link>https://www.nrk.no/storm</link>
    <description><![CDATA[<p>Kraftig   vind <b>i natt</b>.</p><img src="https://img.nrk.no/inline.jpg"/>]]></description>
    <media:content url="https://img.nrk.no/small.jpg" width="320" medium="image"/>
    <media:content url="https://img.nrk.no/large.jpg" width="1280" medium="image"/>
  </item>
  <item>
    <title>Valg i kommunen</title>
    <link>https://www.nrk.no/valg</link>
    <description><![CDATA[<p>Nye tall.</p><img src="https://img.nrk.no/valg.jpg"/>]]></description>
  </item>
  <item>
    <title>Uten lenke</title>
    <description>Ingen lenke her.</description>
  </item>
  <item>
    <title></title>
    <link>https://www.nrk.no/anon</link>
    <description>Bare tekst.</description>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch(t *testing.T) {
	server := newFeedServer(t, sampleFeed)
	fetcher := NewFetcher(Config{URL: server.URL})

	articles, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, "Storm på Vestlandet", articles[0].Title)
	assert.Equal(t, "Kraftig vind i natt.", articles[0].Summary)
	assert.Equal(t, "https://img.nrk.no/large.jpg", articles[0].ImageURL)
	assert.Equal(t, DefaultSource, articles[0].Source)

	assert.Equal(t, "https://img.nrk.no/valg.jpg", articles[1].ImageURL)

	assert.Equal(t, "No Title", articles[2].Title)
	assert.Equal(t, PlaceholderImageURL, articles[2].ImageURL)
}

func TestFetchLimit(t *testing.T) {
	var items strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&items, "<item><title>Sak %d</title><link>https://example.com/%d</link></item>", i, i)
	}
	server := newFeedServer(t, `<rss version="2.0"><channel><title>x</title>`+items.String()+`</channel></rss>`)

	articles, err := NewFetcher(Config{URL: server.URL, Source: "Test"}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, DefaultLimit)
	assert.Equal(t, "Sak 0", articles[0].Title)
	assert.Equal(t, "Test", articles[0].Source)
}

func TestFetchErrors(t *testing.T) {
	_, err := NewFetcher(Config{}).Fetch(context.Background())
	require.Error(t, err)

	server := newFeedServer(t, "not a feed")
	_, err = NewFetcher(Config{URL: server.URL}).Fetch(context.Background())
	require.Error(t, err)
}

func TestCleanSummary(t *testing.T) {
	assert.Equal(t, "", CleanSummary("   "))
	assert.Equal(t, "Hei på deg", CleanSummary("<div>Hei\n  <i>på</i> deg</div>"))
	assert.Equal(t, "ren tekst", CleanSummary("ren tekst"))
}

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			name: "widest media content",
			item: &gofeed.Item{Extensions: ext.Extensions{"media": {"content": {
				{Attrs: map[string]string{"url": "a.jpg", "width": "100"}},
				{Attrs: map[string]string{"url": "b.jpg", "width": "900"}},
				{Attrs: map[string]string{"url": "c.jpg"}},
			}}}},
			want: "b.jpg",
		},
		{
			name: "image enclosure",
			item: &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: "e.mp3", Type: "audio/mpeg"}, {URL: "e.jpg", Type: "image/jpeg"}}},
			want: "e.jpg",
		},
		{
			name: "item image",
			item: &gofeed.Item{Image: &gofeed.Image{URL: "i.jpg"}},
			want: "i.jpg",
		},
		{
			name: "inline img",
			item: &gofeed.Item{Description: `<p>x</p><img src="inline.jpg">`},
			want: "inline.jpg",
		},
		{
			name: "placeholder",
			item: &gofeed.Item{Description: "<p>x</p>"},
			want: PlaceholderImageURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractImage(tt.item))
		})
	}
}
