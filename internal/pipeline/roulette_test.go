package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-recipe-roulette/pkg/httpclient"
	"github.com/shouni/go-recipe-roulette/pkg/picker"
)

// newRecipeSite は、サイトマップとレシピページを配信するテストサーバーを構築します。
func newRecipeSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for i := 1; i <= 4; i++ {
			fmt.Fprintf(w, "<url><loc>%s/allerhande/recept/R-R%d/gerecht</loc></url>", server.URL, i)
		}
		fmt.Fprintf(w, "<url><loc>%s/allerhande/recepten-overzicht</loc></url>", server.URL)
		fmt.Fprint(w, `</urlset>`)
	})

	mux.HandleFunc("/allerhande/recept/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Gerecht</title></head><body>
<h1>Recept %s</h1>
<script type="application/ld+json">{"@type":"Recipe","keywords":"koken, makkelijk","recipeCategory":"hoofdgerecht"}</script>
<p>Een lekker recept.</p>
</body></html>`, r.URL.Path)
	})

	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Nieuw</title>
<item><title>A</title><link>%s/allerhande/recept/R-R1/gerecht</link></item>
<item><title>B</title><link>%s/allerhande/recepten-overzicht</link></item>
</channel></rss>`, server.URL, server.URL)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testConfig はテストサーバー向けの設定を構築します。
func testConfig(serverURL string) Config {
	cfg := DefaultConfig()
	cfg.SitemapURL = serverURL + "/sitemap.xml"
	cfg.Sampling.Delay = 0
	cfg.Sampling.MaxAttempts = 10
	return cfg
}

func TestRun_SitemapSource(t *testing.T) {
	server := newRecipeSite(t)
	client := httpclient.New(5 * time.Second)

	cfg := testConfig(server.URL)
	cfg.Sampling.TargetMatches = 4

	matches, err := Run(context.Background(), client, cfg)
	require.NoError(t, err)
	// 一覧ページはマーカーに一致しないため、候補はレシピ4件のみ
	assert.Len(t, matches, 4)
	for _, m := range matches {
		assert.Contains(t, m.URL, "/allerhande/recept/")
		assert.Contains(t, m.Title, "Recept")
	}
}

func TestRun_FeedSource(t *testing.T) {
	server := newRecipeSite(t)
	client := httpclient.New(5 * time.Second)

	cfg := testConfig(server.URL)
	cfg.FeedURL = server.URL + "/feed"
	cfg.Sampling.TargetMatches = 2

	matches, err := Run(context.Background(), client, cfg)
	require.NoError(t, err)
	// フィードの2アイテムのうち、マーカーに一致するのは1件のみ
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].URL, "/allerhande/recept/R-R1/")
}

func TestRunAndPick(t *testing.T) {
	server := newRecipeSite(t)
	client := httpclient.New(5 * time.Second)

	t.Run("成功ケース_選択結果はマッチ集合の要素", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.Sampling.TargetMatches = 3

		chosen, matches, err := RunAndPick(context.Background(), client, cfg)
		require.NoError(t, err)
		assert.Contains(t, matches, chosen)
	})

	t.Run("エラーケース_マッチなしはErrNoRecipes", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.Sampling.Technique = "nooitgevondenwoord"

		_, matches, err := RunAndPick(context.Background(), client, cfg)
		require.ErrorIs(t, err, picker.ErrNoRecipes)
		assert.Empty(t, matches)
	})
}

func TestRun_SitemapTransportErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := httpclient.New(5 * time.Second)
	cfg := testConfig(server.URL)

	matches, err := Run(context.Background(), client, cfg)
	require.Error(t, err)
	assert.Nil(t, matches)
	assert.True(t, httpclient.IsNonRetryableError(err))
}
