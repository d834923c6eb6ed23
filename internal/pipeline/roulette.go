package pipeline

import (
	"context"
	"fmt"

	"github.com/shouni/go-recipe-roulette/pkg/feed"
	"github.com/shouni/go-recipe-roulette/pkg/httpclient"
	"github.com/shouni/go-recipe-roulette/pkg/page"
	"github.com/shouni/go-recipe-roulette/pkg/picker"
	"github.com/shouni/go-recipe-roulette/pkg/recipe"
	"github.com/shouni/go-recipe-roulette/pkg/sampler"
	"github.com/shouni/go-recipe-roulette/pkg/sitemap"
)

// Config は、1回のルーレット実行に必要なすべてのパラメータを保持します。
type Config struct {
	SitemapURL     string
	FeedURL        string // 非空の場合、サイトマップの代わりにフィードを候補源とする
	PathMarker     string
	MaxSitemapURLs int

	Sampling sampler.Config
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		SitemapURL:     sitemap.DefaultSitemapURL,
		PathMarker:     sitemap.RecipePathMarker,
		MaxSitemapURLs: sitemap.DefaultMaxURLs,
		Sampling:       sampler.DefaultConfig(),
	}
}

// sitemapSource は sitemap.Reader を sampler.CandidateSource に適合させるアダプターです。
type sitemapSource struct {
	reader     *sitemap.Reader
	sitemapURL string
	pathMarker string
	maxURLs    int
}

func (s *sitemapSource) CandidateURLs(ctx context.Context) ([]string, error) {
	return s.reader.RecipeURLs(ctx, s.sitemapURL, s.pathMarker, s.maxURLs)
}

// newCandidateSource は、設定に応じてサイトマップまたはフィードの候補源を構築します。
func newCandidateSource(client *httpclient.Client, cfg Config) (sampler.CandidateSource, error) {
	if cfg.FeedURL != "" {
		return feed.NewSource(client, cfg.FeedURL, cfg.PathMarker)
	}

	reader, err := sitemap.NewReader(client)
	if err != nil {
		return nil, err
	}
	return &sitemapSource{
		reader:     reader,
		sitemapURL: cfg.SitemapURL,
		pathMarker: cfg.PathMarker,
		maxURLs:    cfg.MaxSitemapURLs,
	}, nil
}

// Run は、候補源の構築からサンプリングまでを実行し、マッチしたレシピを返します。
func Run(ctx context.Context, client *httpclient.Client, cfg Config) ([]recipe.Recipe, error) {
	if client == nil {
		return nil, fmt.Errorf("pipeline.Run: HTTPクライアントが初期化されていません")
	}

	source, err := newCandidateSource(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("候補源の初期化エラー: %w", err)
	}

	extractor, err := page.NewExtractor(client)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	s, err := sampler.New(source, extractor)
	if err != nil {
		return nil, fmt.Errorf("Samplerの初期化エラー: %w", err)
	}

	return s.Run(ctx, cfg.Sampling)
}

// RunAndPick は、サンプリングを実行した上で、マッチ集合から一様ランダムに1件を選択します。
// マッチが1件もない場合は picker.ErrNoRecipes を返します。
func RunAndPick(ctx context.Context, client *httpclient.Client, cfg Config) (recipe.Recipe, []recipe.Recipe, error) {
	matches, err := Run(ctx, client, cfg)
	if err != nil {
		return recipe.Recipe{}, nil, err
	}

	chosen, err := picker.Pick(matches)
	if err != nil {
		return recipe.Recipe{}, matches, err
	}
	return chosen, matches, nil
}
