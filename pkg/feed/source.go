package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Fetcher は、フィード文書を取得する機能のインターフェースを定義します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Source は、RSS/Atomフィードをレシピ候補URLの取得元として適合させます。
// サイトマップの代わりに「最新レシピ」フィードからサンプリングする場合に使用します。
type Source struct {
	client     Fetcher
	feedURL    string
	pathMarker string // 空文字列の場合はフィルタしない
}

// NewSource は、新しいSourceのインスタンスを生成します。
func NewSource(client Fetcher, feedURL, pathMarker string) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("feed.NewSource: Fetcher cannot be nil")
	}
	if feedURL == "" {
		return nil, fmt.Errorf("feed.NewSource: feedURL cannot be empty")
	}
	return &Source{
		client:     client,
		feedURL:    feedURL,
		pathMarker: pathMarker,
	}, nil
}

// FetchAndParse は設定されたURLからフィードを取得し、パースします。
func (s *Source) FetchAndParse(ctx context.Context) (*gofeed.Feed, error) {
	body, err := s.client.FetchBytes(ctx, s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", s.feedURL, err)
	}

	fp := gofeed.NewParser()
	parsed, parseErr := fp.Parse(bytes.NewReader(body))
	if parseErr != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (URL: %s): %w", s.feedURL, parseErr)
	}
	return parsed, nil
}

// CandidateURLs は、フィードのアイテムからレシピ詳細ページのURLを抽出します。
func (s *Source) CandidateURLs(ctx context.Context) ([]string, error) {
	parsed, err := s.FetchAndParse(ctx)
	if err != nil {
		return nil, err
	}
	return linksFromFeed(parsed, s.pathMarker), nil
}

// linksFromFeed は、フィードアイテムのリンクを収集し、pathMarker でフィルタします。
func linksFromFeed(parsed *gofeed.Feed, pathMarker string) []string {
	if parsed == nil || len(parsed.Items) == 0 {
		return []string{}
	}

	urls := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if pathMarker != "" && !strings.Contains(link, pathMarker) {
			continue
		}
		urls = append(urls, link)
	}
	return urls
}
