package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// DefaultSitemapURL は、AH Allerhande のレシピサイトマップのURLです。
	DefaultSitemapURL = "https://www.ah.nl/sitemaps/entities/allerhande/recipes.xml"

	// RecipePathMarker は、レシピ詳細ページのURLを識別するパスセグメントです。
	// 一覧・インデックスページはこのマーカーを含みません。
	RecipePathMarker = "/allerhande/recept/"

	// DefaultMaxURLs は、サイトマップから抽出する候補URLの上限デフォルト値です。
	DefaultMaxURLs = 8000
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、サイトマップ文書を取得する機能のインターフェースを定義します。
// Reader はこの抽象に依存します。
type Fetcher interface {
	// FetchStream はデコード済みのボディストリームを返します。クローズは呼び出し側の責務です。
	FetchStream(ctx context.Context, url string) (io.ReadCloser, error)
	// FetchBytes は文書全体をバイト配列として返します。フォールバック解析で使用します。
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Reader は、サイトマップから候補URLを抽出します。
type Reader struct {
	fetcher Fetcher
}

// NewReader は、新しいReaderのインスタンスを生成します。
func NewReader(fetcher Fetcher) (*Reader, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("sitemap.NewReader: Fetcher cannot be nil")
	}
	return &Reader{fetcher: fetcher}, nil
}

// RecipeURLs は、サイトマップから pathMarker を含む <loc> エントリを最大 maxURLs 件抽出します。
// メモリ使用量を抑えるためストリーミングで解析し、ストリーム解析が失敗した場合は
// 文書全体を取得し直して再解析します。ネットワークエラーはそのまま呼び出し元へ伝播します。
func (r *Reader) RecipeURLs(ctx context.Context, sitemapURL, pathMarker string, maxURLs int) ([]string, error) {
	stream, err := r.fetcher.FetchStream(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("サイトマップの取得に失敗しました (URL: %s): %w", sitemapURL, err)
	}
	defer stream.Close()

	urls, parseErr := scanLocations(xml.NewDecoder(stream), pathMarker, maxURLs)
	if parseErr == nil {
		return urls, nil
	}

	// フォールバック: 文書全体を取得して再解析する。
	// ストリームは部分的に消費済みで巻き戻せないため、同一クライアント経由で取得し直す。
	body, err := r.fetcher.FetchBytes(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("サイトマップの再取得に失敗しました (URL: %s): %w", sitemapURL, err)
	}

	urls, retryErr := scanLocations(xml.NewDecoder(bytes.NewReader(body)), pathMarker, maxURLs)
	if retryErr != nil {
		return nil, fmt.Errorf("サイトマップの解析に失敗しました (URL: %s): ストリーム解析エラー: %v, 全文解析エラー: %w", sitemapURL, parseErr, retryErr)
	}
	return urls, nil
}

// scanLocations は、XMLデコーダから <loc> 要素を走査し、pathMarker を含むURLを収集します。
// maxURLs 件に達した時点で走査を打ち切ります。
func scanLocations(dec *xml.Decoder, pathMarker string, maxURLs int) ([]string, error) {
	var urls []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return urls, nil
		}
		if err != nil {
			return nil, err
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "loc" {
			continue
		}

		var loc string
		if err := dec.DecodeElement(&loc, &se); err != nil {
			return nil, err
		}

		loc = strings.TrimSpace(loc)
		if loc == "" || !strings.Contains(loc, pathMarker) {
			continue
		}

		urls = append(urls, loc)
		if maxURLs > 0 && len(urls) >= maxURLs {
			return urls, nil
		}
	}
}
