package page

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// DocumentFetcher は、HTMLドキュメントを取得する機能のインターフェースを定義します。
// Extractor はこの抽象に依存します。
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Extractor は、レシピ詳細ページからタイトルと検索用タグテキストを抽出します。
type Extractor struct {
	fetcher DocumentFetcher
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(fetcher DocumentFetcher) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page.NewExtractor: DocumentFetcher cannot be nil")
	}
	return &Extractor{fetcher: fetcher}, nil
}

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	// jsonLDSelector は構造化レシピメタデータのスクリプトブロックを選択します。
	jsonLDSelector = `script[type="application/ld+json"]`

	// tagsSeparator は収集したタグ断片を1つの検索対象テキストへ結合する区切り文字です。
	tagsSeparator = " | "

	// noiseSelectors はページの可視テキストと見なさない要素です。
	noiseSelectors = "script, style, noscript"
)

// ----------------------------------------------------------------------
// メイン関数
// ----------------------------------------------------------------------

// TitleAndTags は、指定されたURLのレシピページを取得し、(タイトル, タグテキスト) を返します。
// タイトルは h1 → <title> → URL の優先順位で決定されます。
// タグテキストは JSON-LD (Recipe) の keywords / recipeCategory と、
// フォールバックとしてページの可視テキスト全体を結合したものです。
func (e *Extractor) TitleAndTags(ctx context.Context, url string) (title, tagsText string, err error) {
	doc, err := e.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return "", "", err
	}

	return e.extractTitle(doc, url), e.extractTags(doc), nil
}

// extractTitle はタイトルを抽出します。見出しもtitle要素もない場合はURL自体を返します。
func (e *Extractor) extractTitle(doc *goquery.Document, url string) string {
	title := normalizeText(doc.Find("h1").First().Text())
	if title == "" {
		title = normalizeText(doc.Find("title").First().Text())
	}
	if title == "" {
		title = url
	}
	return title
}

// extractTags は検索対象のタグテキストを組み立てます。
func (e *Extractor) extractTags(doc *goquery.Document) string {
	var bits []string

	// JSON-LD (通常は最も安定したシグナル)
	doc.Find(jsonLDSelector).Each(func(i int, s *goquery.Selection) {
		bits = append(bits, recipeTagBits([]byte(s.Text()))...)
	})

	// フォールバック: ページの可視テキスト全体 (粗いが確実なシグナル)
	bits = append(bits, visibleBodyText(doc))

	nonEmpty := make([]string, 0, len(bits))
	for _, b := range bits {
		if b != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return strings.Join(nonEmpty, tagsSeparator)
}

// visibleBodyText は、ノイズ要素を除いたボディの可視テキストを返します。
func visibleBodyText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find(noiseSelectors).Remove()
	return normalizeText(body.Text())
}

// recipeTagBits は、1つの JSON-LD ブロックから Recipe のタグ断片を収集します。
// 不正なJSONやRecipe以外のブロックは黙って無視します。
func recipeTagBits(data []byte) []string {
	blocks, err := parseMetadataBlocks(data)
	if err != nil {
		return nil
	}

	var bits []string
	for _, block := range blocks {
		if !slices.Contains(block.Type, "Recipe") {
			continue
		}
		bits = append(bits, block.Keywords...)
		bits = append(bits, block.Category...)
	}
	return bits
}

// normalizeText は空白類を畳み込み、前後の空白を除去します。
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\t", " ")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}
