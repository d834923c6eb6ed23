package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher はテスト対象の Source が依存する Fetcher インターフェースのモックです。
type MockFetcher struct {
	FetchBytesFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return m.FetchBytesFunc(ctx, url)
}

const testFeedURL = "https://www.ah.nl/allerhande/feed"

// 最小限の有効なRSS XML
const validRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Nieuwste recepten</title>
    <item>
      <title>Stamppot</title>
      <link>https://www.ah.nl/allerhande/recept/R-R1/stamppot</link>
    </item>
    <item>
      <title>Receptenoverzicht</title>
      <link>https://www.ah.nl/allerhande/recepten-overzicht</link>
    </item>
    <item>
      <title>Lasagne</title>
      <link>https://www.ah.nl/allerhande/recept/R-R2/lasagne</link>
    </item>
  </channel>
</rss>`

func TestNewSource(t *testing.T) {
	t.Run("Fetcherがnilの場合はエラー", func(t *testing.T) {
		source, err := NewSource(nil, testFeedURL, "")
		require.Error(t, err)
		assert.Nil(t, source)
	})
	t.Run("feedURLが空の場合はエラー", func(t *testing.T) {
		source, err := NewSource(&MockFetcher{}, "", "")
		require.Error(t, err)
		assert.Nil(t, source)
	})
}

func TestCandidateURLs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		mockFetchFunc func(ctx context.Context, url string) ([]byte, error)
		pathMarker    string
		expected      []string
		errorContains string
	}{
		{
			name: "成功ケース_マーカーでフィルタする",
			mockFetchFunc: func(ctx context.Context, url string) ([]byte, error) {
				if url != testFeedURL {
					t.Fatalf("予期せぬURLが呼び出されました: %s", url)
				}
				return []byte(validRSS), nil
			},
			pathMarker: "/allerhande/recept/",
			expected: []string{
				"https://www.ah.nl/allerhande/recept/R-R1/stamppot",
				"https://www.ah.nl/allerhande/recept/R-R2/lasagne",
			},
		},
		{
			name: "成功ケース_マーカーなしは全リンク",
			mockFetchFunc: func(ctx context.Context, url string) ([]byte, error) {
				return []byte(validRSS), nil
			},
			pathMarker: "",
			expected: []string{
				"https://www.ah.nl/allerhande/recept/R-R1/stamppot",
				"https://www.ah.nl/allerhande/recepten-overzicht",
				"https://www.ah.nl/allerhande/recept/R-R2/lasagne",
			},
		},
		{
			name: "エラーケース_フィード取得失敗",
			mockFetchFunc: func(ctx context.Context, url string) ([]byte, error) {
				return nil, errors.New("HTTPエラー: 500 Internal Server Error")
			},
			errorContains: "フィードの取得失敗",
		},
		{
			name: "エラーケース_パース失敗",
			mockFetchFunc: func(ctx context.Context, url string) ([]byte, error) {
				return []byte(`<invalid><tag>`), nil
			},
			errorContains: "フィードのパース失敗",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewSource(&MockFetcher{FetchBytesFunc: tt.mockFetchFunc}, testFeedURL, tt.pathMarker)
			require.NoError(t, err)

			urls, err := source.CandidateURLs(ctx)

			if tt.errorContains != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.errorContains),
					"エラーメッセージが期待するものを含んでいません。\n期待値(部分一致): %s\n実際: %s", tt.errorContains, err.Error())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, urls)
		})
	}
}

func TestLinksFromFeed(t *testing.T) {
	t.Run("エッジケース_フィードがnil", func(t *testing.T) {
		assert.Equal(t, []string{}, linksFromFeed(nil, ""))
	})
	t.Run("エッジケース_空リンクは無視される", func(t *testing.T) {
		parsed := &gofeed.Feed{
			Items: []*gofeed.Item{
				{Link: ""},
				{Link: "  "},
				{Link: "https://www.ah.nl/allerhande/recept/R-R9/soep"},
			},
		}
		assert.Equal(t, []string{"https://www.ah.nl/allerhande/recept/R-R9/soep"}, linksFromFeed(parsed, ""))
	})
}
