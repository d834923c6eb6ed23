package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-recipe-roulette/pkg/sitemap"
)

// sitemapCmd のフラグ変数
var (
	listSitemapURL string
	listMaxURLs    int
	listLimit      int
)

// 全体処理のタイムアウトはクライアントタイムアウトの2倍とする
const overallSitemapTimeoutFactor = 2

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "サイトマップから抽出される候補レシピURLを一覧表示します",
	Long: `サイトマップを取得してレシピ詳細ページのURLを抽出し、先頭から一覧表示します。
フィルタ巡回の前に候補集合を確認する用途のコマンドです。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		overallTimeout := time.Duration(Flags.TimeoutSec) * overallSitemapTimeoutFactor * time.Second
		if Flags.TimeoutSec <= 0 {
			overallTimeout = 30 * time.Second
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), overallTimeout)
		defer cancel()

		if Flags.Verbose {
			log.Printf("サイトマップを取得します (URL: %s, 全体タイムアウト: %s)", listSitemapURL, overallTimeout)
		}

		sitemapURL, err := ensureScheme(listSitemapURL)
		if err != nil {
			return fmt.Errorf("サイトマップURLの検証エラー: %w", err)
		}

		reader, err := sitemap.NewReader(GetGlobalClient())
		if err != nil {
			return fmt.Errorf("Readerの初期化エラー: %w", err)
		}

		urls, err := reader.RecipeURLs(ctx, sitemapURL, sitemap.RecipePathMarker, listMaxURLs)
		if err != nil {
			return fmt.Errorf("サイトマップ読み込みエラー: %w", err)
		}

		fmt.Printf("--- 候補レシピURL (%d 件) ---\n", len(urls))
		shown := urls
		if listLimit > 0 && len(shown) > listLimit {
			shown = shown[:listLimit]
		}
		for i, u := range shown {
			fmt.Printf("[%d] %s\n", i+1, u)
		}
		if len(shown) < len(urls) {
			fmt.Printf("... 他 %d 件\n", len(urls)-len(shown))
		}

		return nil
	},
}

func init() {
	sitemapCmd.Flags().StringVar(&listSitemapURL, "sitemap-url", sitemap.DefaultSitemapURL,
		"レシピサイトマップのURL")
	sitemapCmd.Flags().IntVar(&listMaxURLs, "max-urls", sitemap.DefaultMaxURLs,
		"サイトマップから抽出する候補URLの上限")
	sitemapCmd.Flags().IntVar(&listLimit, "limit", 20,
		"表示する件数の上限 (0で全件表示)")
}
