package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-recipe-roulette/internal/pipeline"
	"github.com/shouni/go-recipe-roulette/pkg/picker"
	"github.com/shouni/go-recipe-roulette/pkg/sampler"
	"github.com/shouni/go-recipe-roulette/pkg/sitemap"
)

// pickCmd のフラグ変数
var (
	pickTechnique  string
	pickCourse     string
	pickAttempts   int
	pickTarget     int
	pickDelay      time.Duration
	pickSeed       int64
	pickSitemapURL string
	pickFeedURL    string
	pickMaxURLs    int
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "フィルタにマッチするレシピをランダムに1件選びます",
	Long: `サイトマップ (または --feed-url 指定時はRSS/Atomフィード) から候補URLを取得し、
シャッフルした順にページを巡回して、2つのキーワードを両方含むレシピを収集します。
目標件数に達するか試行予算を使い切ると、マッチ集合から1件を一様ランダムに選びます。
Ctrl+C で中断した場合は、その時点までに見つかったマッチから選択します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 中断 (Ctrl+C) はエラーではなく「部分結果で続行」として扱う
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sitemapURL, err := ensureScheme(pickSitemapURL)
		if err != nil {
			return fmt.Errorf("サイトマップURLの検証エラー: %w", err)
		}
		feedURL := pickFeedURL
		if feedURL != "" {
			if feedURL, err = ensureScheme(feedURL); err != nil {
				return fmt.Errorf("フィードURLの検証エラー: %w", err)
			}
		}

		cfg := pipeline.DefaultConfig()
		cfg.SitemapURL = sitemapURL
		cfg.FeedURL = feedURL
		cfg.MaxSitemapURLs = pickMaxURLs
		cfg.Sampling = sampler.Config{
			Technique:     pickTechnique,
			Course:        pickCourse,
			MaxAttempts:   pickAttempts,
			TargetMatches: pickTarget,
			Delay:         pickDelay,
		}
		if cmd.Flags().Changed("seed") {
			seed := pickSeed
			cfg.Sampling.Seed = &seed
		}

		if Flags.Verbose {
			log.Printf("サンプリングを開始します (フィルタ: %q + %q, 試行予算: %d, 目標: %d)",
				pickTechnique, pickCourse, pickAttempts, pickTarget)
		}

		chosen, matches, err := pipeline.RunAndPick(ctx, GetGlobalClient(), cfg)
		if err != nil {
			if errors.Is(err, picker.ErrNoRecipes) {
				return fmt.Errorf("マッチするレシピが見つかりませんでした。--attempts を増やすか、キーワードを緩めてください")
			}
			return fmt.Errorf("レシピ選択パイプラインの実行エラー: %w", err)
		}

		// 結果の出力
		fmt.Printf("マッチしたレシピ: %d 件\n", len(matches))
		for i, r := range matches {
			fmt.Printf("[%d] %s\n    URL: %s\n", i+1, r.Title, r.URL)
		}
		fmt.Println("--- 本日のおすすめ ---")
		fmt.Printf("🎲 %s\n   %s\n", chosen.Title, chosen.URL)

		return nil
	},
}

func init() {
	pickCmd.Flags().StringVarP(&pickTechnique, "technique", "t", sampler.DefaultTechnique,
		"1つ目のフィルタキーワード (調理法)")
	pickCmd.Flags().StringVarP(&pickCourse, "course", "c", sampler.DefaultCourse,
		"2つ目のフィルタキーワード (メニューコース)")
	pickCmd.Flags().IntVar(&pickAttempts, "attempts", sampler.DefaultMaxAttempts,
		"ページ取得の試行予算")
	pickCmd.Flags().IntVar(&pickTarget, "target", sampler.DefaultTargetMatches,
		"収集するマッチ数の目標 (0以下は1として扱われます)")
	pickCmd.Flags().DurationVar(&pickDelay, "delay", sampler.DefaultDelay,
		"リクエスト間の待機時間")
	pickCmd.Flags().Int64Var(&pickSeed, "seed", 0,
		"シャッフルのシード (指定すると結果が再現可能になります)")
	pickCmd.Flags().StringVar(&pickSitemapURL, "sitemap-url", sitemap.DefaultSitemapURL,
		"レシピサイトマップのURL")
	pickCmd.Flags().StringVar(&pickFeedURL, "feed-url", "",
		"サイトマップの代わりに使用するRSS/AtomフィードのURL")
	pickCmd.Flags().IntVar(&pickMaxURLs, "max-urls", sitemap.DefaultMaxURLs,
		"サイトマップから抽出する候補URLの上限")
}
