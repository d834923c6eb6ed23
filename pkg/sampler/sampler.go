package sampler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/shouni/go-recipe-roulette/pkg/recipe"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// CandidateSource は、候補URLの順序付きリストを提供する機能のインターフェースを定義します。
// サイトマップ由来でもフィード由来でも、Samplerからは区別しません。
type CandidateSource interface {
	CandidateURLs(ctx context.Context) ([]string, error)
}

// PageExtractor は、1つのレシピページから (タイトル, タグテキスト) を抽出する
// 機能のインターフェースを定義します。
type PageExtractor interface {
	TitleAndTags(ctx context.Context, url string) (title, tagsText string, err error)
}

// ----------------------------------------------------------------------
// 設定
// ----------------------------------------------------------------------

const (
	// デフォルトのフィルタキーワード
	DefaultTechnique = "koken"        // 調理法のキーワード
	DefaultCourse    = "hoofdgerecht" // メニューコースのキーワード

	DefaultMaxAttempts   = 60
	DefaultTargetMatches = 1
	DefaultDelay         = 600 * time.Millisecond
)

// Config は1回のサンプリング実行を設定するための構造体です。
// プロセス全体の定数ではなく明示的な値として渡すことで、テストや並行実行が干渉しません。
type Config struct {
	Technique string // 1つ目のフィルタキーワード (部分一致、大文字小文字を区別しない)
	Course    string // 2つ目のフィルタキーワード (同上)

	MaxAttempts int // ページ取得の試行予算。成功・失敗を問わず消費される

	// TargetMatches は収集するマッチ数の目標です。
	// 0 以下が指定された場合は 1 に切り上げられます (ゼロ指定の暗黙的な扱いに注意)。
	TargetMatches int

	Delay time.Duration // リクエスト間のスロットリング待機

	// Seed が非nilの場合、シャッフルは決定論的になり、同一のシードと
	// 同一のレスポンスに対して同一の結果が再現されます。
	Seed *int64
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		Technique:     DefaultTechnique,
		Course:        DefaultCourse,
		MaxAttempts:   DefaultMaxAttempts,
		TargetMatches: DefaultTargetMatches,
		Delay:         DefaultDelay,
	}
}

// ----------------------------------------------------------------------
// Sampler の定義
// ----------------------------------------------------------------------

// Sampler は、候補URLをランダムに巡回し、フィルタにマッチするレシピを収集します。
// 実行は厳密に逐次的で、同時に1つのネットワーク呼び出ししか行いません。
type Sampler struct {
	source    CandidateSource
	extractor PageExtractor
}

// New は、新しいSamplerのインスタンスを生成します。
func New(source CandidateSource, extractor PageExtractor) (*Sampler, error) {
	if source == nil {
		return nil, fmt.Errorf("sampler.New: CandidateSource cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("sampler.New: PageExtractor cannot be nil")
	}
	return &Sampler{source: source, extractor: extractor}, nil
}

// Run は1回のサンプリングを実行し、マッチしたレシピを発見順に返します。
//
// 候補リストの取得エラーはそのまま呼び出し元へ伝播します。個々のページ取得の失敗は
// ログに記録してスキップされますが、試行予算は消費します。コンテキストの中断は
// ループ先頭で検出され、収集済みの部分結果がエラーなしで返されます。
func (s *Sampler) Run(ctx context.Context, cfg Config) ([]recipe.Recipe, error) {
	urls, err := s.source.CandidateURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("候補URLの取得に失敗しました: %w", err)
	}
	if len(urls) == 0 {
		return []recipe.Recipe{}, nil
	}

	wantA := strings.ToLower(strings.TrimSpace(cfg.Technique))
	wantB := strings.ToLower(strings.TrimSpace(cfg.Course))

	shuffled := make([]string, len(urls))
	copy(shuffled, urls)
	shuffle(shuffled, cfg.Seed)

	target := cfg.TargetMatches
	if target < 1 {
		target = 1
	}

	seen := make(map[recipe.Key]struct{})
	var matches []recipe.Recipe

	tried := 0
	for _, url := range shuffled {
		// 中断はループ先頭でのみ検出し、収集済みの結果をそのまま返す
		if ctx.Err() != nil {
			log.Printf("中断されました。収集済みの %d 件を返します...", len(matches))
			break
		}
		if tried >= cfg.MaxAttempts {
			break
		}
		if len(matches) >= target {
			break
		}

		tried++

		title, tagsText, err := s.extractor.TitleAndTags(ctx, url)
		if err != nil {
			// 個別ページの失敗は回復可能。試行予算は既に消費済み
			log.Printf("ページの取得に失敗したためスキップします (URL: %s): %v", url, err)
			wait(ctx, cfg.Delay)
			continue
		}

		hay := strings.ToLower(tagsText)
		if strings.Contains(hay, wantA) && strings.Contains(hay, wantB) {
			r := recipe.Recipe{Title: title, URL: url}
			if _, dup := seen[r.Key()]; !dup {
				seen[r.Key()] = struct{}{}
				matches = append(matches, r)
			}
		}

		// マッチの有無にかかわらずスロットリングする
		wait(ctx, cfg.Delay)
	}

	if matches == nil {
		return []recipe.Recipe{}, nil
	}
	return matches, nil
}

// shuffle は候補リストをその場でシャッフルします。
// シードが与えられた場合は決定論的な乱数生成器を使用します。
func shuffle(urls []string, seed *int64) {
	swap := func(i, j int) {
		urls[i], urls[j] = urls[j], urls[i]
	}
	if seed != nil {
		rnd := rand.New(rand.NewSource(*seed))
		rnd.Shuffle(len(urls), swap)
		return
	}
	rand.Shuffle(len(urls), swap)
}

// wait は、コンテキストの中断を尊重しつつ delay だけ待機します。
func wait(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
