package cmd

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-recipe-roulette/pkg/httpclient"
)

// --- グローバル定数 ---

const (
	appName           = "recipe-roulette"
	defaultTimeoutSec = 14 // 秒
	defaultMaxRetries = 4  // デフォルトのリトライ回数
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション共通の永続フラグを保持します。
type AppFlags struct {
	TimeoutSec int  // --timeout タイムアウト
	MaxRetries int  // --max-retries リトライ回数
	Verbose    bool // --verbose 詳細ログ
}

var Flags AppFlags
var globalClient *httpclient.Client

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "サイトマップからランダムにレシピを選ぶツール",
	Long: `レシピサイトのサイトマップから候補URLを取得し、2つのキーワードフィルタに
マッチするレシピが見つかるまでランダムにページを巡回して、1件を選びます。`,
	PersistentPreRunE: initAppPreRunE,
}

// initAppPreRunE は、各サブコマンドの実行前に共有HTTPクライアントを初期化します。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(Flags.TimeoutSec) * time.Second

	if Flags.Verbose {
		log.Printf("HTTPクライアントを初期化しました (Timeout: %s, MaxRetries: %d)。", timeout, Flags.MaxRetries)
	}

	globalClient = httpclient.New(
		timeout,
		httpclient.WithMaxRetries(uint64(Flags.MaxRetries)),
	)

	return nil
}

// GetGlobalClient は、初期化された共有クライアントを返します (DIの代わり)。
func GetGlobalClient() *httpclient.Client {
	return globalClient
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。
func Execute() {
	rootCmd.AddCommand(pickCmd, sitemapCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.MaxRetries,
		"max-retries",
		defaultMaxRetries,
		"HTTPリクエストのリトライ最大回数",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&Flags.Verbose,
		"verbose",
		"v",
		false,
		"詳細ログを出力する",
	)
}
