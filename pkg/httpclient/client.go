package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-recipe-roulette/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 14 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ
	maxErrorBodySize   = 1024                    // エラーメッセージに含めるボディの最大長

	// サイトからのブロックを避けるための共通ヘッダー
	UserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0 Safari/537.36"
	AcceptLanguage = "nl-NL,nl;q=0.9,en;q=0.8"
	AcceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// brotli 問題を避けるため、gzip と deflate のみを受け入れる
	AcceptEncoding = "gzip, deflate"
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ----------------------------------------------------------------------
// エラー型の定義
// ----------------------------------------------------------------------

// RetryableStatusError は、リトライ対象のHTTPステータスコード (429 および 5xx 系) を示すエラー型です。
type RetryableStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *RetryableStatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("HTTPステータスコードエラー (リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, truncateBody(e.Body))
	}
	return fmt.Sprintf("HTTPステータスコードエラー (リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
}

// NonRetryableHTTPError は、リトライしても回復しないHTTPステータスコードエラーを示すエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, truncateBody(e.Body))
	}
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
}

// truncateBody はエラーメッセージ用にボディを整形し、長すぎる場合は切り詰めます。
func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodySize {
		return text[:maxErrorBodySize] + "..."
	}
	return text
}

// ----------------------------------------------------------------------
// Client の定義
// ----------------------------------------------------------------------

// Client はHTTP GETリクエストと指数バックオフを用いたリトライロジックを管理します。
// リクエストメソッドはGETのみをサポートします。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。主にテストで使用されます。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.DefaultConfig(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// addCommonHeaders は共通のHTTPヘッダーを設定します。
// Accept-Encoding を明示するため、レスポンスのデコードは decodeBody が行います。
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	req.Header.Set("Connection", "close")
}

// ----------------------------------------------------------------------
// フェッチ操作
// ----------------------------------------------------------------------

// FetchBytes はURLからコンテンツを取得し、デコード済みのバイト配列として返します。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var bodyBytes []byte

	op := func() error {
		var fetchErr error
		bodyBytes, fetchErr = c.doFetchBytes(ctx, url)
		return fetchErr
	}

	err := retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("URL(%s)のフェッチ", url),
		op,
		isHTTPRetryableError,
	)

	if err != nil {
		return nil, err
	}
	return bodyBytes, nil
}

// FetchDocument はURLからHTMLを取得し、goquery.Documentを返します。
func (c *Client) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	bodyBytes, err := c.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}
	return doc, nil
}

// FetchStream はURLへのGETリクエストを実行し、デコード済みのボディストリームを返します。
// 大きなXML文書を全量読み込まずに処理するために使用します。クローズは呼び出し側の責務です。
func (c *Client) FetchStream(ctx context.Context, url string) (io.ReadCloser, error) {
	var stream io.ReadCloser

	op := func() error {
		resp, fetchErr := c.doRequest(ctx, url)
		if fetchErr != nil {
			return fetchErr
		}

		decoded, decodeErr := decodeBody(resp)
		if decodeErr != nil {
			resp.Body.Close()
			return decodeErr
		}

		stream = decoded
		return nil
	}

	err := retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("URL(%s)のストリーム取得", url),
		op,
		isHTTPRetryableError,
	)

	if err != nil {
		return nil, err
	}
	return stream, nil
}

// doFetchBytes は実際の一度のHTTP GETリクエストとボディ読み込みを実行します。
func (c *Client) doFetchBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	decoded, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer decoded.Close()

	limitedReader := io.LimitReader(decoded, MaxBodySize)
	bodyBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}

	return bodyBytes, nil
}

// doRequest は一度のGETリクエストを実行し、ステータスコードを検証したレスポンスを返します。
// エラーがない場合、レスポンスボディのクローズは呼び出し側の責務です。
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)
	}
	c.addCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// decodeBody は Content-Encoding に応じてレスポンスボディをデコードするリーダーを返します。
// Accept-Encoding を明示指定しているため、標準ライブラリの透過的な展開は行われません。
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzipデコーダの初期化に失敗しました: %w", err)
		}
		return &decodedBody{reader: gz, underlying: resp.Body}, nil
	case "deflate":
		fl := flate.NewReader(resp.Body)
		return &decodedBody{reader: fl, underlying: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

// decodedBody は展開リーダーと元のボディの両方をクローズするラッパーです。
type decodedBody struct {
	reader     io.ReadCloser
	underlying io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	err := d.reader.Close()
	if cerr := d.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}

// ----------------------------------------------------------------------
// ステータスコードの分類
// ----------------------------------------------------------------------

// retryableStatusCodes はリトライ対象とするHTTPステータスコードの集合です。
var retryableStatusCodes = map[int]struct{}{
	http.StatusTooManyRequests:     {}, // 429
	http.StatusInternalServerError: {}, // 500
	http.StatusBadGateway:          {}, // 502
	http.StatusServiceUnavailable:  {}, // 503
	http.StatusGatewayTimeout:      {}, // 504
}

// checkResponse はHTTPレスポンスのステータスコードを評価し、
// リトライすべきエラーか、非リトライ対象のエラーかを返します。
// エラーを返す場合でもボディのクローズは行いません。呼び出し元の責務です。
func checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	limitedReader := io.LimitReader(resp.Body, int64(maxErrorBodySize))
	bodyBytes, _ := io.ReadAll(limitedReader)

	if _, ok := retryableStatusCodes[resp.StatusCode]; ok {
		return &RetryableStatusError{
			StatusCode: resp.StatusCode,
			Body:       bodyBytes,
		}
	}

	return &NonRetryableHTTPError{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
	}
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// isHTTPRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 非リトライ対象エラー (429 を除く 4xx など) はリトライしない
	if IsNonRetryableError(err) {
		return false
	}

	// リトライ対象ステータス (429, 5xx) とネットワークエラーはすべてリトライ対象
	return true
}
