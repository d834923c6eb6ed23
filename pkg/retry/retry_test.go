package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, uint64(DefaultMaxRetries), cfg.MaxRetries, "MaxRetries should match DefaultMaxRetries constant.")
	require.Equal(t, DefaultInitialInterval, cfg.InitialInterval, "InitialInterval should match constant.")
	require.Equal(t, DefaultMaxInterval, cfg.MaxInterval, "MaxInterval should match constant.")
	require.Equal(t, DefaultMultiplier, cfg.Multiplier, "Multiplier should match constant.")
}

func TestNewBackOffPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		Multiplier:      1.5,
	}

	bo := newBackOffPolicy(ctx, cfg)
	require.NotNil(t, bo)
}

func TestDo(t *testing.T) {
	// テスト用の高速な設定
	testCfg := Config{MaxRetries: 3, InitialInterval: 1 * time.Millisecond, MaxInterval: 10 * time.Millisecond, Multiplier: 1.5}
	opName := "test_operation"

	// 予期されるエラーメッセージを実装に合わせて正確に生成
	permanentErrText := "致命的なエラーのためリトライを中止: permanent error"
	maxRetriesErrText := fmt.Sprintf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: 一時的なエラーが発生、リトライします: retryable error", opName, testCfg.MaxRetries)

	tests := []struct {
		name          string
		ctx           context.Context
		cfg           Config
		operationName string
		operation     Operation
		shouldRetry   ShouldRetryFunc
		expectedError string
		exactMatch    bool
	}{
		{
			name:          "成功ケース",
			ctx:           context.Background(),
			cfg:           testCfg,
			operationName: opName,
			operation:     func() error { return nil },
			shouldRetry:   func(err error) bool { return false },
			expectedError: "",
		},
		{
			name:          "リトライ可能エラー後に成功",
			ctx:           context.Background(),
			cfg:           testCfg,
			operationName: opName,
			operation: func() Operation {
				attempt := 0
				return func() error {
					attempt++
					if attempt < 3 {
						return errors.New("retryable error")
					}
					return nil
				}
			}(),
			shouldRetry:   func(err error) bool { return err.Error() == "retryable error" },
			expectedError: "",
		},
		{
			name:          "永続エラーは即時終了",
			ctx:           context.Background(),
			cfg:           testCfg,
			operationName: opName,
			operation: func() error {
				return errors.New("permanent error")
			},
			// shouldRetry が false を返すため、1回目で中断されるべき
			shouldRetry:   func(err error) bool { return false },
			expectedError: permanentErrText,
			exactMatch:    true,
		},
		{
			name:          "コンテキストキャンセル",
			ctx:           func() context.Context { ctx, cancel := context.WithCancel(context.Background()); cancel(); return ctx }(),
			cfg:           testCfg,
			operationName: opName,
			operation: func() error {
				// コンテキストエラーを誘発するために、リトライ対象のエラーを返す
				return errors.New("some error")
			},
			shouldRetry:   func(err error) bool { return true },
			expectedError: "test_operationに失敗しました: コンテキストタイムアウト/キャンセル: context canceled",
		},
		{
			name:          "リトライ上限到達",
			ctx:           context.Background(),
			cfg:           testCfg,
			operationName: opName,
			operation: func() error {
				return errors.New("retryable error")
			},
			shouldRetry:   func(err error) bool { return true },
			expectedError: maxRetriesErrText,
			exactMatch:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Do(tt.ctx, tt.cfg, tt.operationName, tt.operation, tt.shouldRetry)

			if tt.expectedError != "" {
				require.Error(t, err)
				if tt.exactMatch {
					require.Equal(t, tt.expectedError, err.Error())
				} else {
					require.Contains(t, err.Error(), tt.expectedError)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestDo_RetryCount は shouldRetry が true の場合に MaxRetries+1 回実行されることを検証します。
func TestDo_RetryCount(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialInterval: 1 * time.Millisecond, MaxInterval: 5 * time.Millisecond, Multiplier: 1.5}

	calls := 0
	op := func() error {
		calls++
		return errors.New("still failing")
	}

	err := Do(context.Background(), cfg, "count_check", op, func(error) bool { return true })
	require.Error(t, err)
	// 初回実行 + リトライ2回
	require.Equal(t, 3, calls)
}

// TestDo_PermanentFromOperation は operation 自身が backoff.Permanent を返すケースです。
func TestDo_PermanentFromOperation(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialInterval: 1 * time.Millisecond, MaxInterval: 5 * time.Millisecond, Multiplier: 1.5}

	calls := 0
	op := func() error {
		calls++
		return backoff.Permanent(errors.New("fatal"))
	}

	err := Do(context.Background(), cfg, "permanent_check", op, func(error) bool { return true })
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
