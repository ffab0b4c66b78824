// Package cleanup は不要になったデータの定期削除ジョブを提供する。
// 失効したセッション、期限切れの共有リンク、期限切れのメールアドレス確認リクエストを
// 一定件数ずつバッチで処理する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/wantify/internal/auth"
	"github.com/hitoshi/wantify/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// target は1種類の削除対象。queryは $1=基準時刻, $2=バッチサイズ を受け取る。
type target struct {
	name   string
	query  string
	cutoff func(now time.Time) []any
}

// Config はクリーンアップジョブの設定。
type Config struct {
	// BatchSize は1回のDELETEで処理する最大行数（デフォルト: 500）。
	BatchSize int
	// BatchesPerSecond は1秒あたりのバッチ実行数の上限（デフォルト: 5）。
	BatchesPerSecond float64
	// SessionRetention は論理削除済みセッションを保持する期間（デフォルト: 30日）。
	SessionRetention time.Duration
}

// Job は不要データの削除ジョブ。
// 何度実行しても結果が変わらない冪等な処理として設計されている。
type Job struct {
	db        Executor
	logger    *slog.Logger
	collector metrics.MetricsCollector
	limiter   *rate.Limiter
	batchSize int
	targets   []target

	// Now は現在時刻を返す。テストで差し替える。
	Now func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(db Executor, logger *slog.Logger, collector metrics.MetricsCollector, cfg Config) *Job {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.BatchesPerSecond <= 0 {
		cfg.BatchesPerSecond = 5
	}
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = 30 * 24 * time.Hour
	}
	if collector == nil {
		collector = metrics.Nop{}
	}

	return &Job{
		db:        db,
		logger:    logger,
		collector: collector,
		limiter:   rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1),
		batchSize: cfg.BatchSize,
		targets:   defaultTargets(cfg.SessionRetention),
		Now:       time.Now,
	}
}

func defaultTargets(sessionRetention time.Duration) []target {
	return []target{
		{
			// 無操作タイムアウトを超えたセッションと、保持期間を過ぎた論理削除済みセッション
			name: "sessions",
			query: `DELETE FROM sessions WHERE id IN (
				SELECT id FROM sessions
				WHERE last_activity_at < $1 OR deleted_at < $2
				LIMIT $3)`,
			cutoff: func(now time.Time) []any {
				return []any{now.Add(-auth.InactivityTimeout), now.Add(-sessionRetention)}
			},
		},
		{
			name: "shared_wishlists",
			query: `UPDATE shared_wishlists SET deleted_at = $1, updated_at = $1 WHERE id IN (
				SELECT id FROM shared_wishlists
				WHERE deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at <= $1
				LIMIT $2)`,
			cutoff: func(now time.Time) []any {
				return []any{now}
			},
		},
		{
			name: "email_verification_requests",
			query: `DELETE FROM email_verification_requests WHERE id IN (
				SELECT id FROM email_verification_requests
				WHERE expires_at <= $1
				LIMIT $2)`,
			cutoff: func(now time.Time) []any {
				return []any{now}
			},
		},
	}
}

// Run は全対象のクリーンアップを1回実行する。
// 1つの対象で失敗しても残りの対象は処理し、最初のエラーを返す。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	now := j.Now()

	var firstErr error
	for _, t := range j.targets {
		count, err := j.runTarget(ctx, t, now)
		if count > 0 {
			j.collector.RecordCleanupRows(t.name, count)
		}
		if err != nil {
			j.logger.Error("クリーンアップに失敗しました",
				slog.String("target", t.name),
				slog.Int64("deleted_count", count),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.logger.Info("クリーンアップが完了しました",
			slog.String("target", t.name),
			slog.Int64("deleted_count", count),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return firstErr
}

// runTarget は処理件数がバッチサイズに満たなくなるまでバッチを繰り返す。
func (j *Job) runTarget(ctx context.Context, t target, now time.Time) (int64, error) {
	args := append(t.cutoff(now), j.batchSize)

	var total int64
	for {
		if err := j.limiter.Wait(ctx); err != nil {
			return total, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}

		result, err := j.db.ExecContext(ctx, t.query, args...)
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s: %w", t.name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get affected rows for %s: %w", t.name, err)
		}

		total += n
		if n < int64(j.batchSize) {
			return total, nil
		}
	}
}

// Start は起動直後と interval ごとにRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", j.batchSize),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップワーカーを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
