package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はクリーンアップワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// Run はコマンドライン引数に応じてアプリケーションを起動する。
// SIGINT/SIGTERMを受け取るとコンテキストをキャンセルする。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand はwantifyのルートコマンドを生成する。
// サブコマンドが省略された場合はAPIサーバーとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	serve := newServeCommand(w)

	cmd := &cobra.Command{
		Use:           "wantify",
		Short:         "Wishlist API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newWorkerCommand(w))
	cmd.AddCommand(newMigrateCommand(w))
	cmd.AddCommand(newHealthcheckCommand())
	return cmd
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := Init(ctx, w)
			if err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}
}

func newWorkerCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandWorker),
		Short: "Start the periodic cleanup worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := Init(ctx, w)
			if err != nil {
				return err
			}
			return runWorker(ctx, cfg)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(commandContext(cmd), w)
			if err != nil {
				return err
			}
			return runMigrate(cfg)
		},
	}
}

// newHealthcheckCommand は設定を読み込まずに /health を確認する。
func newHealthcheckCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Check the /health endpoint of a running process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(commandContext(cmd), port)
		},
	}

	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "Port of the local server")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
