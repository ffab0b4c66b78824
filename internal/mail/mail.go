// Package mail はメール送信のインターフェースを提供する。
package mail

import (
	"context"
	"log/slog"
)

// Message は送信するメールを表す。
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender はメール送信のインターフェース。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender は送信せずに構造化ログへ記録するSender。
// 本文には確認コードが含まれるため、ログには宛先と件名のみを出力する。
type LogSender struct {
	From string
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(from string) *LogSender {
	return &LogSender{From: from}
}

// Send はメールの送信をログに記録する。
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail sent",
		slog.String("from", s.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// compile-time interface check
var _ Sender = (*LogSender)(nil)
