package email

import (
	"context"

	"go.uber.org/zap"
)

// Provider delivers HTML mail to customers.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// NoOpProvider is used when SMTP is not configured. Messages are dropped and
// noted at debug level.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(_ context.Context, to []string, subject string, _ string) error {
	p.logger().Debug("email dropped", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

func (p *NoOpProvider) SendTemplate(_ context.Context, to []string, templateName string, _ map[string]any) error {
	p.logger().Debug("email dropped", zap.Strings("to", to), zap.String("template", templateName))
	return nil
}

func (p *NoOpProvider) logger() *zap.Logger {
	if p == nil || p.log == nil {
		return zap.NewNop()
	}
	return p.log
}
