package factory

import (
	"fmt"

	"github.com/growthspect/contact-intake/internal/adapters/smtp"
	"github.com/growthspect/contact-intake/internal/compose"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
)

// MailFactory creates the composer and dispatcher from configuration
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger) *MailFactory {
	return &MailFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDispatcher creates the SMTP dispatcher. Missing relay
// configuration fails here, at startup, instead of on the first send.
func (f *MailFactory) CreateDispatcher() (core.MailDispatcher, error) {
	smtpCfg, err := f.cfg.GetSMTP()
	if err != nil {
		return nil, fmt.Errorf("invalid smtp configuration: %w", err)
	}
	if smtpCfg.NotifyAddress == "" {
		return nil, fmt.Errorf("smtp notify address is not configured")
	}
	return smtp.NewDispatcher(smtpCfg, f.logger)
}

// CreateComposer creates the email composer
func (f *MailFactory) CreateComposer() (core.Composer, error) {
	smtpCfg, err := f.cfg.GetSMTP()
	if err != nil {
		return nil, fmt.Errorf("invalid smtp configuration: %w", err)
	}
	return compose.NewComposer(compose.Options{
		FromAddress:   smtpCfg.FromAddress,
		FromName:      smtpCfg.FromName,
		NotifyAddress: smtpCfg.NotifyAddress,
		SiteName:      smtpCfg.FromName,
	})
}
