package factory

import (
	"github.com/growthspect/contact-intake/internal/adapters/openai"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
)

// SpamFactory creates the optional spam screening client
type SpamFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSpamFactory creates a new spam factory
func NewSpamFactory(cfg *config.Config, logger *zap.Logger) *SpamFactory {
	return &SpamFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSpamClient creates the spam client, or nil when screening is
// disabled
func (f *SpamFactory) CreateSpamClient() (core.SpamClient, error) {
	if !f.cfg.GetBool("spam.enabled") {
		return nil, nil
	}
	oaCfg := f.cfg.GetOpenAI()
	return openai.NewSpamClient(
		oaCfg.APIKey,
		oaCfg.ModelName,
		oaCfg.MaxTokens,
		oaCfg.Temperature,
		oaCfg.MaxMessageSize,
		f.logger,
	)
}

// CreateServiceOptions assembles the intake pipeline tunables
func (f *SpamFactory) CreateServiceOptions() core.ServiceOptions {
	spamCfg := f.cfg.GetSpam()
	return core.ServiceOptions{
		SpamEnabled:        spamCfg.Enabled,
		SpamThreshold:      spamCfg.Threshold,
		WhitelistedDomains: spamCfg.WhitelistedDomains,
	}
}
