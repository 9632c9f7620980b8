package di

import (
	"go.uber.org/dig"

	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"github.com/growthspect/contact-intake/internal/factory"
	"github.com/growthspect/contact-intake/internal/httpserver"
	"github.com/growthspect/contact-intake/internal/i18n"
	"github.com/growthspect/contact-intake/internal/logging"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewRateLimitFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSpamFactory); err != nil {
		return nil, err
	}

	// Register rate limit store
	if err := container.Provide(func(f *factory.RateLimitFactory) (core.RateLimitStore, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register composer and dispatcher
	if err := container.Provide(func(f *factory.MailFactory) (core.Composer, error) {
		return f.CreateComposer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailFactory) (core.MailDispatcher, error) {
		return f.CreateDispatcher()
	}); err != nil {
		return nil, err
	}

	// Register spam client and pipeline options
	if err := container.Provide(func(f *factory.SpamFactory) (core.SpamClient, error) {
		return f.CreateSpamClient()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.SpamFactory) core.ServiceOptions {
		return f.CreateServiceOptions()
	}); err != nil {
		return nil, err
	}

	// Register validator and localizer
	if err := container.Provide(core.NewValidator); err != nil {
		return nil, err
	}
	if err := container.Provide(i18n.NewLocalizer); err != nil {
		return nil, err
	}

	// Register intake service
	if err := container.Provide(core.NewIntakeService); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(cfg *config.Config) (config.ServerConfig, error) {
		return cfg.GetServer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) config.CORSConfig {
		return cfg.GetCORS()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
