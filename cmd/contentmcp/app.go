package main

import (
	"fmt"

	"github.com/nainya/contentmcp/internal/config"
	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
	"github.com/nainya/contentmcp/pkg/lifecycle"
	"github.com/nainya/contentmcp/pkg/query"
	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/repository/rest"
	"github.com/nainya/contentmcp/pkg/tools"
	"github.com/nainya/contentmcp/pkg/workspace"
)

// app is the wired component graph behind every transport
type app struct {
	repo   repository.Client
	facade *tools.Facade
}

func newApp(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*app, error) {
	var base repository.Client
	switch cfg.Backend {
	case config.BackendMemory:
		base = repository.NewMemory(cfg.User())
	default:
		client, err := rest.New(rest.Config{
			BaseURL:    cfg.Alfresco.URL,
			Username:   cfg.Alfresco.Username,
			Password:   cfg.Alfresco.Password,
			Timeout:    cfg.Alfresco.Timeout,
			VerifySSL:  cfg.Alfresco.VerifySSL,
			MaxRetries: cfg.Alfresco.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("repository client: %w", err)
		}
		base = client
	}

	zl := *log.GetZerolog()
	repo := repository.Instrument(base, m, *log.RepoLogger().GetZerolog())
	engine := query.NewEngine(repo,
		query.WithLogger(zl),
		query.WithRecorder(m),
	)
	controller := lifecycle.NewController(repo, cfg.User(),
		lifecycle.WithLogger(zl),
		lifecycle.WithRecorder(m),
	)
	ws, err := workspace.New(cfg.WorkspaceDir)
	if err != nil {
		return nil, err
	}
	facade, err := tools.New(tools.Config{
		Repository:  repo,
		Engine:      engine,
		Lifecycle:   controller,
		Workspace:   ws,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      log.Component("tools"),
	})
	if err != nil {
		return nil, err
	}
	return &app{repo: repo, facade: facade}, nil
}
