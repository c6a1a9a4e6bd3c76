package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/taskmesh"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	anthropicmodel "github.com/hupe1980/taskmesh/model/anthropic"
	openaimodel "github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/reasoner"
)

const scriptedReply = "Taskmesh is running without a language model. Set model.provider to openai or anthropic to break tasks down."

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *logging.TaskMeshLogger {
	lc := logging.DefaultLoggerConfig()
	lc.Level = logging.ParseLevel(cfg.Log.Level)
	lc.Format = cfg.Log.Format
	lc.Output = os.Stderr
	return logging.NewLogger(lc)
}

func newModel(cfg config.Config) (model.Model, error) {
	mc := cfg.Model

	switch mc.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			o.Temperature = mc.Temperature
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if mc.Name != "" {
				o.Model = anthropic.Model(mc.Name)
			}
			o.Temperature = mc.Temperature
			o.APIKey = mc.APIKey
		}), nil
	}

	return nil, fmt.Errorf("%w: provider %q has no model", config.ErrInvalidConfig, mc.Provider)
}

func newReasoner(cfg config.Config, logger logging.Logger) (reasoner.Reasoner, error) {
	if cfg.Model.Provider == config.ProviderScripted {
		return reasoner.NewScripted(reasoner.FinalAnswer(scriptedReply)), nil
	}

	m, err := newModel(cfg)
	if err != nil {
		return nil, err
	}

	return reasoner.NewModelReasoner(m, func(o *reasoner.ModelReasonerOptions) {
		o.MaxIters = cfg.Model.MaxIters
		o.Logger = logger
	}), nil
}

func newMesh(cfg config.Config, logger *logging.TaskMeshLogger) (*taskmesh.TaskMesh, error) {
	r, err := newReasoner(cfg, logger.WithComponent("reasoner"))
	if err != nil {
		return nil, err
	}

	return taskmesh.New(r, func(o *taskmesh.Options) {
		o.ChunkSize = cfg.Relay.ChunkSize
		o.PollInterval = cfg.Relay.PollInterval
		o.TurnTimeout = cfg.Relay.TurnTimeout
		o.Logger = logger.WithComponent("relay")
	}), nil
}
