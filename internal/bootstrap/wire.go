package bootstrap

import (
	"go.uber.org/zap"

	"voxquery/internal/audio"
	"voxquery/internal/config"
	"voxquery/internal/ports"
	"voxquery/internal/providers/backend"
	"voxquery/internal/providers/deepgram"
	"voxquery/internal/rules"
	"voxquery/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.WorkflowController
	Config     config.Config
}

// Build wires all dependencies for the current runtime.
func Build(cfg config.Config, eventSink ports.EventSink, logger *zap.Logger) (Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	client := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		TranscribePath: cfg.Backend.TranscribePath,
		ConvertPath:    cfg.Backend.ConvertPath,
		ExecutePath:    cfg.Backend.ExecutePath,
		Timeout:        cfg.Backend.Timeout,
	}, logger.Named("backend"))

	recorder := audio.NewRecorder(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		cfg.Audio.ChunkSize,
		logger.Named("recorder"),
	)

	controller := usecase.NewWorkflowController(
		recorder,
		audio.FileLoader{},
		usecase.Gateways{
			Transcriber: transcriber(cfg, client, logger),
			Converter:   client,
			Executor:    client,
		},
		rulesEngine,
		eventSink,
		logger.Named("controller"),
	)

	logger.Info("services ready",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("transcriber", cfg.Transcriber),
		zap.Int("rules", rulesEngine.Len()))
	return Services{Controller: controller, Config: cfg}, nil
}

func transcriber(cfg config.Config, client *backend.Client, logger *zap.Logger) ports.Transcriber {
	if cfg.Transcriber == config.TranscriberDeepgram {
		return deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}, logger.Named("deepgram"))
	}
	return client
}
