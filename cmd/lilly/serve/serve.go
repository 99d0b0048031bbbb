// Package servecmder provides the serve command that runs the lilly server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lillylive/lilly/api"
	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/config"
	"github.com/lillylive/lilly/pkg/logger"
)

type ServeCommander struct {
	listen          string
	storageProvider string
	storageTarget   string
	model           string
	assistantID     string
	personaFile     string
	eventStream     string
	otlpEndpoint    string
	envFile         string
	logFile         string
	debug           bool
	configDir       string

	viper  *viper.Viper
	logger *slog.Logger
}

const serveLongDesc string = `Run the lilly server.

Serves the landing page, POST /api/chat, POST /api/login, POST /api/signup
and GET /api/me on one listener.

Settings come from flags, LILLY_* environment variables, config.toml in the
.lilly/ directory and built-in defaults, in that order. OPENAI_API_KEY,
OPENAI_ASSISTANT_ID, JWT_SECRET and MONGODB_URI are honoured too. A .env file
in the working directory is loaded first when present.

Examples:
  lilly serve
  lilly serve --listen :3000 --storage-provider mongo
  lilly serve --assistant-id asst_123 --persona-file ./persona.md`

const serveShortDesc string = "Run the lilly server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagStorageProvider,
	config.FlagStorageTarget,
	config.FlagModel,
	config.FlagAssistantID,
	config.FlagPersonaFile,
	config.FlagEventStream,
	config.FlagOTLPEndpoint,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmder.envFile); err != nil {
				return err
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageTarget, &cmder.storageTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagAssistantID, &cmder.assistantID)
	config.AddStringFlag(cmd, config.Flags, config.FlagPersonaFile, &cmder.personaFile)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagOTLPEndpoint, &cmder.otlpEndpoint)
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Dotenv file loaded before config resolution")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *ServeCommander) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.FromViper(c.viper)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := build(ctx, cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer stack.close(c.logger)

	server, err := api.NewServer(api.Config{
		ListenAddr:    cfg.Server.Listen,
		AllowOrigins:  cfg.Server.AllowOrigins,
		AuthRateLimit: int(cfg.Server.AuthRateLimit),
	}, stack.deps, c.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Error("server shutdown failed", "error", err)
	}
	return nil
}

// initLogger builds the serve logger. With --log-file the console logger is
// teed into a JSON file logger.
func (c *ServeCommander) initLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(cliui.IsInteractive()),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	c.logger = logger.Multi(console, file)

	return func() { _ = f.Close() }, nil
}
