package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipersmart/internal/client/api"
	"pipersmart/internal/client/exchange"
	"pipersmart/internal/client/identity"
	"pipersmart/internal/client/session"
	"pipersmart/internal/client/store"
)

type app struct {
	apiURL    string
	configDir string
	verbose   bool

	manager *session.Manager
	client  *api.Client
	logger  *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pipersmart",
		Short:         "PiperSmart black pepper farming assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url",
		envOr("PIPERSMART_API_URL", "http://127.0.0.1:8080"), "backend base URL")
	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "",
		"directory for the session cache (default ~/.config/pipersmart)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose diagnostics")

	root.AddCommand(
		newLoginCommand(a),
		newLoginWithCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newWhoAmICommand(a),
		newNewsCommand(a),
		newStatsCommand(a),
		newNotesCommand(a),
		newChatCommand(a),
	)

	return root
}

func (a *app) setup() error {
	a.logger = logrus.New()
	a.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	a.logger.SetOutput(os.Stderr)
	if a.verbose {
		a.logger.SetLevel(logrus.DebugLevel)
	} else {
		a.logger.SetLevel(logrus.WarnLevel)
	}

	fileStorage, err := store.NewFileStorage(a.configDir)
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}

	bridge := identity.NewBridge(
		&identity.PromptFlow{},
		&identity.FileCacheResetter{Dir: a.configDir},
	)

	a.manager = session.NewManager(session.Config{
		Store:      store.NewTokenStore(fileStorage),
		Bridge:     bridge,
		Exchange:   exchange.NewClient(a.apiURL, 15*time.Second),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     a.logger,
	})
	a.manager.Bootstrap()

	a.client = api.NewClient(a.apiURL, a.manager.HTTPClient())
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
