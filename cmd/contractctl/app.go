package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/farmconnect/contracts-api/internal/config"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"github.com/spf13/cobra"
)

// Exit codes per error kind
const (
	exitOK                    = 0
	exitInternal              = 1
	exitValidation            = 2
	exitNotFound              = 3
	exitConflict              = 4
	exitAuthorization         = 5
	exitInvalidTransition     = 6
	exitDependencyTimeout     = 7
	exitDependencyUnavailable = 8
	exitPartialFailure        = 9
)

const skipStore = "skip-store"

type app struct {
	actor services.Actor
	dbDSN string
	file  string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	svcs    *services.Services
	backend *repository.Backend
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch services.KindOf(err) {
	case services.KindValidation:
		return exitValidation
	case services.KindNotFound:
		return exitNotFound
	case services.KindConflict:
		return exitConflict
	case services.KindAuthorization:
		return exitAuthorization
	case services.KindInvalidTransition:
		return exitInvalidTransition
	case services.KindDependencyTimeout:
		return exitDependencyTimeout
	case services.KindDependencyUnavailable:
		return exitDependencyUnavailable
	case services.KindPartialFailure:
		return exitPartialFailure
	}
	return exitInternal
}

func usageErr(err error) error {
	return &services.Error{Kind: services.KindValidation, Reason: err.Error(), Err: err}
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	logger.SetupWriter(os.Getenv("ENVIRONMENT"), errOut)

	a := &app{in: in, out: out, errOut: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(context.Background())
	if a.backend != nil {
		a.backend.Close(context.Background())
	}
	if err != nil {
		a.writeError(err)
	}
	return exitCode(err)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "contractctl",
		Short:         "Drive the farm contract lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipStore] == "true" {
				return nil
			}
			return a.open(cmd.Context())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.actor.ID, "actor-id", os.Getenv("CONTRACTCTL_ACTOR_ID"), "id of the calling user")
	flags.StringVar(&a.actor.Username, "username", os.Getenv("CONTRACTCTL_USERNAME"), "username of the calling user")
	flags.StringVar(&a.actor.Role, "role", os.Getenv("CONTRACTCTL_ROLE"), "role of the calling user")
	flags.StringVar(&a.dbDSN, "db", os.Getenv("CONTRACTCTL_DB"), "SQLite database file; empty uses DATABASE_DRIVER/DATABASE_URL")

	root.AddCommand(
		a.registerUserCommand(),
		a.createContractCommand(),
		a.getContractCommand(),
		a.publishCommand(),
		a.submitBidCommand(),
		a.listBidsCommand(),
		a.acceptBidCommand(),
		a.rejectBidCommand(),
		a.setStatusCommand(),
		a.addDeliveryCommand(),
		a.addPaymentCommand(),
		a.summaryCommand(),
		a.expireTendersCommand(),
		a.tokenCommand(),
	)
	return root
}

func (a *app) config() (*config.Config, error) {
	if a.dbDSN == "" {
		return config.Load()
	}
	return &config.Config{
		DatabaseDriver:       config.DriverSQLite,
		DatabaseURL:          a.dbDSN,
		DependencyTimeout:    5 * time.Second,
		ChannelRetryAttempts: 3,
		ChannelRetryBackoff:  200 * time.Millisecond,
	}, nil
}

func (a *app) open(ctx context.Context) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	repos, backend, err := repository.Open(ctx, cfg)
	if err != nil {
		return &services.Error{Kind: services.KindDependencyUnavailable, Reason: "database unavailable", Err: err}
	}
	a.backend = backend
	// No worker: audit entries are written before the command returns.
	a.svcs = services.NewServices(repos, nil, cfg, services.SystemClock())
	return nil
}

// withInput adds the --file flag used by commands that read a JSON body
func (a *app) withInput(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().StringVarP(&a.file, "file", "f", "", "JSON input file (default stdin)")
	return cmd
}

func (a *app) readInput(v interface{}) error {
	r := a.in
	if a.file != "" {
		f, err := os.Open(a.file)
		if err != nil {
			return usageErr(err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return usageErr(fmt.Errorf("invalid JSON input: %w", err))
	}
	return nil
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) writeError(err error) {
	body := map[string]interface{}{
		"error": err.Error(),
		"kind":  services.KindOf(err),
	}
	var serr *services.Error
	if errors.As(err, &serr) {
		body["error"] = serr.Reason
		if serr.Err != nil && serr.Reason == "" {
			body["error"] = serr.Err.Error()
		}
		if serr.Code != "" {
			body["code"] = serr.Code
		}
		if len(serr.Steps) > 0 {
			body["completedSteps"] = serr.Steps
		}
	}
	enc := json.NewEncoder(a.errOut)
	_ = enc.Encode(body)
}
