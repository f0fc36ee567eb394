package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/matheus3301/deskchat/internal/auth"
	"github.com/matheus3301/deskchat/internal/lock"
	"github.com/matheus3301/deskchat/internal/profile"
	"github.com/matheus3301/deskchat/internal/tui"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	debug := flag.Bool("debug", false, "debug-level logging")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}
	if err := profile.EnsureDir(name); err != nil {
		fail(err)
	}

	var ui *tui.App
	app := fx.New(
		Module(Params{Profile: name, Debug: *debug}),
		Logger(),
		fx.Populate(&ui),
	)
	if err := app.Err(); err != nil {
		fail(explain(err))
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fail(err)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stopSignals()
	go func() {
		<-sigCtx.Done()
		ui.Stop()
	}()

	runErr := ui.Run()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fail(runErr)
	}
}

// explain turns the common startup failures into actionable messages.
func explain(err error) error {
	var held *lock.LockHeldError
	switch {
	case errors.As(err, &held):
		return fmt.Errorf("profile %q is already open in another deskchat (pid %d)", held.Holder.Profile, held.Holder.PID)
	case errors.Is(err, auth.ErrNoToken):
		return errors.New("no token configured: set token in ~/.deskchat/config.toml or DESKCHAT_TOKEN")
	case errors.Is(err, auth.ErrExpired):
		return errors.New("session expired, log in again and update your token")
	}
	return err
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
