// Command smoketest signs up a throwaway member on a deployed server with a virtual passkey.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/myrjola/guesswho/internal/e2etest"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/logging"
)

func testSignUp(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if _, err := client.Register(ctx); err != nil {
		return errors.Wrap(err, "register user")
	}
	// Smoke test members stay off the boards.
	doc, err := client.SubmitForm(ctx, "/profile", "/profile", url.Values{"display_name": {"Smoke test"}})
	if err != nil {
		return errors.Wrap(err, "save profile")
	}
	if doc.Find("#lobby").Length() != 1 {
		return errors.New("lobby not shown after saving the profile")
	}
	if _, err = client.Logout(ctx, "/members"); err != nil {
		return errors.Wrap(err, "logout user")
	}
	if doc, err = client.Login(ctx); err != nil {
		return errors.Wrap(err, "login user")
	}
	if doc.Find("#lobby").Length() != 1 {
		return errors.New("lobby not shown after login")
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, nil)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		baseURL  = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", baseURL))

	if client, err = e2etest.NewClient(baseURL, hostname, baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = testSignUp(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing sign up", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful")
}
