package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"littrfix/annotate"
	"littrfix/autofill"
	"littrfix/config"
	"littrfix/fetcher"
	"littrfix/fixer"
	"littrfix/prefs"

	"go.uber.org/zap"
)

// openPrefs opens the configured preference store. The returned func
// releases it.
func openPrefs(ctx context.Context, c *config.Config, logger *zap.Logger) (prefs.Store, func(), error) {
	switch c.Prefs.Backend {
	case "memory":
		return prefs.NewMemoryStore(), func() {}, nil

	case "redis":
		store := prefs.NewRedisStore(c.Prefs.RedisAddr, c.Prefs.RedisPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", c.Prefs.RedisAddr, err)
		}
		logger.Debug("prefs in redis", zap.String("addr", c.Prefs.RedisAddr))
		return store, func() { store.Close() }, nil

	default:
		path := c.Prefs.Path
		if path == "" {
			var err error
			if path, err = prefs.DefaultPath(); err != nil {
				return nil, nil, err
			}
		}
		store, err := prefs.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("prefs in file", zap.String("path", path))
		return store, func() {}, nil
	}
}

// fixerOptions maps the configuration onto fixer options.
func fixerOptions(c *config.Config, location string) fixer.Options {
	opts := fixer.DefaultOptions()
	opts.Routes = annotate.Routes{Hashtag: c.Routes.Hashtag, User: c.Routes.User}
	opts.Annotate = annotate.Selectors{Text: c.Selectors.Text, Anchors: c.Selectors.Anchors}
	opts.Sanitize = c.Fixer.Sanitize
	opts.Login = autofill.Selectors{
		Username: c.Selectors.Username,
		Password: c.Selectors.Password,
		Submit:   c.Selectors.Submit,
	}
	opts.ShareTarget = c.Selectors.ShareTarget
	opts.ModeSwitch = c.Selectors.ModeSwitch
	opts.Location = location
	if c.Fixer.Location != "" {
		opts.Location = c.Fixer.Location
	}
	return opts
}

func newFetcher(c *config.Config, logger *zap.Logger) *fetcher.Fetcher {
	var headers map[string]string
	if c.Live.Token != "" {
		headers = map[string]string{"X-Auth-Token": c.Live.Token}
	}
	return fetcher.New(fetcher.Options{
		UserAgent:  c.Fetcher.UserAgent,
		Timeout:    c.Timeout(),
		ChromePath: c.Fetcher.ChromePath,
		Headers:    headers,
	}, logger)
}

// fixUntilStable runs cycles until one finds nothing left to do, at most
// limit times. Returns the number of cycles run.
func fixUntilStable(ctx context.Context, ctrl *fixer.Controller, limit int) int {
	for i := 1; i <= limit; i++ {
		res, ok := ctrl.Cycle(ctx)
		if !ok {
			return i - 1
		}
		if res.AlreadyFixed && !res.Annotations.Changed() {
			return i
		}
	}
	return limit
}

// writeOutput writes the page to path, or stdout when path is empty or "-".
func writeOutput(path, html string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprint(os.Stdout, html)
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(html), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
