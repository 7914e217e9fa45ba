package main

import (
	"context"
	"errors"
	"sync"

	"littrfix/dom"
	"littrfix/fetcher"
	"littrfix/fixer"
	"littrfix/live"
	"littrfix/network"
	"littrfix/share"
	"littrfix/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Keep patching a page as it changes",
	Long: `Load a saved page and keep running fixup cycles on it. Every save of the
file starts a new render. When configured, the live event stream and the
network probe feed into the page as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "write the patched page here after every change (default stdout)")
}

// session ties a page controller to its output.
type session struct {
	ctrl   *fixer.Controller
	output string
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

// load parses the file and makes it the current render.
func (s *session) load(ctx context.Context, path string) error {
	d, _, err := fetcher.ReadFile(path)
	if err != nil {
		return err
	}
	s.ctrl.Load(ctx, d)
	return nil
}

// cycle runs one fixup cycle and writes the page if it changed.
func (s *session) cycle(ctx context.Context) {
	if _, ok := s.ctrl.Cycle(ctx); !ok {
		return
	}
	d, _ := s.ctrl.Page()
	if d == nil {
		return
	}
	out, err := d.HTML()
	if err != nil {
		s.logger.Warn("rendering page", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if out == s.last {
		return
	}
	if err := writeOutput(s.output, out); err != nil {
		s.logger.Warn("writing page", zap.Error(err))
		return
	}
	s.last = out
}

func (s *session) page() *dom.Document {
	d, _ := s.ctrl.Page()
	return d
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	store, release, err := openPrefs(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	w, err := watch.New(path, 0, logger)
	if err != nil {
		return err
	}

	sharer := share.NewQRSharer()
	if cfg.Share.Dir != "" {
		sharer.Dir = cfg.Share.Dir
	}
	caps := fixer.Capabilities{Prefs: store, Sharer: sharer}

	f, err := fixer.New(fixerOptions(cfg, fetcher.FileURL(path)), caps, logger)
	if err != nil {
		return err
	}

	s := &session{ctrl: fixer.NewController(f, logger), output: watchOutput, logger: logger}
	defer s.ctrl.Close()
	if err := s.load(ctx, path); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	sched := fixer.NewScheduler(ctx, cfg.Interval(), s.cycle)
	sched.Start()
	defer sched.Stop()

	var mon *network.Monitor
	if cfg.Network.ProbeURL != "" {
		mon = network.NewMonitor(cfg.Network.ProbeURL, cfg.ProbeInterval(), logger, func(online bool) {
			if d := s.page(); d != nil {
				network.Apply(d, online)
			}
			sched.Trigger()
		})
	}

	g.Go(func() error {
		return w.Run(ctx, func() {
			if err := s.load(ctx, path); err != nil {
				logger.Warn("reloading page", zap.Error(err))
				return
			}
			// A fresh render starts without the connectivity marks.
			if mon != nil {
				if online, known := mon.Online(); known {
					network.Apply(s.page(), online)
				}
			}
			sched.Trigger()
		})
	})

	if cfg.Live.URL != "" {
		sub := live.New(cfg.Live.URL, cfg.Live.Token, logger)
		sub.Page = s.page
		sub.Trigger = sched.Trigger
		g.Go(func() error { return sub.Run(ctx) })
	}

	if mon != nil {
		g.Go(func() error { return mon.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
