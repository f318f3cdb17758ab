package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/atomicstack/openhab-popup/internal/backend"
	"github.com/atomicstack/openhab-popup/internal/command"
	"github.com/atomicstack/openhab-popup/internal/companion"
	"github.com/atomicstack/openhab-popup/internal/endpoint"
	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/preferences"
	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/state"
	"github.com/atomicstack/openhab-popup/internal/tasks"
	"github.com/atomicstack/openhab-popup/internal/transport"
	"github.com/atomicstack/openhab-popup/internal/ui"
)

// Config describes user-provided application options.
type Config struct {
	Settings        session.Settings
	Version         int
	Refresh         bool
	LongPollTimeout time.Duration
	RequestTimeout  time.Duration
	PrefsPath       string
	CompanionFile   string
	IconFormat      endpoint.IconFormat
	Width           int
	Height          int
	Preview         bool
}

// Run bootstraps and executes the Bubble Tea program together with the
// companion receiver and the signal-driven background tasks. It returns
// when the program exits.
func Run(cfg Config) error {
	if cfg.Preview {
		return runPreview(cfg)
	}
	rt := newRuntime(cfg)
	defer rt.close()

	model := ui.NewModel(ui.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		ShowFooter: true,
		Refresh:    cfg.Refresh,
		Watcher:    rt.watcher,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	rt.program.Store(program)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.CompanionFile != "" {
		receiver := companion.NewReceiver(cfg.CompanionFile, rt.session, rt.applyCompanion)
		g.Go(func() error {
			return receiver.Run(gctx)
		})
	}
	g.Go(func() error {
		return rt.watchSignals(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		program.Quit()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func runPreview(cfg Config) error {
	src, err := sitemap.Decode(sitemap.PreviewPayload, sitemap.VersionJSON)
	if err != nil {
		return fmt.Errorf("decode preview page: %w", err)
	}
	model := ui.NewModel(ui.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		ShowFooter: true,
		Seed:       state.NewPage(src),
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// runtime holds the long-lived collaborators shared by the program and the
// background goroutines.
type runtime struct {
	cfg      Config
	session  *session.Session
	client   *transport.Client
	commands *command.Dispatcher
	watcher  *backend.Watcher
	program  atomic.Pointer[tea.Program]
}

func newRuntime(cfg Config) *runtime {
	rt := &runtime{cfg: cfg}
	rt.session = session.New(cfg.Settings)
	rt.client = transport.NewClient(rt.session, transport.Options{
		RequestTimeout:  cfg.RequestTimeout,
		LongPollTimeout: cfg.LongPollTimeout,
	})
	rt.commands = command.New(rt.client, command.WithResultFunc(func(res command.Result) {
		rt.send(ui.CommandResultMsg{Result: res})
	}))
	rt.watcher = backend.NewWatcher(rt.session, rt.client, backend.Options{
		Version: cfg.Version,
		Commands: func(item *sitemap.Item, cmd string) {
			if item.Link == "" {
				if u, err := endpoint.Item(rt.session.RootURL(), item.Name); err == nil {
					item.Link = u.String()
				}
			}
			rt.commands.SendCommand(item, cmd)
		},
	})
	return rt
}

func (rt *runtime) send(msg tea.Msg) {
	if p := rt.program.Load(); p != nil {
		p.Send(msg)
	}
}

func (rt *runtime) close() {
	rt.watcher.Stop()
	rt.commands.Close()
	rt.watcher.Wait()
}

func (rt *runtime) handlers() tasks.Handlers {
	return tasks.Handlers{
		Refresh: func() error {
			rt.send(ui.RestartMsg{})
			return nil
		},
		Connectivity: func() error {
			if rt.cfg.PrefsPath != "" {
				if err := preferences.Save(rt.cfg.PrefsPath, rt.session.Settings()); err != nil {
					return err
				}
			}
			rt.send(ui.RestartMsg{})
			return nil
		},
	}
}

// applyCompanion persists pushed settings and reconnects when they changed
// how the server is reached.
func (rt *runtime) applyCompanion(res companion.Result) {
	switch {
	case res.Reconnect:
		tasks.Handle([]tasks.Task{tasks.New(tasks.KindConnectivity, nil)}, rt.handlers())
	case res.Changed && rt.cfg.PrefsPath != "":
		if err := preferences.Save(rt.cfg.PrefsPath, rt.session.Settings()); err != nil {
			logging.Error(err)
		}
	}
}

// watchSignals turns SIGHUP into an app refresh task until ctx ends.
func (rt *runtime) watchSignals(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	defer signal.Stop(sigs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigs:
			tasks.Handle([]tasks.Task{tasks.New(tasks.KindAppRefresh, nil)}, rt.handlers())
		}
	}
}
