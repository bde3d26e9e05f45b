package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/attachment"
	"github.com/longkey1/llmchat/internal/llmc/config"
	"github.com/longkey1/llmchat/internal/llmc/conversation"
	promptpkg "github.com/longkey1/llmchat/internal/llmc/prompt"
	"github.com/longkey1/llmchat/internal/llmc/session"
	"github.com/longkey1/llmchat/internal/llmc/storage"
	"github.com/longkey1/llmchat/internal/openai"
)

// app wires the components used by the chat commands.
type app struct {
	cfg     *config.Config
	state   *storage.Storage
	client  *openai.Client
	session *session.Session

	// template, when set, overrides the system prompt of every send.
	template *promptpkg.Rendered
}

// newApp loads the configuration and the state file and restores the
// conversation. An unreadable config or state file is fatal.
func newApp(ui session.UI) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	state, err := storage.Open(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("opening state file: %w", err)
	}

	a := &app{
		cfg:   cfg,
		state: state,
		client: openai.NewClient(
			openai.WithTestTimeout(cfg.TestTimeout()),
			openai.WithLogger(log),
		),
	}

	store := conversation.NewStore(conversation.NewStatePersister(state), log)
	pipeline := attachment.NewPipeline(cfg.AttachmentLimits(), nil, log)
	a.session = session.New(store, pipeline, a.client, a.settings, ui, log)

	if err := a.session.Restore(); err != nil {
		return nil, err
	}

	log.WithField("state_file", state.Path()).Debug("Session ready")
	return a, nil
}

// settings resolves the request settings for one send.
func (a *app) settings() (llmc.Settings, error) {
	s, err := a.cfg.Settings(a.state)
	if err != nil {
		return llmc.Settings{}, err
	}
	if a.template != nil {
		s = a.template.Apply(s)
	}
	return s, nil
}

// stage stages local files by path.
func (a *app) stage(ctx context.Context, paths []string) attachment.Result {
	files := make([]attachment.FileHandle, len(paths))
	for i, path := range paths {
		files[i] = attachment.LocalFile(path)
	}
	return a.session.Stage(ctx, files)
}

// cancelOnInterrupt cancels the outstanding request when the user presses
// Ctrl+C, until the returned stop function is called.
func (a *app) cancelOnInterrupt() (stop func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigc:
			if a.session.Cancel() {
				fmt.Fprintln(os.Stderr, "\nRequest cancelled.")
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigc)
		close(done)
	}
}

// withInterrupt returns a context that is cancelled when the user presses
// Ctrl+C. The returned stop function releases the signal handler.
func withInterrupt(ctx context.Context) (context.Context, func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	ctx, cancel := cancelOnSignal(ctx, sigc)
	return ctx, func() {
		signal.Stop(sigc)
		cancel()
	}
}

// cancelOnSignal cancels the returned context on the first value from sigc.
func cancelOnSignal(ctx context.Context, sigc <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-sigc:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// testConnection runs the connection check and lets Ctrl+C abort it.
func (a *app) testConnection(ctx context.Context) llmc.Outcome {
	ctx, stop := withInterrupt(ctx)
	defer stop()

	out := a.session.TestConnection(ctx)
	if out.Status == llmc.Cancelled {
		fmt.Fprintln(os.Stderr, "\nConnection test cancelled.")
	}
	return out
}
