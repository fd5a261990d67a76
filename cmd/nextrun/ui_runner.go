package main

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"nextrun/internal/ctxlog"
	"nextrun/internal/pipeline"
	"nextrun/internal/ui"
)

// handoffSink feeds the progress UI and hands the terminal back before the
// script starts: the run stage closes the event stream and blocks until the
// UI has exited. Later events are dropped.
type handoffSink struct {
	mu       sync.Mutex
	forward  pipeline.ChannelSink
	closed   bool
	uiDone   <-chan struct{}
	released func()
	once     sync.Once
}

func (s *handoffSink) OnEvent(ev pipeline.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.forward.OnEvent(ev)
	handoff := ev.Stage == pipeline.StageRun && ev.Status == pipeline.StatusWorking
	if handoff {
		close(s.forward.Ch)
		s.closed = true
	}
	s.mu.Unlock()
	if handoff {
		<-s.uiDone
		s.afterUI()
	}
}

// release ends the event stream if the pipeline stopped before the run stage.
func (s *handoffSink) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.forward.Ch)
		s.closed = true
	}
}

func (s *handoffSink) afterUI() {
	s.once.Do(func() {
		if s.released != nil {
			s.released()
		}
	})
}

// runWithUI runs the pipeline while a progress UI renders to out. released
// runs once the UI has given up the terminal and before the script starts,
// or after the pipeline ends if it never got that far.
func runWithUI(ctx context.Context, runner *pipeline.Runner, req *pipeline.Request, title string, out io.Writer, released func()) (pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan pipeline.Event, 64)
	uiDone := make(chan struct{})
	sink := &handoffSink{forward: pipeline.ChannelSink{Ch: events}, uiDone: uiDone, released: released}

	var (
		g      errgroup.Group
		res    pipeline.Result
		runErr error
	)
	g.Go(func() error {
		defer sink.release()
		reqCopy := *req
		reqCopy.Progress = sink
		res, runErr = runner.Run(ctx, &reqCopy)
		return nil
	})
	g.Go(func() error {
		defer close(uiDone)
		program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(out))
		final, err := program.Run()
		if ui.Interrupted(final) {
			cancel()
		}
		return err
	})

	uiErr := g.Wait()
	sink.afterUI()
	if uiErr != nil {
		ctxlog.FromContext(ctx).Warn("progress UI failed", "error", uiErr)
	}
	return res, runErr
}
