package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/config"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

// watchCommand creates the watch command, which animates the simulation in
// the terminal.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		fps      int
		noFollow bool
		flags    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "watch [arch.json]",
		Short: "Watch the layout settle in the terminal",
		Long: `Watch the layout settle in the terminal.

Nodes start at their layered seed positions and are pushed apart one step per
frame. The file is reloaded whenever it changes on disk (--no-follow turns
this off). Keys:

  tab / shift+tab   select the next / previous node
  arrows or hjkl    drag the selected node
  r                 reload the file (positions are kept unless nodes changed)
  s                 reseed and restart
  q                 quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.mergeLayoutFlags(cmd, flags)
			if cmd.Flags().Changed("fps") {
				if fps < 1 || fps > config.MaxFPS {
					return fmt.Errorf("fps must be between 1 and %d", config.MaxFPS)
				}
				c.Config.Server.FPS = fps
			}
			return c.runWatch(cmd.Context(), args[0], opts, !noFollow)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 0, "frames per second (default from config, 60)")
	cmd.Flags().BoolVar(&noFollow, "no-follow", false, "do not reload when the file changes")
	addLayoutFlags(cmd, &flags)

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, opts pipeline.Options, follow bool) error {
	a, err := arch.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load architecture %s: %w", input, err)
	}
	if opts.Validate {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	m := NewCanvasModel(input, a, opts.Config(), c.Config.FrameInterval(), arch.ReadFile)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if follow {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := followFile(ctx, input, arch.ReadFile, p.Send, c.Logger); err != nil {
			c.Logger.Warn("not following file changes", "path", input, "err", err)
		}
	}

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	if fm, ok := final.(CanvasModel); ok {
		printInfo("%s: %s", StyleHighlight.Render(projectTitle(a.ProjectName)), fm.statusLine())
	}
	return nil
}

// followDebounce collapses the burst of events a single save produces.
const followDebounce = 150 * time.Millisecond

// followFile reloads path through load and sends the result as a reloadMsg
// whenever the file is written. The parent directory is watched so editors
// that save by renaming a temp file are seen too. Watching ends with ctx.
func followFile(ctx context.Context, path string, load func(string) (*arch.Architecture, error), send func(tea.Msg), logger *log.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(followDebounce, func() {
					a, err := load(abs)
					logger.Debug("file changed", "path", abs, "err", err)
					send(reloadMsg{arch: a, err: err})
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("file watch", "err", err)
			}
		}
	}()
	return nil
}
