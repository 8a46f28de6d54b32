package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/internal/server"
)

// serveCommand creates the serve command, which starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		fps     int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Serves one-shot layouts (POST /api/ideas, POST /api/layouts) and live
canvases whose simulation runs at --fps frames per second. The server stops
gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			if cmd.Flags().Changed("fps") {
				c.Config.Server.FPS = fps
			}
			if err := c.Config.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&fps, "fps", 0, "live canvas frame rate (default from config, 60)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(server.Options{
		Runner: runner,
		Logger: c.Logger,
		Layout: c.Config.Layout,
		FPS:    c.Config.Server.FPS,
	})

	printInfo("Serving on %s", StyleLink.Render(listenURL(c.Config.Server.Addr)))
	printKeyValue("Service", c.Config.Service.URL)
	printKeyValue("Cache", c.Config.Cache.Backend)
	printKeyValue("Frame rate", fmt.Sprintf("%d fps", c.Config.Server.FPS))

	if err := srv.ListenAndServe(ctx, c.Config.Server.Addr); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}

// listenURL turns a listen address such as ":8080" into a clickable URL.
func listenURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
