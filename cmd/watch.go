package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render a QR code as content lines arrive on stdin",
	Long: `watch reads one content string per line from stdin. Bursts of edits are
debounced by DEBOUNCE_WINDOW and each settled code is written to the output
directory. The last line is rendered once stdin closes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cfg, log)
		if err != nil {
			return err
		}
		defer svc.close()

		opts, err := renderOptions(cmd, svc.optimizer)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(renderFlags.format)
		if err != nil {
			return err
		}

		var (
			mu     sync.Mutex
			digest string
		)
		sessLog := log.With().Str("component", "session").Logger()
		sess := render.NewSession(svc.pipeline,
			render.WithDebounce(cfg.DebounceWindow),
			render.WithSessionLogger(sessLog),
			render.WithStateListener(func(st render.State) {
				if st.Generating || st.Image == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if st.Image.Digest == digest {
					return
				}
				digest = st.Image.Digest
				written, err := save(cmd, svc, st.Image, format)
				if err != nil {
					sessLog.Warn().Err(err).Msg("failed to save render")
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), written)
			}),
		)
		defer sess.Close()

		var last string
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			last = strings.TrimSpace(sc.Text())
			sess.Update(last, opts)
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if last == "" {
			return nil
		}
		_, err = sess.Settle(cmd.Context(), last, opts)
		return err
	},
}

func init() {
	addRenderFlags(watchCmd)
}
