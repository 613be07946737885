package cli

import (
	"context"
	"io"
	"log"
	"os"
	"strings"

	"github.com/clankers-daemon/clankers/internal/daemon"
	"github.com/spf13/cobra"
)

// filteredLogWriter drops a handful of benign network errors (client
// disconnects mid-write, the jsonrpc2 EOF noise that follows) from the
// standard logger so they don't drown out real problems on stderr.
type filteredLogWriter struct {
	w io.Writer
}

func (f *filteredLogWriter) Write(p []byte) (n int, err error) {
	s := string(p)
	if strings.Contains(s, "connection reset by peer") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "jsonrpc2: protocol error") && strings.Contains(s, "read unix") {
		return len(p), nil
	}
	return f.w.Write(p)
}

func daemonCmd() *cobra.Command {
	var opts daemon.Options

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background daemon",
		Long: `Run the Clankers daemon that listens for plugin connections
and stores session data to the local database.

The daemon listens on a Unix socket (macOS/Linux) or TCP (Windows)
and accepts JSON-RPC requests from editor plugins.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(&filteredLogWriter{w: os.Stderr})
			return daemon.Run(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(
		&opts.SocketPath,
		"socket",
		"",
		"socket path (default: <data root>/clankers/dxta-clankers.sock)",
	)
	cmd.Flags().StringVar(&opts.DataRoot, "data-root", "", "data root directory (overrides CLANKERS_DATA_PATH)")
	cmd.Flags().StringVar(&opts.DbPath, "db-path", "", "database file path (overrides CLANKERS_DB_PATH)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}
