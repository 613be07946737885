// Package daemon wires the path resolver, structured logger, storage
// engine, and connection server into the single long-running process that
// backs the clankers CLI's "daemon" command: the orchestrator a supervisor
// (systemd, launchd, or the editor plugin itself) keeps alive.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/clankers-daemon/clankers/internal/apperr"
	"github.com/clankers-daemon/clankers/internal/logging"
	"github.com/clankers-daemon/clankers/internal/paths"
	"github.com/clankers-daemon/clankers/internal/rpc"
	"github.com/clankers-daemon/clankers/internal/server"
	"github.com/clankers-daemon/clankers/internal/storage"
	"github.com/dustin/go-humanize"
)

// Options configures a daemon run. Zero values resolve to the platform
// defaults from the paths package.
type Options struct {
	SocketPath string
	DataRoot   string
	DbPath     string
	LogLevel   string
}

// Run resolves paths, opens the database, starts the log retention
// sweeper, binds the connection server, and serves until ctx is cancelled
// or SIGINT/SIGTERM is received. It logs through the structured logger when
// available, falling back to plain lines on stderr otherwise.
func Run(ctx context.Context, opts Options) error {
	if opts.DataRoot != "" {
		os.Setenv("CLANKERS_DATA_PATH", opts.DataRoot)
	}
	if opts.DbPath != "" {
		os.Setenv("CLANKERS_DB_PATH", opts.DbPath)
	}
	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = paths.GetSocketPath()
	}

	logger, loggerErr := logging.New(opts.LogLevel, paths.GetLogDir())
	if loggerErr != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v (falling back to stderr)\n", loggerErr)
		logger = nil
	} else {
		defer logger.Close()
		logger.Infof("daemon", "daemon starting with log level %s", opts.LogLevel)
	}

	cleanupStop := logging.StartCleanupJob(paths.GetLogDir())
	defer close(cleanupStop)

	dbPath := paths.GetDbPath()
	created, err := storage.EnsureDb(dbPath)
	if err != nil {
		return apperr.Wrap(apperr.StorageOpen, "failed to ensure database", err)
	}
	logStartup(logger, created, dbPath)

	store, err := storage.Open(dbPath)
	if err != nil {
		return apperr.Wrap(apperr.StorageOpen, "failed to open database", err)
	}
	defer store.Close()

	listener, err := server.Listen(socketPath)
	if err != nil {
		return err
	}
	logf(logger, "daemon", "listening on %s", listener.Addr())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			logf(logger, "daemon", "shutting down...")
			cancel()
			listener.Close()
		case <-runCtx.Done():
		}
	}()

	handler := rpc.NewHandler(store, logger)
	srv := server.New(listener, handler,
		func(conn net.Conn) {
			if logger != nil {
				logger.Debugf("daemon", "accepted connection from %s", conn.RemoteAddr())
			}
		},
		func(err error) {
			logf(logger, "daemon", "accept error: %v", err)
		},
	)

	return srv.Serve(runCtx)
}

func logStartup(logger *logging.Logger, created bool, dbPath string) {
	if !created {
		return
	}
	size := "0 B"
	if info, err := os.Stat(dbPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	logf(logger, "daemon", "created database at %s (%s)", dbPath, size)
}

func logf(logger *logging.Logger, component, format string, v ...interface{}) {
	if logger != nil {
		logger.Infof(component, format, v...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", v...)
}
