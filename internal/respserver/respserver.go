package respserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/match"
	"github.com/tidwall/redcon"

	"github.com/kvpd/kvpd/internal/facade"
	"github.com/kvpd/kvpd/internal/kvstore"
)

// matchKeys filters keys against a redis-style glob pattern.
func matchKeys(keys []string, pattern string) []string {
	if pattern == "*" {
		return keys
	}
	matched := make([]string, 0, len(keys))
	for _, k := range keys {
		if match.Match(k, pattern) {
			matched = append(matched, k)
		}
	}
	return matched
}

type Server struct {
	store *facade.Facade
	srv   *redcon.Server
}

func New(store *facade.Facade) (*Server, error) {
	return &Server{store: store}, nil
}

func (s *Server) Run(ctx context.Context, addr string, idleTimeout time.Duration) error {
	var wg sync.WaitGroup
	var closed int32

	// There is some machinery here to manage context and cancelation.
	// Unfortunately this library is not context-aware.
	srv := redcon.NewServer(addr,
		// handler
		func(conn redcon.Conn, cmd redcon.Command) {
			if atomic.LoadInt32(&closed) != 0 {
				// server closed, close connection
				conn.Close()
				return
			}

			err := s.handler(ctx, conn, cmd)
			if err == nil {
				return
			}

			slog.Debug("Failed to execute command", "err", err)
			switch {
			case errors.Is(err, kvstore.ErrNotFound),
				errors.Is(err, kvstore.ErrAlreadyExists):
				conn.WriteNull()
			default:
				slog.Error("unhandled error", "err", err)
				conn.WriteError("ERR " + err.Error())
			}
		},
		// accept
		func(conn redcon.Conn) bool {
			if atomic.LoadInt32(&closed) != 0 {
				// Server closed, do not accept this connection
				return false
			}
			// Add connection to a wait group
			wg.Add(1)
			return true
		},
		// close
		func(conn redcon.Conn, err error) {
			// Remove connection from wait group
			wg.Done()
		},
	)
	s.srv = srv

	// Set a max amount of time a connection can stay idle.
	s.srv.SetIdleClose(idleTimeout)

	go func() {
		<-ctx.Done()
		slog.Warn("Waiting for open connections to close")
		atomic.StoreInt32(&closed, 1)
		wg.Wait()

		slog.Warn("Shutting down server")
		s.srv.Close()
	}()
	if err := s.srv.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func (s *Server) handler(ctx context.Context, conn redcon.Conn, cmd redcon.Command) error {
	slog.Debug("Executing command", "raw", cmd.Raw)

	args := cmd.Args
	cmdname := strings.ToUpper(string(args[0]))

	switch cmdname {
	case "PING":
		conn.WriteString("PONG")
	case "QUIT":
		conn.WriteString("OK")
		conn.Close()
	case "SET":
		if len(args) < 3 {
			return fmt.Errorf("wrong number of arguments for 'set' command")
		}
		key, value := string(args[1]), args[2]

		var mode string
		if len(args) > 3 {
			mode = strings.ToUpper(string(args[3]))
		}
		switch mode {
		case "":
			// plain SET is create-or-update; the store itself never upserts
			err := s.store.Update(ctx, key, value)
			if errors.Is(err, kvstore.ErrNotFound) {
				err = s.store.Create(ctx, key, value)
			}
			if err != nil {
				return fmt.Errorf("failed to set key: %w", err)
			}
		case "NX":
			if err := s.store.Create(ctx, key, value); err != nil {
				return err
			}
		case "XX":
			if err := s.store.Update(ctx, key, value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown option '%s' for 'set'", mode)
		}
		conn.WriteString("OK")
	case "GET":
		if len(args) < 2 {
			return fmt.Errorf("wrong number of arguments for 'get' command")
		}
		val, err := s.store.Read(ctx, string(args[1]))
		if err != nil {
			return err
		}
		conn.WriteBulkString(string(val))
	case "DEL":
		if len(args) < 2 {
			return fmt.Errorf("wrong number of arguments for 'del' command")
		}
		key := string(args[1])

		// report whether the key existed, like redis does
		existed := true
		if _, err := s.store.Read(ctx, key); errors.Is(err, kvstore.ErrNotFound) {
			existed = false
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		if existed {
			conn.WriteInt(1)
		} else {
			conn.WriteInt(0)
		}
	case "KEYS":
		if len(args) < 2 {
			return fmt.Errorf("wrong number of arguments for 'keys' command")
		}
		keys, err := s.store.Keys(ctx)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}
		keys = matchKeys(keys, string(args[1]))
		conn.WriteArray(len(keys))
		for _, k := range keys {
			conn.WriteBulkString(k)
		}
	case "CONFIG":
		if len(args) < 3 {
			return fmt.Errorf("wrong number of arguments for 'config' command")
		}

		if strings.ToUpper(string(args[1])) == "SET" {
			return fmt.Errorf("unknown subcommand '%s' for 'config'", args[1])
		}

		// only the basics for the redis-cli to work
		switch string(args[2]) {
		case "save":
			conn.WriteArray(2)
			conn.WriteBulkString("save")
			conn.WriteBulkString("")
		case "appendonly":
			conn.WriteArray(2)
			conn.WriteBulkString("appendonly")
			conn.WriteBulkString("no")
		default:
			return fmt.Errorf("unknown subcommand '%s' for 'config'", args[2])
		}

	default:
		return fmt.Errorf("unknown command '%s'", cmd.Raw)
	}

	return nil
}
