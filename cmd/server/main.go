// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/config"
	"github.com/uzqw/vex/internal/engine"
	"github.com/uzqw/vex/internal/metrics"
	"github.com/uzqw/vex/internal/protocol"
	"github.com/uzqw/vex/internal/recordstore"
	"github.com/uzqw/vex/internal/registry"
	"github.com/uzqw/vex/pkg/logger"
)

const (
	defaultPort = "6379"
	defaultHost = "0.0.0.0"
)

var (
	host       = flag.String("host", defaultHost, "Host to bind to")
	port       = flag.String("port", defaultPort, "Port to listen on")
	configPath = flag.String("config", "vex.yaml", "Path to the database configuration file")
	dbName     = flag.String("db", "", "Named database to serve (defaults to the first entry in --config)")
	logFormat  = flag.String("log-format", "text", "Log format: text or json")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVer    = flag.Bool("version", false, "Show version and exit")
	db         *database
	log        *logger.Logger

	// Version is set at build time via ldflags
	Version = "dev"
)

// database bundles the three components that together replace the
// teacher's flat key/value store: the index core, the external-ID
// adapter, and the durable record store it is rebuilt from.
type database struct {
	name    string
	table   *engine.Table
	reg     *registry.Registry
	records *recordstore.Store
}

func init() {
	flag.Parse()

	if *showVer {
		fmt.Printf("Vex server version %s\n", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	switch strings.ToLower(*logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	format := logger.FormatText
	if strings.ToLower(*logFormat) == "json" {
		format = logger.FormatJSON
	}

	log = logger.New(logger.Config{
		Format: format,
		Level:  level,
	})

	var err error
	db, err = openDatabase(*configPath, *dbName, log)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openDatabase loads the configuration file, selects the named database (or
// the first entry if name is empty), opens its table and record store, and
// replays any persisted records into the fresh table.
func openDatabase(configPath, name string, log *logger.Logger) (*database, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var dbCfg config.DatabaseConfig
	if name == "" {
		dbCfg = cfg.Databases[0]
	} else {
		var ok bool
		dbCfg, ok = cfg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("database %q not found in %s", name, configPath)
		}
	}

	mode, err := engine.ParseMode(dbCfg.Mode)
	if err != nil {
		return nil, err
	}
	tbl, err := engine.Open(dbCfg.Dims, mode)
	if err != nil {
		return nil, err
	}

	store, err := recordstore.Open(dbCfg.DataDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	result, err := recordstore.Replay(store, tbl, reg, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("database opened",
		slog.String("name", dbCfg.Name),
		slog.Int("dims", dbCfg.Dims),
		slog.String("mode", mode.String()),
		slog.Int("records_loaded", result.Loaded),
		slog.Int("records_skipped", result.Skipped),
	)
	metrics.Global().SetBucketsAllocated(int64(tbl.BucketsAllocated()))

	return &database{name: dbCfg.Name, table: tbl, reg: reg, records: store}, nil
}

func main() {
	addr := fmt.Sprintf("%s:%s", *host, *port)
	log.Info("starting Vex server", slog.String("addr", addr), slog.String("db", db.name))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to start listener", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer listener.Close()

	log.Info("server started successfully", slog.String("addr", addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		listener.Close()
	}()

	go monitorMemory(ctx)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("shutting down server")
				return
			default:
				log.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}
		}

		metrics.Global().IncrementActiveConnections()
		go handleConnection(ctx, conn)
	}
}

// handleConnection processes a single client connection.
func handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		metrics.Global().DecrementActiveConnections()
	}()

	requestID := uuid.New().String()
	connLog := log.WithRequestID(ctx, requestID)

	connLog.Info("new connection", slog.String("remote", conn.RemoteAddr().String()))

	reader := protocol.NewRESPReader(conn)
	writer := protocol.NewRESPWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				connLog.Debug("connection closed")
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				connLog.Info("connection timeout")
				return
			}
			connLog.Warn("protocol error", slog.String("error", err.Error()))
			if writeErr := writer.WriteError(err.Error()); writeErr != nil {
				connLog.Debug("failed to write error response", slog.String("error", writeErr.Error()))
				return
			}
			if flushErr := writer.Flush(); flushErr != nil {
				connLog.Debug("failed to flush error response", slog.String("error", flushErr.Error()))
				return
			}
			return
		}

		if len(cmd) == 0 {
			continue
		}

		metrics.Global().IncrementCommands()

		start := time.Now()
		processCommand(connLog, writer, cmd)
		latency := time.Since(start)

		connLog.Debug("command executed",
			slog.String("cmd", cmd[0]),
			slog.Int("args", len(cmd)-1),
			slog.Duration("latency", latency),
		)

		if err := writer.Flush(); err != nil {
			connLog.Error("failed to flush response", slog.String("error", err.Error()))
			return
		}
	}
}

// processCommand handles individual commands.
func processCommand(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	command := strings.ToUpper(cmd[0])

	switch command {
	case "PING":
		handlePing(writer, cmd)
	case "ECHO":
		handleEcho(writer, cmd)
	case "VSET":
		handleVSet(log, writer, cmd)
	case "VGET":
		handleVGet(writer, cmd)
	case "VDEL":
		handleVDel(writer, cmd)
	case "VSEARCH":
		handleVSearch(log, writer, cmd)
	case "STATS", "INFO":
		handleStats(writer)
	case "CLEAR":
		handleClear(writer)
	case "QUIT":
		_ = writer.WriteSimpleString("OK")
	default:
		_ = writer.WriteError(fmt.Sprintf("unknown command '%s'", command))
	}
}

func handlePing(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) == 1 {
		_ = writer.WriteSimpleString("PONG")
	} else {
		_ = writer.WriteBulkString(cmd[1])
	}
}

func handleEcho(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'echo' command")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

// handleVSet handles VSET key "[0.1, 0.2, 0.3]": parse, validate dims,
// insert into the table, persist the record, register key <-> internal id.
func handleVSet(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vset' command")
		return
	}

	key := cmd[1]
	if !recordstore.ValidID(key) {
		_ = writer.WriteError("invalid key: must not be empty, '.', '..', or contain '/' or '\\'")
		return
	}
	values, err := protocol.FastVectorParser(cmd[2])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	if existing, ok := db.reg.InternalID(key); ok {
		db.table.Delete(existing)
		db.reg.UnbindInternal(existing)
	}

	internalID, err := db.table.Insert(values)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}

	if _, err := db.records.Save(recordstore.Record{
		ID:         key,
		Embeddings: [][]float32{values},
	}); err != nil {
		log.Warn("failed to persist record", slog.String("key", key), slog.String("error", err.Error()))
	}

	db.reg.Bind(internalID, key)
	metrics.Global().RecordInsert()
	metrics.Global().SetBucketsAllocated(int64(db.table.BucketsAllocated()))
	_ = writer.WriteSimpleString("OK")
}

// handleVGet handles VGET key. The table stores SIMD-padded vectors, so the
// exact-dimension value is read back from the record store instead.
func handleVGet(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'vget' command")
		return
	}

	key := cmd[1]
	if _, ok := db.reg.InternalID(key); !ok {
		_ = writer.WriteBulkString("")
		return
	}

	rec, err := db.records.Load(key)
	if err != nil || len(rec.Embeddings) == 0 {
		_ = writer.WriteBulkString("")
		return
	}

	values := rec.Embeddings[0]
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%.6f", v))
	}
	sb.WriteString("]")

	_ = writer.WriteBulkString(sb.String())
}

// handleVDel handles VDEL key, removing the table slot, registry binding,
// and persisted record together.
func handleVDel(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'vdel' command")
		return
	}

	key := cmd[1]
	internalID, ok := db.reg.InternalID(key)
	if !ok {
		_ = writer.WriteInteger(0)
		return
	}

	db.table.Delete(internalID)
	db.reg.UnbindInternal(internalID)
	_ = db.records.Delete(key)
	metrics.Global().RecordDelete()
	_ = writer.WriteInteger(1)
}

// handleVSearch handles VSEARCH "[0.1, 0.2, 0.3]" k: search_n against the
// table, then resolve each internal id back to its external key, trimming
// NoMatch padding.
func handleVSearch(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vsearch' command")
		return
	}

	var k int
	if _, err := fmt.Sscanf(cmd[2], "%d", &k); err != nil || k <= 0 {
		_ = writer.WriteError("k must be positive")
		return
	}

	query, err := protocol.FastVectorParser(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	results, err := db.table.SearchN(query, k)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}

	keys := make([]string, 0, len(results))
	for _, res := range results {
		if res.ID == engine.NoMatch {
			continue
		}
		key, ok := db.reg.Lookup(res.ID)
		if !ok {
			log.Warn("search returned an id with no registry binding", slog.Int("id", int(res.ID)))
			continue
		}
		keys = append(keys, key)
	}

	metrics.Global().RecordSearch()
	_ = writer.WriteArray(keys)
}

// handleStats handles STATS/INFO.
func handleStats(writer *protocol.RESPWriter) {
	jsonStr, err := metrics.Global().JSON()
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteBulkString(jsonStr)
}

// handleClear handles CLEAR: resets the table, registry, and metrics
// counters. The record store is left untouched, since it is the durable
// source of truth the table and registry are rebuilt from.
func handleClear(writer *protocol.RESPWriter) {
	db.table.Close()
	mode := db.table.Mode()
	dims := db.table.Dims()
	tbl, err := engine.Open(dims, mode)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	db.table = tbl
	db.reg.Clear()
	metrics.Global().Reset()
	metrics.Global().SetBucketsAllocated(int64(tbl.BucketsAllocated()))
	_ = writer.WriteSimpleString("OK")
}

// monitorMemory periodically updates memory usage metrics.
func monitorMemory(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.Global().SetMemoryUsage(m.Alloc)
		}
	}
}
