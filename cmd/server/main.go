package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/indexdb"
	persistlog "github.com/coleschaffer/OpenCatan-sub003/internal/persistence/log"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/transport/observer"
	"github.com/coleschaffer/OpenCatan-sub003/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gameID     = flag.String("game", "", "game id (default: new uuid; required to resume)")
		seats      = flag.String("seats", "A:red,B:blue,C:white", "seat list as id:color, in turn order (fresh games only)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in rules)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: standard board)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read model")

		snapPath      = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest    = flag.Bool("load_latest_snapshot", true, "load latest snapshot from the game dir if present (when -snapshot is empty)")
		snapshotEvery = flag.Uint64("snapshot_every", 50, "write a snapshot every N versions (0: only at game end)")

		actRate  = flag.Float64("act_rate", 10, "per-connection ACT rate (per second)")
		actBurst = flag.Int("act_burst", 20, "per-connection ACT burst")

		publicObservers = flag.Bool("public_observers", false, "serve the spectator stream to non-loopback clients")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	hostLogger := log.New(os.Stdout, "[host] ", log.LstdFlags|log.Lmicroseconds)
	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	obsLogger := log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds)

	id := strings.TrimSpace(*gameID)
	if id == "" {
		id = uuid.NewString()
	}
	gameDir := filepath.Join(*dataDir, "games", id)
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		logger.Fatalf("game dir: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(gameDir)
	}
	rt, err := openGame(gameSource{
		ID:           id,
		Dir:          gameDir,
		SnapshotPath: snapshotToLoad,
		TuningPath:   *tuningPath,
		LayoutPath:   *layoutPath,
		Seats:        *seats,
	}, logger)
	if err != nil {
		logger.Fatalf("open game: %v", err)
	}
	g := rt.game

	// Optional read model (does not affect game determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(gameDir, "index", "game.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertGame(id, seatsOf(g), g.Settings(), rt.layout); err != nil {
			logger.Printf("index: upsert game: %v", err)
		}
	}

	actionLog := persistlog.NewActionLogger(gameDir)
	auditLog := persistlog.NewAuditLogger(gameDir)
	defer actionLog.Close()
	defer auditLog.Close()

	h := host.New(g, host.Config{
		SnapshotEvery: *snapshotEvery,
		Layout:        rt.layout,
		Logger:        hostLogger,
	})
	actions := actionFanout{actionLog}
	audits := auditFanout{auditLog}
	if idx != nil {
		actions = append(actions, idx)
		audits = append(audits, idx)
	}
	h.SetActionLogger(actions)
	h.SetAuditLogger(audits)

	snapCh := make(chan snapshot.GameSnapshot, 2)
	h.SetSnapshotSink(snapCh)

	wsSrv := ws.NewServer(h, wsLogger)
	wsSrv.SetRateLimit(rate.Limit(*actRate), *actBurst)
	obsSrv := observer.NewServer(h, obsLogger)
	obsSrv.LoopbackOnly = !*publicObservers

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(h, idx, obsSrv))
	if envBool("OC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			st, err := h.View(r.Context(), strings.TrimSpace(r.URL.Query().Get("viewer")))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(st)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			snap, err := h.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			path := filepath.Join(gameDir, "snapshots", snapshot.FileName(snap.Header.GameVersion))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "version": snap.Header.GameVersion, "path": path})
		})
	} else {
		logger.Printf("admin endpoints disabled (OC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("OC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	mux.HandleFunc("/v1/observe/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observe/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("game %s version=%d phase=%s", id, g.Version(), g.Phase())

	sigCtx, cancel := signalContext()
	defer cancel()
	eg, ctx := errgroup.WithContext(sigCtx)

	eg.Go(func() error {
		err := h.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		writeSnapshots(ctx, snapCh, gameDir, idx, logger)
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	eg.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		logger.Printf("stopped: %v", err)
		return
	}
	logger.Printf("stopped at version %d", h.Version())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	name := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		name = h
	}
	name = strings.TrimPrefix(name, "[")
	name = strings.TrimSuffix(name, "]")
	ip := net.ParseIP(name)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
