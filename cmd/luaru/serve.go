package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/luaru/executor"
	"github.com/caffeineduck/luaru/hostfunc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for script execution",
	Long: `Start an HTTP server that provides REST endpoints for script execution.

Endpoints:
  POST   /execute              Execute code (stateless)
  POST   /sessions             Create session, returns {"session_id":"..."}
  POST   /sessions/{id}/exec   Execute in session (state persists)
  DELETE /sessions/{id}        Close session
  GET    /health               Health check`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "Default execution timeout")
	serveCmd.Flags().Duration("session-ttl", 15*time.Minute, "Idle session expiry")
	serveCmd.Flags().Bool("kv", false, "Enable key-value store")
	serveCmd.Flags().StringSlice("allow-host", nil, "Allow HTTP to host (repeatable)")
	serveCmd.Flags().StringSlice("mount", nil, "Mount filesystem virtual:host:mode (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

// sessionManager tracks server-side sessions and expires idle ones.
type sessionManager struct {
	sessions map[string]*serverSession
	mu       sync.RWMutex
	ttl      time.Duration
	stop     chan struct{}
	log      *zap.Logger
}

type serverSession struct {
	session  *executor.Session
	lastUsed time.Time
}

func newSessionManager(ttl time.Duration, log *zap.Logger) *sessionManager {
	sm := &sessionManager{
		sessions: make(map[string]*serverSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
		log:      log,
	}
	go sm.reap()
	return sm
}

func (sm *sessionManager) create(exec *executor.Executor, opts ...executor.SessionOption) (string, error) {
	session, err := exec.NewSession(opts...)
	if err != nil {
		return "", err
	}

	id := generateSessionID()
	sm.mu.Lock()
	sm.sessions[id] = &serverSession{
		session:  session,
		lastUsed: time.Now(),
	}
	sm.mu.Unlock()
	return id, nil
}

func (sm *sessionManager) get(id string) (*executor.Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ss, ok := sm.sessions[id]
	if !ok {
		return nil, false
	}
	ss.lastUsed = time.Now()
	return ss.session, true
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	ss, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	if ok {
		ss.session.Close()
	}
	return ok
}

func (sm *sessionManager) reap() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
		}

		var expired []*serverSession
		sm.mu.Lock()
		now := time.Now()
		for id, ss := range sm.sessions {
			if now.Sub(ss.lastUsed) > sm.ttl {
				expired = append(expired, ss)
				delete(sm.sessions, id)
				sm.log.Info("session expired", zap.String("session_id", id))
			}
		}
		sm.mu.Unlock()
		for _, ss := range expired {
			ss.session.Close()
		}
	}
}

func (sm *sessionManager) closeAll() {
	close(sm.stop)
	sm.mu.Lock()
	all := make([]*serverSession, 0, len(sm.sessions))
	for id, ss := range sm.sessions {
		all = append(all, ss)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	for _, ss := range all {
		ss.session.Close()
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

type executeRequest struct {
	Code    string `json:"code"`
	Timeout string `json:"timeout,omitempty"`
}

type executeResponse struct {
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// serveConfig carries the capability settings every request runs under.
type serveConfig struct {
	timeout     time.Duration
	runOpts     []executor.Option
	sessionOpts []executor.SessionOption
}

// newServeMux wires the REST surface. Split from runServe so tests can
// exercise the handlers without a listener.
func newServeMux(exec *executor.Executor, sessions *sessionManager, cfg serveConfig, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Code == "" {
			http.Error(w, "code required", http.StatusBadRequest)
			return
		}

		timeout := cfg.timeout
		if req.Timeout != "" {
			if d, err := time.ParseDuration(req.Timeout); err == nil {
				timeout = d
			}
		}

		runOpts := append([]executor.Option{executor.WithTimeout(timeout)}, cfg.runOpts...)
		result := exec.Run(r.Context(), req.Code, runOpts...)

		resp := executeResponse{
			Output:     result.Output,
			DurationMs: result.Duration.Milliseconds(),
		}
		if result.Error != nil {
			resp.Error = result.Error.Error()
		}
		log.Info("execute",
			zap.Duration("duration", result.Duration),
			zap.Bool("ok", result.Error == nil))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sessionID, err := sessions.create(exec, cfg.sessionOpts...)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusInternalServerError)
			return
		}
		log.Info("session created", zap.String("session_id", sessionID))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(createSessionResponse{SessionID: sessionID})
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/sessions/")
		parts := strings.SplitN(path, "/", 2)
		sessionID := parts[0]

		if sessionID == "" {
			http.Error(w, "session_id required", http.StatusBadRequest)
			return
		}

		if r.Method == http.MethodDelete {
			if sessions.close(sessionID) {
				log.Info("session closed", zap.String("session_id", sessionID))
				w.WriteHeader(http.StatusNoContent)
			} else {
				http.Error(w, "session not found", http.StatusNotFound)
			}
			return
		}

		if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "exec" {
			session, ok := sessions.get(sessionID)
			if !ok {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}

			var req executeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if req.Code == "" {
				http.Error(w, "code required", http.StatusBadRequest)
				return
			}

			result := session.Run(r.Context(), req.Code)

			resp := executeResponse{
				Output:     result.Output,
				DurationMs: result.Duration.Milliseconds(),
			}
			if result.Error != nil {
				resp.Error = result.Error.Error()
			}
			log.Info("session exec",
				zap.String("session_id", sessionID),
				zap.Duration("duration", result.Duration),
				zap.Bool("ok", result.Error == nil))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
			return
		}

		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})

	return mux
}

func runServe(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	fileCfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("%v", err)
	}
	if !cmd.Flags().Changed("timeout") {
		timeout = fileCfg.timeoutOrDefault(timeout)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fatalf("%v", err)
	}
	defer log.Sync()

	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		fatalf("%v", err)
	}
	defer exec.Close()

	cfg := serveConfig{timeout: timeout}

	enableKV, _ := cmd.Flags().GetBool("kv")
	if !cmd.Flags().Changed("kv") && fileCfg.KV {
		enableKV = true
	}
	if enableKV {
		// One store shared by every request and session.
		kv := hostfunc.NewKVStore(hostfunc.DefaultKVConfig())
		cfg.runOpts = append(cfg.runOpts, executor.WithKVStore(kv))
		cfg.sessionOpts = append(cfg.sessionOpts, executor.WithSessionKVStore(kv))
	}

	allowedHosts, _ := cmd.Flags().GetStringSlice("allow-host")
	if len(allowedHosts) == 0 {
		allowedHosts = fileCfg.AllowHosts
	}
	if len(allowedHosts) > 0 {
		cfg.runOpts = append(cfg.runOpts, executor.WithAllowedHosts(allowedHosts))
		cfg.sessionOpts = append(cfg.sessionOpts, executor.WithSessionAllowedHosts(allowedHosts))
	}

	mounts, _ := cmd.Flags().GetStringSlice("mount")
	if len(mounts) == 0 {
		mounts = fileCfg.Mounts
	}
	for _, spec := range mounts {
		m, err := parseMount(spec)
		if err != nil {
			fatalf("%v", err)
		}
		cfg.runOpts = append(cfg.runOpts, executor.WithMount(m.VirtualPath, m.HostPath, m.Mode))
		cfg.sessionOpts = append(cfg.sessionOpts, executor.WithSessionMount(m.VirtualPath, m.HostPath, m.Mode))
	}

	libSpecs, _ := cmd.Root().PersistentFlags().GetStringSlice("libs")
	if len(libSpecs) == 0 {
		libSpecs = fileCfg.Libs
	}
	libs, err := parseLibraries(libSpecs)
	if err != nil {
		fatalf("%v", err)
	}
	if len(libs) > 0 {
		cfg.runOpts = append(cfg.runOpts, executor.WithRunLibraries(libs...))
		cfg.sessionOpts = append(cfg.sessionOpts, executor.WithSessionLibraries(libs...))
	}

	sessions := newSessionManager(sessionTTL, log)
	defer sessions.closeAll()

	mux := newServeMux(exec, sessions, cfg, log)

	addr := fmt.Sprintf(":%d", port)
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
