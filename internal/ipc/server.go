package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"framebridge/internal/bridge"
	"framebridge/internal/logging"
	"framebridge/internal/logs"
)

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogPath serves LogTail requests from path.
func WithLogPath(path string) ServerOption {
	return func(s *Server) { s.logPath = strings.TrimSpace(path) }
}

// WithShutdown registers the function a Shutdown request invokes.
func WithShutdown(fn func()) ServerOption {
	return func(s *Server) { s.shutdown = fn }
}

// Server exposes the bridge via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logPath   string
	shutdown  func()
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, svc *bridge.Service, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if svc == nil {
		return nil, errors.New("ipc server requires bridge service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		path:     path,
		logger:   logger,
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &service{server: s, bridge: svc}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	s.rpcServer = rpcServer
	return s, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Calls still running
// see their context canceled.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	// Idle clients would otherwise hold Close open indefinitely.
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

type service struct {
	server *Server
	bridge *bridge.Service
}

func (s *service) ctx() context.Context { return s.server.ctx }

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.StatusInfo = s.bridge.Status(s.ctx())
	resp.Socket = s.server.path
	resp.LogPath = s.server.logPath
	return nil
}

func (s *service) ProbeTool(_ ProbeToolRequest, resp *ProbeToolResponse) error {
	resp.Status = s.bridge.ProbeTool(s.ctx())
	return nil
}

func (s *service) ProbeInterpreter(_ ProbeInterpreterRequest, resp *ProbeInterpreterResponse) error {
	resp.Environment = s.bridge.ProbeInterpreter(s.ctx())
	return nil
}

func (s *service) RunScript(req RunScriptRequest, resp *RunScriptResponse) error {
	if strings.TrimSpace(req.Script) == "" {
		return errors.New("run script requires a script name")
	}
	resp.Result = s.bridge.RunScript(s.ctx(), req.Script, req.Args)
	return nil
}

func (s *service) CancelScript(_ CancelScriptRequest, resp *CancelScriptResponse) error {
	resp.Canceled = s.bridge.CancelScript(s.ctx()).Canceled
	return nil
}

func (s *service) RunTool(req RunToolRequest, resp *RunToolResponse) error {
	resp.Result = s.bridge.RunTool(s.ctx(), req.Args)
	return nil
}

func (s *service) InstallTool(_ InstallToolRequest, resp *InstallToolResponse) error {
	resp.Result = s.bridge.InstallTool(s.ctx())
	return nil
}

func (s *service) BatchCompress(req BatchCompressRequest, resp *BatchCompressResponse) error {
	resp.Result = s.bridge.BatchCompress(s.ctx(), req.Options)
	return nil
}

func (s *service) ExtractFirstFrames(req ExtractFirstFramesRequest, resp *ExtractFirstFramesResponse) error {
	resp.Result = s.bridge.ExtractFirstFrames(s.ctx(), req.Options)
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	batch, err := s.bridge.Events(s.ctx(), req.Since, req.Limit, time.Duration(req.WaitMillis)*time.Millisecond)
	if err != nil {
		return err
	}
	resp.Events = batch.Events
	resp.Next = batch.Next
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.bridge.History(s.ctx(), req.Operation, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = runs
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	if s.server.logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx()
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	page, err := logs.Tail(ctx, s.server.logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = page.Lines
	resp.Offset = page.Offset
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.server.shutdown == nil {
		return errors.New("shutdown is not supported by this server")
	}
	s.server.logger.Info("shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	resp.Stopping = true
	// Reply before the listener closes.
	go s.server.shutdown()
	return nil
}
