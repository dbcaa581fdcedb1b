// Package server runs the TCP frontend over an embedded engine,
// dispatching the four wire commands spec.md §6 names. Generalized
// from original_source's single-threaded Server<E: KvsEngine>::run
// accept loop to a goroutine-per-connection model, since the teacher
// (devesh-shetty-lsm-engine) ships no server at all.
package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	lsm "github.com/kvforge/wisckv"
	"github.com/kvforge/wisckv/internal/protocol"
)

// ErrKeyExists is logged when Insert is rejected because the key
// already has a live value; ErrKeyNotExist is logged when Update or
// Delete is rejected because it doesn't. The client receives
// StatusKeyExists or StatusKeyNotExist, not these errors. Both are
// server-layer policy, not engine invariants (spec §7 assigns this
// distinction to "the server," not the storage core).
var (
	ErrKeyExists   = errors.New("server: key already exists")
	ErrKeyNotExist = errors.New("server: key does not exist")
)

// Engine is the subset of *lsm.Engine the server depends on, so tests
// can substitute a fake.
type Engine interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Server accepts TCP connections and serves the wire protocol over
// each one on its own goroutine.
type Server struct {
	addr   string
	engine Engine
	logger *zap.Logger

	listener net.Listener
}

// New constructs a server bound to addr, not yet listening.
func New(addr string, engine Engine, logger *zap.Logger) *Server {
	return &Server{addr: addr, engine: engine, logger: logger}
}

// ListenAndServe binds addr and serves connections until the listener
// is closed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("server listening", zap.String("addr", s.addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	addr := conn.RemoteAddr().String()
	reader := bufio.NewReader(conn)

	for {
		req, err := protocol.ReadRequest(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("connection closed", zap.String("remote", addr), zap.Error(err))
			}
			return
		}

		resp := s.dispatch(req)
		if err := protocol.WriteResponse(conn, resp); err != nil {
			s.logger.Warn("failed to write response", zap.String("remote", addr), zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(req protocol.Request) protocol.Response {
	switch req.Command {
	case protocol.CmdGet:
		return s.doGet(req.Key)
	case protocol.CmdDelete:
		return s.doDelete(req.Key)
	case protocol.CmdInsert:
		return s.doInsert(req.Key, req.Value)
	case protocol.CmdUpdate:
		return s.doUpdate(req.Key, req.Value)
	default:
		return protocol.Response{Status: protocol.StatusError, Value: "unknown command"}
	}
}

func (s *Server) doGet(key string) protocol.Response {
	val, err := s.engine.Get(key)
	if errors.Is(err, lsm.ErrKeyNotFound) {
		return protocol.Response{Status: protocol.StatusNotFound}
	}
	if err != nil {
		return protocol.Response{Status: protocol.StatusError, Value: err.Error()}
	}
	return protocol.Response{Status: protocol.StatusOK, Value: val}
}

func (s *Server) doDelete(key string) protocol.Response {
	if _, err := s.engine.Get(key); errors.Is(err, lsm.ErrKeyNotFound) {
		s.logger.Debug("delete rejected", zap.String("key", key), zap.Error(ErrKeyNotExist))
		return protocol.Response{Status: protocol.StatusKeyNotExist}
	}
	if err := s.engine.Remove(key); err != nil {
		return protocol.Response{Status: protocol.StatusError, Value: err.Error()}
	}
	return protocol.Response{Status: protocol.StatusOK}
}

// doInsert fails if the key already holds a live value: Insert is
// create-only, matching spec §6's Insert/Update split.
func (s *Server) doInsert(key, value string) protocol.Response {
	if _, err := s.engine.Get(key); err == nil {
		s.logger.Debug("insert rejected", zap.String("key", key), zap.Error(ErrKeyExists))
		return protocol.Response{Status: protocol.StatusKeyExists}
	}
	if err := s.engine.Set(key, value); err != nil {
		return protocol.Response{Status: protocol.StatusError, Value: err.Error()}
	}
	return protocol.Response{Status: protocol.StatusOK}
}

// doUpdate fails if the key has no live value: Update never creates.
func (s *Server) doUpdate(key, value string) protocol.Response {
	if _, err := s.engine.Get(key); errors.Is(err, lsm.ErrKeyNotFound) {
		s.logger.Debug("update rejected", zap.String("key", key), zap.Error(ErrKeyNotExist))
		return protocol.Response{Status: protocol.StatusKeyNotExist}
	}
	if err := s.engine.Set(key, value); err != nil {
		return protocol.Response{Status: protocol.StatusError, Value: err.Error()}
	}
	return protocol.Response{Status: protocol.StatusOK}
}
