package sshd

import (
	"net"

	"github.com/rs/zerolog"
)

// Server is the serving loop (component M): it owns the listener and hands
// each accepted connection to HandleConnection in turn, grounded on the
// reference's main()'s "create socket, generate host key, loop accepting
// connections" structure. Unlike the reference, which handles exactly one
// connection, Serve loops indefinitely by default; Once restricts it to a
// single connection, matching spec.md §6's "single connection (reference),
// optional loop."
type Server struct {
	Addr        string
	HostKey     HostKey
	Credentials Credentials
	Logger      zerolog.Logger
	Once        bool
}

// Serve listens on s.Addr and handles connections until the listener fails
// or (if s.Once) after the first connection completes.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.Logger.Info().Str("addr", s.Addr).Msg("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.Logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("accepted connection")

		cfg := Config{HostKey: s.HostKey, Credentials: s.Credentials, Logger: s.Logger}
		if s.Once {
			HandleConnection(conn, cfg)
			return nil
		}
		HandleConnection(conn, cfg)
	}
}
