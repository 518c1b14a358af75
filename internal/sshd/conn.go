package sshd

import (
	"net"

	"github.com/rs/zerolog"
)

// Config bundles everything a single connection needs: the host key and the
// one credential pair this server accepts (spec.md §6).
type Config struct {
	HostKey     HostKey
	Credentials Credentials
	Logger      zerolog.Logger
}

// HandleConnection is the connection driver (component K): a single
// straight-line function that calls the record layer, key exchange,
// authentication, and channel components in the strict order spec.md §4.8's
// state machine requires. Unlike the teacher's client mainLoop, there is no
// goroutine or channel dispatch here — spec.md §5 specifies a synchronous,
// single-threaded handler.
func HandleConnection(conn net.Conn, cfg Config) {
	defer conn.Close()
	log := cfg.Logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	t := NewTransport(conn)

	clientVersion, serverVersion, err := exchangeVersions(conn)
	if err != nil {
		log.Warn().Err(err).Msg("version exchange failed")
		sendDisconnect(t, err)
		return
	}
	log.Debug().Str("client_version", clientVersion).Msg("version exchange complete")

	if _, err := performKeyExchange(t, clientVersion, serverVersion, cfg.HostKey); err != nil {
		log.Warn().Err(err).Msg("key exchange failed")
		sendDisconnect(t, err)
		return
	}
	log.Debug().Msg("key exchange complete")

	if err := runServiceRequest(t); err != nil {
		log.Warn().Err(err).Msg("service request failed")
		sendDisconnect(t, err)
		return
	}

	if err := runAuthLoop(t, cfg.Credentials); err != nil {
		log.Warn().Err(err).Msg("authentication failed")
		sendDisconnect(t, err)
		return
	}
	log.Info().Msg("authentication succeeded")

	if err := runChannel(t); err != nil {
		log.Warn().Err(err).Msg("channel handling failed")
		sendDisconnect(t, err)
		return
	}
	log.Info().Msg("session closed cleanly")
}
