package sshd

import "github.com/eisbaw/nanosshd/internal/wire"

// Credentials is the compiled-in (or configured) username/password pair
// spec.md §6 describes as "not a configuration interface" in the reference,
// but which this implementation threads through explicitly rather than
// hardcoding, so cmd/nanosshd can set it from flags.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) matches(username, password string) bool {
	return username == c.Username && password == c.Password
}

// runServiceRequest handles spec.md §4.9's post-NEWKEYS service negotiation:
// the client must request "ssh-userauth" or the connection is rejected.
func runServiceRequest(t *Transport) error {
	payload, err := t.ReadPacket()
	if err != nil {
		return err
	}
	req, err := wire.ParseServiceRequest(payload)
	if err != nil {
		return ProtocolError{Detail: "malformed SERVICE_REQUEST"}
	}
	if req.ServiceName != "ssh-userauth" {
		return ServiceError{Detail: "unsupported service: " + req.ServiceName}
	}
	return t.WritePacket(wire.MarshalServiceAccept(req.ServiceName))
}

// runAuthLoop implements spec.md §4.9's authentication loop: only the
// "password" method is honored, and the loop continues on failure with no
// attempt limit at the spec level — this implementation caps it, which
// spec.md explicitly allows ("implementers MAY cap it").
const maxAuthAttempts = 20

func runAuthLoop(t *Transport, creds Credentials) error {
	for attempt := 0; attempt < maxAuthAttempts; attempt++ {
		payload, err := t.ReadPacket()
		if err != nil {
			return err
		}
		req, err := wire.ParseUserAuthRequest(payload)
		if err != nil {
			return ProtocolError{Detail: "malformed USERAUTH_REQUEST"}
		}

		if req.Method == "password" && creds.matches(req.User, req.Password) {
			return t.WritePacket(wire.MarshalUserAuthSuccess())
		}

		if err := t.WritePacket(wire.MarshalUserAuthFailure([]string{"password"}, false)); err != nil {
			return err
		}
	}
	return ProtocolError{Detail: "too many authentication attempts"}
}
