package protocol

import (
	"errors"
	"strings"
)

var (
	ErrEmptyLine      = errors.New("empty command line")
	ErrUnknownCommand = errors.New("unknown command keyword")
	ErrMissingFields  = errors.New("missing command fields")
)

// Command keywords as they appear on the wire.
const (
	KindRegister = "REGISTER"
	KindLogin    = "LOGIN"
	KindPublic   = "PUBLIC"
	KindPrivate  = "PRIVATE"
)

// Command is one decoded client request. Which fields are set depends
// on Kind: REGISTER/LOGIN carry User and Secret, PUBLIC carries Body,
// PRIVATE carries Recipient and Body.
type Command struct {
	Kind      string
	User      string
	Secret    string
	Recipient string
	Body      string
}

// Decode parses one newline-terminated line into a Command. The leading
// keyword selects the command; remaining fields are space-delimited. The
// final field of PUBLIC and PRIVATE consumes the rest of the line
// verbatim, so message bodies may contain spaces.
func Decode(line string) (*Command, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	keyword, rest, _ := strings.Cut(line, " ")
	switch keyword {
	case "":
		return nil, ErrEmptyLine

	case KindRegister, KindLogin:
		user, secret, ok := strings.Cut(rest, " ")
		if !ok || user == "" || secret == "" {
			return nil, ErrMissingFields
		}
		// Credentials are single tokens, so trailing fields do not fit.
		if strings.Contains(secret, " ") {
			return nil, ErrMissingFields
		}
		return &Command{Kind: keyword, User: user, Secret: secret}, nil

	case KindPublic:
		if rest == "" {
			return nil, ErrMissingFields
		}
		return &Command{Kind: KindPublic, Body: rest}, nil

	case KindPrivate:
		recipient, body, ok := strings.Cut(rest, " ")
		if !ok || recipient == "" || body == "" {
			return nil, ErrMissingFields
		}
		return &Command{Kind: KindPrivate, Recipient: recipient, Body: body}, nil

	default:
		return nil, ErrUnknownCommand
	}
}

// Encode renders a Command back into its wire form, newline included.
func Encode(cmd *Command) string {
	switch cmd.Kind {
	case KindRegister, KindLogin:
		return cmd.Kind + " " + cmd.User + " " + cmd.Secret + "\n"
	case KindPublic:
		return KindPublic + " " + cmd.Body + "\n"
	case KindPrivate:
		return KindPrivate + " " + cmd.Recipient + " " + cmd.Body + "\n"
	}
	return ""
}
