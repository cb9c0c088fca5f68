package protocol

// Server-to-client lines. Everything the relay writes goes through one
// of these so the wire format lives in a single place.

const (
	ansiGreen = "[32m"
	ansiReset = "[0m"
)

func RegistrationSuccess() string {
	return "REGISTRATION SUCCESS"
}

func RegistrationFailed(reason string) string {
	return "REGISTRATION FAILED: " + reason
}

func LoginSuccess() string {
	return "SUCCESS"
}

func LoginFailed(reason string) string {
	return "FAILED: " + reason
}

// BroadcastLine is the relay form of a PUBLIC message.
func BroadcastLine(sender, body string) string {
	return sender + ": " + body
}

// PrivateLine is the relay form of a directed message.
func PrivateLine(sender, body string) string {
	return KindPrivate + " " + sender + ": " + body
}

// ReplayLine renders one drained mailbox entry. The sender and body are
// wrapped in ANSI green so replayed history stands out on the client.
func ReplayLine(sender, body string) string {
	return "PREVIOUS MESSAGE: " + ansiGreen + sender + ": " + body + ansiReset
}

func JoinedLine(user string) string {
	return "SERVER: " + user + " has joined the chat!"
}

func LeftLine(user string) string {
	return "SERVER: " + user + " has left the chat!"
}

func UserNotFoundLine(user string) string {
	return "SERVER: User " + user + " not found."
}

func UnrecognizedLine() string {
	return "SERVER: Unrecognized command."
}

func ShutdownLine() string {
	return "SERVER: server is shutting down."
}
