package recharge

// StartEvent is a session-start command, e.g. "/start yape_20".
type StartEvent struct {
	SessionID    string
	SenderHandle string
	Args         []string
}

// PhotoEvent carries an opaque reference to an uploaded payment proof.
type PhotoEvent struct {
	SessionID      string
	SenderHandle   string
	ImageReference string
}

// CommandEvent is any other slash command. Command has no leading "/".
type CommandEvent struct {
	SessionID    string
	SenderHandle string
	Command      string
	Args         []string
}
