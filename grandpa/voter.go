package grandpa

// VoterCommandKind tags which VoterCommand variant a value holds.
type VoterCommandKind int

const (
	// VoterCommandPause instructs the voter to pause: a forced change is
	// scheduled after a period of inactivity.
	VoterCommandPause VoterCommandKind = iota
	// VoterCommandChangeAuthorities rebases the voter onto a new authority set.
	VoterCommandChangeAuthorities
	// VoterCommandForwarded wraps a command produced by the Finalizer
	// collaborator and simply relayed to the voter.
	VoterCommandForwarded
)

func (k VoterCommandKind) String() string {
	switch k {
	case VoterCommandPause:
		return "pause"
	case VoterCommandChangeAuthorities:
		return "change_authorities"
	case VoterCommandForwarded:
		return "forwarded"
	default:
		return "unknown"
	}
}

// VoterCommand is a control signal emitted to the finality voter task.
type VoterCommand struct {
	Kind      VoterCommandKind
	Reason    string          // set when Kind == VoterCommandPause
	NewSet    NewAuthoritySet // set when Kind == VoterCommandChangeAuthorities
	Forwarded any             // set when Kind == VoterCommandForwarded
}

// PauseCommand builds a Pause command.
func PauseCommand(reason string) VoterCommand {
	return VoterCommand{Kind: VoterCommandPause, Reason: reason}
}

// ChangeAuthoritiesCommand builds a ChangeAuthorities command.
func ChangeAuthoritiesCommand(newSet NewAuthoritySet) VoterCommand {
	return VoterCommand{Kind: VoterCommandChangeAuthorities, NewSet: newSet}
}

// ForwardedCommand wraps a command produced by the Finalizer collaborator.
func ForwardedCommand(cmd any) VoterCommand {
	return VoterCommand{Kind: VoterCommandForwarded, Forwarded: cmd}
}

// VoterCommandSender is the producing half of the voter-command channel:
// many producers, one consumer (the voter task). Go channels are bounded, so
// "unbounded" is approximated with a generously sized buffer and a
// non-blocking send. A full buffer means the voter task has fallen badly
// behind or exited, which is never fatal to the importer, only logged and
// counted.
type VoterCommandSender struct {
	ch chan VoterCommand
}

// NewVoterCommandChannel returns a sender and the receive-only channel the
// voter task consumes from.
func NewVoterCommandChannel(buffer int) (*VoterCommandSender, <-chan VoterCommand) {
	ch := make(chan VoterCommand, buffer)
	return &VoterCommandSender{ch: ch}, ch
}

// Send attempts a non-blocking send, returning false (and logging/counting a
// non-fatal failure) if the channel's buffer is full or the sender has no
// channel. A send whose receiver has gone still succeeds while buffer space
// remains.
func (s *VoterCommandSender) Send(cmd VoterCommand) bool {
	select {
	case s.ch <- cmd:
		voterCommandsSentTotal.WithLabelValues(cmd.Kind.String()).Inc()
		return true
	default:
		voterCommandSendFailuresTotal.Inc()
		log.WithField("kind", cmd.Kind.String()).Warn("voter command channel send failed, dropping (voter may have shut down)")
		return false
	}
}
