package ledger

import "errors"

// Revert errors. Every failed mutating operation leaves the ledger untouched
// and surfaces exactly one of these.
var (
	ErrNotOwner           = errors.New("caller is not the ledger owner")
	ErrEmptyCandidateName = errors.New("candidate name is empty")
	ErrNoCandidates       = errors.New("no candidates exist")
	ErrVotingAlreadyOpen  = errors.New("voting is already open")
	ErrVotingClosed       = errors.New("voting is closed")
	ErrAlreadyRegistered  = errors.New("address is already registered")
	ErrNotRegistered      = errors.New("address is not registered")
	ErrAlreadyVoted       = errors.New("address has already voted")
	ErrInvalidCandidate   = errors.New("candidate id out of range")
)

// Revert reason codes carried over the submission transport. They map 1:1
// onto the sentinel errors above; a transport revert must surface one of
// these, never a generic failure.
const (
	ReasonNotOwner          = "NotOwner"
	ReasonEmptyName         = "EmptyName"
	ReasonNoCandidates      = "NoCandidates"
	ReasonVotingAlreadyOpen = "VotingAlreadyOpen"
	ReasonVotingClosed      = "VotingClosed"
	ReasonAlreadyRegistered = "AlreadyRegistered"
	ReasonNotRegistered     = "NotRegistered"
	ReasonAlreadyVoted      = "AlreadyVoted"
	ReasonInvalidCandidate  = "InvalidCandidate"
)

var errByReason = map[string]error{
	ReasonNotOwner:          ErrNotOwner,
	ReasonEmptyName:         ErrEmptyCandidateName,
	ReasonNoCandidates:      ErrNoCandidates,
	ReasonVotingAlreadyOpen: ErrVotingAlreadyOpen,
	ReasonVotingClosed:      ErrVotingClosed,
	ReasonAlreadyRegistered: ErrAlreadyRegistered,
	ReasonNotRegistered:     ErrNotRegistered,
	ReasonAlreadyVoted:      ErrAlreadyVoted,
	ReasonInvalidCandidate:  ErrInvalidCandidate,
}

var reasonByErr = func() map[error]string {
	m := make(map[error]string, len(errByReason))
	for reason, err := range errByReason {
		m[err] = reason
	}
	return m
}()

// RevertError is the transport-level form of a ledger revert.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string { return "ledger revert: " + e.Reason }

// ReasonFor translates a ledger sentinel into its wire reason code, or ""
// when err is not a named revert.
func ReasonFor(err error) string {
	for sentinel, reason := range reasonByErr {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return ""
}

// ErrForReason translates a wire reason code back into the matching sentinel.
// Unknown reasons come back as a RevertError so nothing gets silently
// flattened into a generic failure.
func ErrForReason(reason string) error {
	if err, ok := errByReason[reason]; ok {
		return err
	}
	return &RevertError{Reason: reason}
}
