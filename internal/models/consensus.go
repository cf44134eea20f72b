package models

// ConsensusStatus classifies one round's verdict tallies.
type ConsensusStatus string

const (
	StatusConsensusApprove ConsensusStatus = "CONSENSUS_APPROVE"
	StatusConsensusReject  ConsensusStatus = "CONSENSUS_REJECT"
	StatusMajorityApprove  ConsensusStatus = "MAJORITY_APPROVE"
	StatusMajorityReject   ConsensusStatus = "MAJORITY_REJECT"
	StatusNoConsensus      ConsensusStatus = "NO_CONSENSUS"
	StatusUnclear          ConsensusStatus = "UNCLEAR"
)

func (s ConsensusStatus) Valid() bool {
	switch s {
	case StatusConsensusApprove, StatusConsensusReject, StatusMajorityApprove,
		StatusMajorityReject, StatusNoConsensus, StatusUnclear:
		return true
	}
	return false
}

// Terminal reports whether the status ends the session before the round
// budget is spent. Only full consensus terminates early.
func (s ConsensusStatus) Terminal() bool {
	return s == StatusConsensusApprove || s == StatusConsensusReject
}

// TerminationReasonUnanimous and TerminationReasonExhausted are the two
// normal-path session termination reasons recorded in the report.
const (
	TerminationReasonUnanimous = "unanimous"
	TerminationReasonExhausted = "max rounds exhausted"
)
