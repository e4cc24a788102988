package domain

// CredentialStatus is the closed set of credential lifecycle states.
type CredentialStatus string

const (
	CredentialDraft             CredentialStatus = "DRAFT"
	CredentialPendingValidation CredentialStatus = "PENDING_VALIDATION"
	CredentialInvitationSent    CredentialStatus = "INVITATION_SENT"
	CredentialContractPending   CredentialStatus = "CONTRACT_PENDING"
	CredentialContractSigned    CredentialStatus = "CONTRACT_SIGNED"
	CredentialActive            CredentialStatus = "ACTIVE"
	CredentialBlocked           CredentialStatus = "BLOCKED"
)

// Valid reports whether s is a known credential status.
func (s CredentialStatus) Valid() bool {
	switch s {
	case CredentialDraft, CredentialPendingValidation, CredentialInvitationSent,
		CredentialContractPending, CredentialContractSigned, CredentialActive, CredentialBlocked:
		return true
	}
	return false
}

// CredentialTransitions is an allow-list of legal status transitions.
// Deployments that need admin overrides can supply their own table.
type CredentialTransitions map[CredentialStatus][]CredentialStatus

// Allows reports whether the table permits a from -> to transition.
func (t CredentialTransitions) Allows(from, to CredentialStatus) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DefaultCredentialTransitions returns the forward-biased default table:
// the ordered onboarding sequence plus BLOCKED from any non-ACTIVE state.
// Backward and skip transitions are rejected.
func DefaultCredentialTransitions() CredentialTransitions {
	return CredentialTransitions{
		CredentialDraft:             {CredentialPendingValidation, CredentialBlocked},
		CredentialPendingValidation: {CredentialInvitationSent, CredentialBlocked},
		CredentialInvitationSent:    {CredentialContractPending, CredentialBlocked},
		CredentialContractPending:   {CredentialContractSigned, CredentialBlocked},
		CredentialContractSigned:    {CredentialActive, CredentialBlocked},
		CredentialActive:            {},
		CredentialBlocked:           {},
	}
}

// RequestStatus is the closed set of partnership request states.
// PENDING is the only non-terminal state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
	RequestExpired   RequestStatus = "EXPIRED"
)

// Terminal reports whether the request can no longer change state.
func (s RequestStatus) Terminal() bool {
	return s != RequestPending
}

// RelationshipStatus is the closed set of relationship states.
type RelationshipStatus string

const (
	RelationshipContractPending RelationshipStatus = "CONTRACT_PENDING"
	RelationshipPending         RelationshipStatus = "PENDING"
	RelationshipActive          RelationshipStatus = "ACTIVE"
	RelationshipSuspended       RelationshipStatus = "SUSPENDED"
	RelationshipTerminated      RelationshipStatus = "TERMINATED"
)

// relationshipTransitions is fixed: TERMINATED is absorbing.
var relationshipTransitions = map[RelationshipStatus][]RelationshipStatus{
	RelationshipContractPending: {RelationshipActive, RelationshipTerminated},
	RelationshipPending:         {RelationshipActive, RelationshipTerminated},
	RelationshipActive:          {RelationshipSuspended, RelationshipTerminated},
	RelationshipSuspended:       {RelationshipActive, RelationshipTerminated},
	RelationshipTerminated:      {},
}

// CanTransition reports whether from -> to is a legal relationship transition.
func (s RelationshipStatus) CanTransition(to RelationshipStatus) bool {
	for _, next := range relationshipTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ContractStatus is the closed set of contract states.
type ContractStatus string

const (
	ContractDraft             ContractStatus = "DRAFT"
	ContractSentForSignature  ContractStatus = "SENT_FOR_SIGNATURE"
	ContractRevisionRequested ContractStatus = "REVISION_REQUESTED"
	ContractSigned            ContractStatus = "SIGNED"
	ContractRejected          ContractStatus = "REJECTED"
)

// RevisionStatus tracks a contract revision request/response pair.
type RevisionStatus string

const (
	RevisionPending  RevisionStatus = "PENDING"
	RevisionAccepted RevisionStatus = "ACCEPTED"
	RevisionRejected RevisionStatus = "REJECTED"
)

// DocumentStatus is the derived compliance state of a supplier document.
// It is never stored; see the compliance package.
type DocumentStatus string

const (
	DocumentPending      DocumentStatus = "PENDING"
	DocumentValid        DocumentStatus = "VALID"
	DocumentExpiringSoon DocumentStatus = "EXPIRING_SOON"
	DocumentExpired      DocumentStatus = "EXPIRED"
)
