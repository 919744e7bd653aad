package constants

// Phase is the lifecycle phase of an operator session.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseUploading   Phase = "UPLOADING"
	PhaseReady       Phase = "READY"
	PhaseQuerying    Phase = "QUERYING"
	PhaseCompleted   Phase = "COMPLETED"
	PhaseFailed      Phase = "FAILED"
	PhaseStoring     Phase = "STORING"
	PhaseStored      Phase = "STORED"
	PhaseStoreFailed Phase = "STORE_FAILED"
)
