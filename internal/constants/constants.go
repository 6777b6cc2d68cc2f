package constants

const (
	MaxRequestBytes          = 64 << 10
	ReadHeaderTimeoutSeconds = 10
	ShutdownTimeoutSeconds   = 10
)
