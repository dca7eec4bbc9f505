package constants

import "time"

const (
	AppName    = "bridge-client"
	WalletFile = "wallet.json"

	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// Coordinator task polling.
	DefaultPollInterval       = 5 * time.Second
	DefaultPollDeadline       = 120 * time.Second
	DefaultInstructionTimeout = 120 // seconds, sent with each instruction

	// Receipt polling after a write.
	ReceiptInitialDelay = 750 * time.Millisecond
	ReceiptMaxDelay     = 3 * time.Second
	ReceiptTimeout      = 3 * time.Minute
)
