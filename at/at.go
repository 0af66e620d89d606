// Package at provides the standard AT-command vocabulary on top of the chat
// engine: response and URC constants, stock match tables, and canned scripts
// for common command exchanges.
package at

const (
	// Terminal Control
	CRLF = "\r\n"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg         = "+CMTI:"
	UrcMessageReport  = "+CDSI:"
	UrcSignalStrength = "+CSQ:"
	UrcNetworkReg     = "+CREG:"
	UrcRing           = "RING"
)
