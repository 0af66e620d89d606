package at

import (
	"i4.energy/across/modemchat/chat"
)

// ResponseOK matches the final "OK" result code.
func ResponseOK() chat.Match {
	return chat.Match{Pattern: OK}
}

// Aborts returns the standard abort table: any of the final error results
// terminates a running script with an abort outcome. The CME/CMS entries are
// prefix matches, so the error detail lands in the argument list.
func Aborts() []chat.Match {
	return []chat.Match{
		{Pattern: ERROR},
		{Pattern: CmeError, Separators: " "},
		{Pattern: CmsError, Separators: " "},
		{Pattern: NoCarrier},
		{Pattern: NoDialtone},
		{Pattern: Busy},
		{Pattern: NoAnswer},
	}
}

// Notification builds an unsolicited match for a URC prefix. Fields after
// the prefix are split on commas and spaces, e.g. "+CREG: 1,5" yields args
// ["+CREG: 1,5", "1", "5"].
func Notification(prefix string, cb chat.MatchCallback) chat.Match {
	return chat.Match{Pattern: prefix, Separators: ", ", Callback: cb}
}

// Notifications returns unsolicited matches for the URCs a typical cellular
// modem emits spontaneously, all dispatching to the same callback.
func Notifications(cb chat.MatchCallback) []chat.Match {
	return []chat.Match{
		Notification(UrcNewMsg, cb),
		Notification(UrcMessageReport, cb),
		Notification(UrcNetworkReg, cb),
		{Pattern: UrcRing, Callback: cb},
	}
}
