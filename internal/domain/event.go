package domain

// SentinelIP is stored on events whose payload carries no valid IPv4 literal.
// Such events are still aggregated, under this shared key.
const SentinelIP = "999.999.999.999"

// ActionKind is the closed set of postscreen verdicts the classifier emits.
type ActionKind uint8

const (
	KindConnect ActionKind = iota
	KindPassOld
	KindPassNew
	KindTooManyConnections
	KindServerPortsBusy
	KindGraylistReconnectRejection
	KindHangup
	KindDnsblTriggered
	KindPregreet
	KindCommandPipelining
	KindCommandTimeLimit
	KindCommandCountLimit
	KindCommandLengthLimit
	KindWhitelisted
	KindBlacklisted
	KindBareNewline
	KindNonSMTPCommand
	KindWhitelistVeto

	kindCount
)

var kindNames = [kindCount]string{
	KindConnect:                    "CONNECT",
	KindPassOld:                    "PASS OLD",
	KindPassNew:                    "PASS NEW",
	KindTooManyConnections:         "NOQUEUE too many connections",
	KindServerPortsBusy:            "NOQUEUE all server ports busy",
	KindGraylistReconnectRejection: "NOQUEUE 450 deep protocol test reconnection",
	KindHangup:                     "HANGUP",
	KindDnsblTriggered:             "DNSBL",
	KindPregreet:                   "PREGREET",
	KindCommandPipelining:          "COMMAND PIPELINING",
	KindCommandTimeLimit:           "COMMAND TIME LIMIT",
	KindCommandCountLimit:          "COMMAND COUNT LIMIT",
	KindCommandLengthLimit:         "COMMAND LENGTH LIMIT",
	KindWhitelisted:                "WHITELISTED",
	KindBlacklisted:                "BLACKLISTED",
	KindBareNewline:                "BARE NEWLINE",
	KindNonSMTPCommand:             "NON-SMTP COMMAND",
	KindWhitelistVeto:              "WHITELIST VETO",
}

// Name returns the canonical counter label for the kind, matching the strings
// postscreen writes to the log.
func (k ActionKind) Name() string {
	if k >= kindCount {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// PunitiveKinds are the verdicts that mark a client as blocked for the
// country-level aggregates.
var PunitiveKinds = []ActionKind{
	KindBlacklisted,
	KindDnsblTriggered,
	KindPregreet,
	KindCommandPipelining,
	KindCommandTimeLimit,
	KindCommandCountLimit,
	KindCommandLengthLimit,
	KindBareNewline,
	KindNonSMTPCommand,
}

// Event is one classified postscreen log line.
type Event struct {
	Timestamp int64 // unix seconds
	SourceIP  string
	Kind      ActionKind
	Detail    string // raw remainder of the line after the action token
}
