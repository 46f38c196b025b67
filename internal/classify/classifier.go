package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"mailsift/internal/domain"
)

// marker selects postscreen lines; everything else is ignored.
const marker = "/postscreen["

const (
	syslogCursor  = 5 // Mon DD HH:MM:SS host process[pid]: ACTION ...
	rfc3339Cursor = 3 // TIMESTAMP host process[pid]: ACTION ...

	syslogLayout = "2006 Jan 2 15:04:05"
)

var ipPattern = regexp.MustCompile(
	`((?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?))`)

// Classifier turns raw log lines into events. It is safe for concurrent use
// once constructed.
type Classifier struct {
	rfc3339 bool
	year    int
	cursor  int
	now     time.Time
	loc     *time.Location
}

// New builds a classifier. year supplies the missing year of syslog
// timestamps and is ignored in RFC3339 mode.
func New(rfc3339 bool, year int) *Classifier {
	cursor := syslogCursor
	if rfc3339 {
		cursor = rfc3339Cursor
	}
	return &Classifier{
		rfc3339: rfc3339,
		year:    year,
		cursor:  cursor,
		now:     time.Now(),
		loc:     time.Local,
	}
}

// Classify parses one line. The bool is false when the line is not a
// recognizable postscreen event; an error is returned only for timestamp
// failures, which callers must treat as fatal.
func (c *Classifier) Classify(line string) (domain.Event, bool, error) {
	if !strings.Contains(line, marker) {
		return domain.Event{}, false, nil
	}

	fields := splitFields(line, c.cursor+2)
	if len(fields) <= c.cursor {
		return domain.Event{}, false, nil
	}

	remainder := ""
	if len(fields) > c.cursor+1 {
		remainder = fields[c.cursor+1]
	}

	kind, ok := resolveKind(fields[c.cursor], remainder)
	if !ok {
		return domain.Event{}, false, nil
	}

	ts, err := c.parseTimestamp(fields)
	if err != nil {
		return domain.Event{}, false, err
	}

	ip := domain.SentinelIP
	if match := ipPattern.FindString(remainder); match != "" {
		ip = match
	}

	return domain.Event{
		Timestamp: ts,
		SourceIP:  ip,
		Kind:      kind,
		Detail:    remainder,
	}, true, nil
}

func (c *Classifier) parseTimestamp(fields []string) (int64, error) {
	var (
		t   time.Time
		err error
	)
	if c.rfc3339 {
		t, err = time.Parse(time.RFC3339, fields[0])
	} else {
		raw := fmt.Sprintf("%d %s %s %s", c.year, fields[0], fields[1], fields[2])
		t, err = time.ParseInLocation(syslogLayout, raw, c.loc)
	}
	if err != nil {
		return 0, fmt.Errorf("classify: parse timestamp: %w", err)
	}
	if t.After(c.now) {
		return 0, fmt.Errorf("classify: timestamp %s is in the future, check that year %d is the year the logs were written",
			t.Format(time.RFC3339), c.year)
	}
	return t.Unix(), nil
}

// resolveKind maps the action token plus its remainder onto a kind. The
// sub-pattern order matches observed verdict frequency; the patterns are
// mutually exclusive per token.
func resolveKind(token, remainder string) (domain.ActionKind, bool) {
	switch token {
	case "CONNECT":
		return domain.KindConnect, true
	case "PASS":
		if strings.HasPrefix(remainder, "OLD") {
			return domain.KindPassOld, true
		}
		if strings.HasPrefix(remainder, "NEW") {
			return domain.KindPassNew, true
		}
	case "NOQUEUE:":
		switch {
		case strings.Contains(remainder, "too many connections"):
			return domain.KindTooManyConnections, true
		case strings.Contains(remainder, "all server ports busy"):
			return domain.KindServerPortsBusy, true
		case strings.Contains(remainder, "450 4.3.2 Service currently unavailable"):
			return domain.KindGraylistReconnectRejection, true
		}
	case "HANGUP":
		return domain.KindHangup, true
	case "DNSBL":
		return domain.KindDnsblTriggered, true
	case "PREGREET":
		return domain.KindPregreet, true
	case "COMMAND":
		switch {
		case strings.HasPrefix(remainder, "PIPELINING"):
			return domain.KindCommandPipelining, true
		case strings.HasPrefix(remainder, "TIME LIMIT"):
			return domain.KindCommandTimeLimit, true
		case strings.HasPrefix(remainder, "COUNT LIMIT"):
			return domain.KindCommandCountLimit, true
		case strings.HasPrefix(remainder, "LENGTH LIMIT"):
			return domain.KindCommandLengthLimit, true
		}
	case "WHITELISTED":
		return domain.KindWhitelisted, true
	case "BLACKLISTED":
		return domain.KindBlacklisted, true
	case "BARE":
		if strings.HasPrefix(remainder, "NEWLINE") {
			return domain.KindBareNewline, true
		}
	case "NON-SMTP":
		if strings.HasPrefix(remainder, "COMMAND") {
			return domain.KindNonSMTPCommand, true
		}
	case "WHITELIST":
		if strings.HasPrefix(remainder, "VETO") {
			return domain.KindWhitelistVeto, true
		}
	}
	return 0, false
}

// splitFields splits on runs of whitespace into at most max fields, the last
// field keeping the untouched rest of the line.
func splitFields(s string, max int) []string {
	fields := make([]string, 0, max)
	i := 0
	for len(fields) < max-1 {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return fields
		}
		start := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		fields = append(fields, s[start:i])
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) {
		fields = append(fields, strings.TrimRight(s[i:], " \t\r\n"))
	}
	return fields
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
