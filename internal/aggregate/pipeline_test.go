package aggregate

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"mailsift/internal/classify"
	"mailsift/internal/domain"
)

const testYear = 2024

func testLog() string {
	lines := []string{
		"Oct 23 04:02:17 mail postfix/postscreen[1234]: CONNECT from [1.2.3.4]:54321 to [5.6.7.8]:25",
		"Oct 23 04:02:18 mail postfix/postscreen[1234]: DNSBL rank 5 for [1.2.3.4]:54321",
		"Oct 23 04:02:19 mail postfix/postscreen[1234]: PASS NEW [1.2.3.4]:54321",
		"Oct 23 04:03:00 mail postfix/postscreen[1234]: CONNECT from [10.0.0.1]:2525 to [5.6.7.8]:25",
		"Oct 23 04:03:01 mail postfix/postscreen[1234]: HANGUP after 1.2 from [10.0.0.1]:2525 in tests before 220",
		"Oct 23 04:03:05 mail postfix/dovecot[99]: not a postscreen line",
		"Oct 23 04:04:00 mail postfix/postscreen[1234]: PREGREET 11 after 0.1 from [172.16.0.9]:1111: EHLO x",
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestPipelineSequentialRun(t *testing.T) {
	pipe := NewPipeline(classify.New(false, testYear), nil, "", 1)
	clients, err := pipe.Run(strings.NewReader(testLog()))
	if err != nil {
		t.Fatalf("Run returned error %v", err)
	}

	if len(clients) != 2 {
		t.Fatalf("Run returned %d clients, want 2", len(clients))
	}

	first := clients["1.2.3.4"]
	if first == nil {
		t.Fatal("no state for 1.2.3.4")
	}
	if got := first.Actions[domain.KindDnsblTriggered]; got != 1 {
		t.Fatalf("DNSBL count is %d, want 1", got)
	}
	if len(first.DNSBLRanks) != 1 || first.DNSBLRanks[0] != 5 {
		t.Fatalf("DNSBLRanks is %v, want [5]", first.DNSBLRanks)
	}

	// PREGREET without a prior CONNECT must not create state.
	if _, ok := clients["172.16.0.9"]; ok {
		t.Fatal("client created for IP without prior CONNECT")
	}
}

func TestPipelineShardedMatchesSequential(t *testing.T) {
	var input strings.Builder
	for i := 0; i < 50; i++ {
		ip := fmt.Sprintf("10.0.%d.%d", i/10, i%10)
		fmt.Fprintf(&input, "Oct 23 04:02:17 mail postfix/postscreen[1]: CONNECT from [%s]:1000 to [5.6.7.8]:25\n", ip)
		fmt.Fprintf(&input, "Oct 23 04:02:18 mail postfix/postscreen[1]: HANGUP after 1.2 from [%s]:1000 in tests\n", ip)
	}

	sequential, err := NewPipeline(classify.New(false, testYear), nil, "", 1).
		Run(strings.NewReader(input.String()))
	if err != nil {
		t.Fatalf("sequential Run returned error %v", err)
	}

	sharded, err := NewPipeline(classify.New(false, testYear), nil, "", 4).
		Run(strings.NewReader(input.String()))
	if err != nil {
		t.Fatalf("sharded Run returned error %v", err)
	}

	if len(sharded) != len(sequential) {
		t.Fatalf("sharded Run returned %d clients, want %d", len(sharded), len(sequential))
	}
	for ip, want := range sequential {
		got, ok := sharded[ip]
		if !ok {
			t.Fatalf("sharded Run missing client %s", ip)
		}
		if got.Connects() != want.Connects() {
			t.Fatalf("client %s connects %d, want %d", ip, got.Connects(), want.Connects())
		}
		if got.Actions[domain.KindHangup] != want.Actions[domain.KindHangup] {
			t.Fatalf("client %s hangups %d, want %d", ip, got.Actions[domain.KindHangup], want.Actions[domain.KindHangup])
		}
	}
}

func TestPipelineIPFilter(t *testing.T) {
	pipe := NewPipeline(classify.New(false, testYear), nil, "1.2.3.4", 1)
	clients, err := pipe.Run(strings.NewReader(testLog()))
	if err != nil {
		t.Fatalf("Run returned error %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("Run returned %d clients, want 1", len(clients))
	}
	if _, ok := clients["1.2.3.4"]; !ok {
		t.Fatal("filtered run lost the matching client")
	}
}

func TestPipelineAbortsOnFutureTimestamp(t *testing.T) {
	pipe := NewPipeline(classify.New(false, time.Now().Year()+1), nil, "", 2)
	_, err := pipe.Run(strings.NewReader(testLog()))
	if err == nil {
		t.Fatal("Run accepted future timestamps, want error")
	}
}
