package swarm

import "testing"

func TestQuorumResolve(t *testing.T) {
	cases := []struct {
		name  string
		q     Quorum
		rf    int
		want  int
	}{
		{"one", Quorum{Kind: QuorumOne}, 20, 1},
		{"majority odd replication", Quorum{Kind: QuorumMajority}, 5, 3},
		{"majority even replication", Quorum{Kind: QuorumMajority}, 20, 11},
		{"all", Quorum{Kind: QuorumAll}, 20, 20},
		{"n within range", Quorum{Kind: QuorumN, Count: 4}, 20, 4},
		{"n clamps below one", Quorum{Kind: QuorumN, Count: 0}, 20, 1},
		{"n clamps negative", Quorum{Kind: QuorumN, Count: -3}, 20, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.q.Resolve(c.rf); got != c.want {
				t.Errorf("Resolve(%d) = %d, want %d", c.rf, got, c.want)
			}
		})
	}
}

func TestRecordKeyIsNamespaced(t *testing.T) {
	k := recordKey([]byte{0xde, 0xad, 0xbe, 0xef})
	want := "/netabase/deadbeef"
	if k != want {
		t.Errorf("recordKey = %q, want %q", k, want)
	}
}

func TestAcceptAllValidatorAcceptsAnything(t *testing.T) {
	v := acceptAllValidator{}
	if err := v.Validate("/netabase/anything", []byte("payload")); err != nil {
		t.Errorf("Validate returned error: %v", err)
	}
	idx, err := v.Select("/netabase/anything", [][]byte{[]byte("a"), []byte("b")})
	if err != nil {
		t.Errorf("Select returned error: %v", err)
	}
	if idx != 0 {
		t.Errorf("Select = %d, want 0", idx)
	}
}
