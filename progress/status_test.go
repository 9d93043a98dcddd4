package progress

import "testing"

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Count(PhasePreparing, SubNSlices, 400), "preparing:nSlices:400"},
		{Count(PhasePrinting, SubSlice, 37), "printing:slice:37"},
		{NewStatus(PhaseError, SubConnectionFail, ""), "error:connectionFail:"},
		{NewStatus(PhaseStopping, "", ""), "stopping::"},
		{Count(PhaseIdle, SubSlice, 0), "idle:slice:0"},
		{Destroy(), "destroy"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		token string
		want  Status
	}{
		{"printing:slice:37", Status{PhasePrinting, SubSlice, "37"}},
		{"stopping::", Status{Phase: PhaseStopping}},
		{"destroy", Destroy()},
		{"error:commandFailed:buildMove: ack timeout", Status{PhaseError, SubCommandFailed, "buildMove: ack timeout"}},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.token)
		if err != nil {
			t.Errorf("ParseStatus(%q) error = %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
		if got.String() != tt.token {
			t.Errorf("ParseStatus(%q).String() = %q", tt.token, got.String())
		}
	}

	for _, bad := range []string{"", "printing:slice"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Errorf("ParseStatus(%q) accepted", bad)
		}
	}
}

func TestStatusInt(t *testing.T) {
	n, err := Count(PhaseStopped, SubSlice, 399).Int()
	if err != nil || n != 399 {
		t.Errorf("Int() = %d, %v", n, err)
	}
}
