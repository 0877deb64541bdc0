package db

import "testing"

func TestIsPostgresDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want bool
	}{
		{"postgres://user:pw@localhost:5432/traceflow", true},
		{"postgresql://localhost/traceflow", true},
		{"host=localhost user=trace dbname=traceflow", true},
		{"traceflow.db", false},
		{"/var/lib/traceflow/data.db", false},
		{"file:test?mode=memory&cache=shared", false},
	}
	for _, c := range cases {
		if got := IsPostgresDSN(c.dsn); got != c.want {
			t.Errorf("%q: expected %v, got %v", c.dsn, c.want, got)
		}
	}
}

func TestNormalizeDSN(t *testing.T) {
	if got := NormalizeDSN(`  "traceflow.db" `); got != "traceflow.db" {
		t.Errorf("expected traceflow.db, got %q", got)
	}
	got := NormalizeDSN("host=localhost  user=trace dbname=traceflow")
	want := "host=localhost user=trace dbname=traceflow sslmode=disable"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	url := "postgres://user:pw@localhost/traceflow"
	if got := NormalizeDSN(url); got != url {
		t.Errorf("url form must pass through, got %q", got)
	}
}
