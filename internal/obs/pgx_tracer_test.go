package obs

import (
	"strings"
	"testing"
)

func TestStatementOperation(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{sql: "  select id from invoices", want: "SELECT"},
		{sql: "UPDATE invoices SET status = $1", want: "UPDATE"},
		{sql: "", want: ""},
	}
	for _, tc := range cases {
		if got := statementOperation(tc.sql); got != tc.want {
			t.Fatalf("statementOperation(%q) = %q, want %q", tc.sql, got, tc.want)
		}
	}
}

func TestTruncateSQL(t *testing.T) {
	long := "SELECT " + strings.Repeat("x", 400)
	got := truncateSQL(long)
	if len(got) != maxStatementLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation length %d", len(got))
	}
	if truncateSQL(" SELECT 1 ") != "SELECT 1" {
		t.Fatal("short statements must only be trimmed")
	}
}
