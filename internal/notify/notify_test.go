package notify_test

import (
	"design-diff/internal/notify"
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func line() string {
	_, _, l, _ := runtime.Caller(1)
	return fmt.Sprintf("L%d", l)
}

func TestMessages(t *testing.T) {
	type want struct {
		jira  string
		slack string
	}

	tests := []struct {
		name string
		in   notify.Comparison
		want want
	}{
		{
			line(),
			notify.Comparison{IssueKey: "DES-12", NodeName: "Checkout / Button", ChangedPercent: 12.3456, ReportURL: "https://diff.example.com/reports/abc"},
			want{
				"Visual Diff Published for Checkout / Button.\nChange: 12.35%\n[View Report|https://diff.example.com/reports/abc]",
				"*Visual Diff Update*\nIssue: DES-12\nNode: Checkout / Button\nChange: 12.35%\n<https://diff.example.com/reports/abc|Open Report>",
			},
		},
		{
			line(),
			notify.Comparison{IssueKey: "DES-1", NodeName: "Header", ChangedPercent: 0, ReportURL: "http://localhost/reports/x"},
			want{
				"Visual Diff Published for Header.\nChange: 0.00%\n[View Report|http://localhost/reports/x]",
				"*Visual Diff Update*\nIssue: DES-1\nNode: Header\nChange: 0.00%\n<http://localhost/reports/x|Open Report>",
			},
		},
		{
			line(),
			notify.Comparison{IssueKey: "DES-2", NodeName: "Card", ChangedPercent: 100, ReportURL: "u"},
			want{
				"Visual Diff Published for Card.\nChange: 100.00%\n[View Report|u]",
				"*Visual Diff Update*\nIssue: DES-2\nNode: Card\nChange: 100.00%\n<u|Open Report>",
			},
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(want.jira, notify.JiraComment(in)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.slack, notify.SlackMessage(in)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	if diff := cmp.Diff("slack API error (status 200): channel_not_found", (&notify.APIError{Service: "slack", StatusCode: 200, Code: "channel_not_found"}).Error()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("jira API error (status 404)", (&notify.APIError{Service: "jira", StatusCode: 404}).Error()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
