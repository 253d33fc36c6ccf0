package text

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStructureDiffCalculate(t *testing.T) {
	type in struct {
		first  string
		second string
	}

	type want struct {
		first  string
		second float64
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"w":1,"h":2}`,
				` {"w": 1, "h": 3}`,
			},
			want{
				"  {\n    \"w\": 1,\n-   \"h\": 2\n+   \"h\": 3\n  }",
				0.25,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"type":"FRAME"}`,
				`{"type":"FRAME"}`,
			},
			want{
				"  {\n    \"type\": \"FRAME\"\n  }",
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"abc",
				"abd",
			},
			want{
				"- abc\n+ abd",
				1,
			},
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := NewStructureDiff().Calculate([]byte(in.first), []byte(in.second))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(want.first, string(got.Diff)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.second, got.DiffAmount); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
