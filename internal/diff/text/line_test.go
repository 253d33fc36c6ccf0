package text

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineDiffCalculate(t *testing.T) {
	type in struct {
		first  string
		second string
	}

	type want struct {
		first  string
		second float64
	}

	tests := []struct {
		name     string
		receiver Differ
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewLineDiff(),
			in{
				"a\nb\nc",
				"a\nb\nc",
			},
			want{
				"  a\n  b\n  c",
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewLineDiff(),
			in{
				"a\nb\nc",
				"a\nx\nc",
			},
			want{
				"  a\n- b\n+ x\n  c",
				2.0 / 6.0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewLineDiff(),
			in{
				"",
				"a\nb",
			},
			want{
				"+ a\n+ b",
				1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewLineDiff(),
			in{
				"",
				"",
			},
			want{
				"",
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewStructureDiff(),
			in{
				`{"w":100,"h":40,"type":"FRAME"}`,
				`{"w":120,"h":40,"type":"FRAME"}`,
			},
			want{
				"  {\n-   \"w\": 100,\n+   \"w\": 120,\n    \"h\": 40,\n    \"type\": \"FRAME\"\n  }",
				2.0 / 10.0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			NewStructureDiff(),
			in{
				"not json",
				"not json",
			},
			want{
				"  not json",
				0,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := receiver.Calculate([]byte(in.first), []byte(in.second))
			if err != nil {
				t.Fatalf("Calculate() returned error: %v", err)
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
