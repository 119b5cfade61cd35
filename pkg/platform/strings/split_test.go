package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "only separators", input: " , ,", want: nil},
		{name: "single", input: "broker:9092", want: []string{"broker:9092"}},
		{name: "trims and drops blanks", input: " a:9092, ,b:9092 ", want: []string{"a:9092", "b:9092"}},
		{name: "drops repeats keeping order", input: "b,a,b,a", want: []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.input, ","))
		})
	}
}
