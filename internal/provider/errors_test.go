package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindOther},
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("request: %w", context.DeadlineExceeded), KindTimeout},
		{errors.New("Client.Timeout exceeded while awaiting headers"), KindTimeout},
		{errors.New("invalid API key provided"), KindAuth},
		{errors.New("401 Unauthorized"), KindAuth},
		{errors.New("authentication failed"), KindAuth},
		{errors.New("connection reset by peer"), KindOther},
		{errors.New("model overloaded"), KindOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
