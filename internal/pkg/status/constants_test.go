package status

import (
	"testing"
)

func TestMedia_String(t *testing.T) {
	tests := []struct {
		name string
		st   Media
		want string
	}{
		{st: Uploaded, want: "uploaded"},
		{st: Transcribing, want: "transcribing"},
		{st: Transcribed, want: "transcribed"},
		{st: MediaError, want: "error"},
		{st: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Media.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMediaFrom(t *testing.T) {
	tests := []struct {
		name string
		args string
		want Media
	}{
		{args: "uploaded", want: Uploaded},
		{args: "transcribing", want: Transcribing},
		{args: "transcribed", want: Transcribed},
		{args: "error", want: MediaError},
		{args: "olia", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MediaFrom(tt.args); got != tt.want {
				t.Errorf("MediaFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStep_String(t *testing.T) {
	tests := []struct {
		name string
		st   Step
		want string
	}{
		{st: StepUpload, want: "upload"},
		{st: StepChecking, want: "checking"},
		{st: StepTranscribing, want: "transcribing"},
		{st: StepSuccess, want: "success"},
		{st: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Step.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
