package utils

import (
	"testing"
)

func TestMakeValidateFileName(t *testing.T) {
	type args struct {
		ID       string
		fileName string
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{name: "OK", args: args{ID: "2", fileName: "olia.mp4"}, want: "2/olia.mp4", wantErr: false},
		{name: "drops dir", args: args{ID: "2", fileName: "./olia.mp4"}, want: "2/olia.mp4", wantErr: false},
		{name: "drops parent", args: args{ID: "2", fileName: "./../olia.mp4"}, want: "2/olia.mp4", wantErr: false},
		{name: "lowers ext", args: args{ID: "2", fileName: "./1/Talk.MP4"}, want: "2/Talk.mp4", wantErr: false},
		{name: "replaces space", args: args{ID: "2", fileName: "./1/Talk one.MP4"}, want: "2/Talk_one.mp4", wantErr: false},
		{name: "no ID", args: args{ID: "", fileName: "./1/Talk one.MP4"}, want: "Talk_one.mp4", wantErr: false},
		{name: "fails", args: args{ID: "2", fileName: "."}, want: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeValidateFileName(tt.args.ID, tt.args.fileName)
			if (err != nil) != tt.wantErr {
				t.Errorf("MakeValidateFileName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MakeValidateFileName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportMediaExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".mp4", want: true},
		{ext: ".m4a", want: true},
		{ext: ".txt", want: false},
		{ext: ".ogg", want: false},
		{ext: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportMediaExt(tt.ext); got != tt.want {
				t.Errorf("SupportMediaExt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAudioExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".m4a", want: true},
		{ext: ".mp4", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := IsAudioExt(tt.ext); got != tt.want {
				t.Errorf("IsAudioExt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportMimeType(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{mime: "video/mp4", want: true},
		{mime: "audio/mpeg", want: true},
		{mime: "Audio/WAV", want: true},
		{mime: "text/plain", want: false},
		{mime: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := SupportMimeType(tt.mime); got != tt.want {
				t.Errorf("SupportMimeType() = %v, want %v", got, tt.want)
			}
		})
	}
}
