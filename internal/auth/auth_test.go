package auth

import "testing"

func TestVerify(t *testing.T) {
	hash := HashSecret("correct horse")

	if !Verify("correct horse", hash) {
		t.Error("correct secret rejected")
	}
	if Verify("battery staple", hash) {
		t.Error("wrong secret accepted")
	}
	if Verify("", hash) {
		t.Error("empty secret accepted")
	}
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer hunter2", "hunter2", false},
		{"Bearer ", "", true},
		{"hunter2", "", true},
		{"Basic aHVudGVyMg==", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBearer(tt.header)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBearer(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
