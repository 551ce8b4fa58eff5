package mirror

import "testing"

func TestWatchURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
		wantErr  bool
	}{
		{
			name:     "http",
			endpoint: "http://127.0.0.1:7681",
			want:     "ws://127.0.0.1:7681/ws",
		},
		{
			name:     "https with base",
			endpoint: "https://host.example/term/",
			want:     "wss://host.example/term/ws",
		},
		{
			name:     "ws already complete",
			endpoint: "ws://localhost:8080/ws",
			want:     "ws://localhost:8080/ws",
		},
		{
			name:     "missing scheme",
			endpoint: "localhost:8080",
			wantErr:  true,
		},
		{
			name:     "unsupported scheme",
			endpoint: "ftp://example.com",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WatchURL(tt.endpoint)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("WatchURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
