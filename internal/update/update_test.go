package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func releaseServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		current string
		want    string
	}{
		{"newer", http.StatusOK, `{"tag_name":"v1.2.0","html_url":"https://github.com/x/releases/v1.2.0"}`, "1.1.0", "1.2.0"},
		{"same", http.StatusOK, `{"tag_name":"v1.1.0"}`, "v1.1.0", ""},
		{"no tag", http.StatusOK, `{}`, "1.1.0", ""},
		{"not found", http.StatusNotFound, `{}`, "1.1.0", ""},
		{"garbage", http.StatusOK, `not json`, "1.1.0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(context.Background(), releaseServer(t, tt.status, tt.body), tt.current)
			if tt.want == "" {
				if res != nil {
					t.Errorf("expected no update, got %+v", res)
				}
				return
			}
			if res == nil || res.LatestVersion != tt.want {
				t.Fatalf("expected %s, got %+v", tt.want, res)
			}
			if res.URL == "" {
				t.Error("expected release URL")
			}
		})
	}
}

func TestReleaseURL(t *testing.T) {
	if got := ReleaseURL(DefaultRepo); got != "https://api.github.com/repos/trueberryless-org/npmx-weekly/releases/latest" {
		t.Errorf("unexpected url %q", got)
	}
}
