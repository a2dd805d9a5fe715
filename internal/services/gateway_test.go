package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
	tu "github.com/desertthunder/cloudx/internal/testing"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*GatewayService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gw := NewGatewayService(GatewayOpts{BaseURL: server.URL})
	gw.now = func() time.Time { return time.Unix(1700000000, 0) }
	return gw, server
}

func TestGatewayService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{})
			if gw.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", DefaultBaseURL, gw.baseURL)
			}
			if gw.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if gw.limiter != nil {
				t.Error("expected no limiter when requests per second is zero")
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{BaseURL: "http://localhost:3000/"})
			if gw.baseURL != "http://localhost:3000" {
				t.Errorf("expected trimmed baseURL, got %s", gw.baseURL)
			}
		})

		t.Run("With Pacing", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{RequestsPerSecond: 2})
			if gw.limiter == nil {
				t.Fatal("expected limiter to be configured")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Adds Timestamp And Params", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if got := r.URL.Query().Get("time"); got != "1700000000" {
					t.Errorf("expected time=1700000000, got %s", got)
				}
				if got := r.URL.Query().Get("foo"); got != "bar baz" {
					t.Errorf("expected foo param to round trip, got %s", got)
				}
				w.Write([]byte(`{"code":200}`))
			})

			resp, err := gw.Get(context.Background(), "/ping", url.Values{"foo": {"bar baz"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.IsJSON {
				t.Error("expected JSON response")
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text"))
			})

			resp, err := gw.Get(context.Background(), "/ping", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected non-JSON response")
			}
			if string(resp.Body) != "plain text" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{
				BaseURL:    "http://example.com",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			})

			_, err := gw.Get(context.Background(), "/ping", nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{
				BaseURL: "http://example.com",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil)},
			})

			_, err := gw.Get(context.Background(), "/ping", nil)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read error, got %v", err)
			}
		})

		t.Run("Cancelled Context While Paced", func(t *testing.T) {
			gw := NewGatewayService(GatewayOpts{BaseURL: "http://example.com", RequestsPerSecond: 0.001})
			gw.limiter.Allow()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := gw.Get(ctx, "/ping", nil); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest on cancelled wait, got %v", err)
			}
		})
	})

	t.Run("SongDetail", func(t *testing.T) {
		t.Run("Decodes Songs And Privileges", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/song/detail" {
					t.Errorf("expected /song/detail, got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("ids"); got != "1,2,3" {
					t.Errorf("expected ids=1,2,3, got %s", got)
				}
				if got := r.URL.Query().Get("cookie"); got != "MUSIC_U=abc; __csrf=x" {
					t.Errorf("expected cookie to round trip, got %s", got)
				}
				w.Write([]byte(`{
					"code": 200,
					"songs": [{"id": 1, "name": "One", "ar": [{"name": "A"}, {"name": "B"}], "al": {"name": "Album"}}],
					"privileges": [{"id": 1, "cs": false}, {"id": 2, "cs": true}]
				}`))
			})

			resp, err := gw.SongDetail(context.Background(), "MUSIC_U=abc; __csrf=x", []int64{1, 2, 3})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Code != CodeOK {
				t.Errorf("expected code 200, got %d", resp.Code)
			}
			if len(resp.Songs) != 1 || resp.Songs[0].FirstArtist() != "A" || resp.Songs[0].Album.Name != "Album" {
				t.Errorf("unexpected songs %+v", resp.Songs)
			}
			if len(resp.Privileges) != 2 || !resp.Privileges[1].CloudSuppressed {
				t.Errorf("unexpected privileges %+v", resp.Privileges)
			}
		})

		t.Run("Malformed Body", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>bad gateway</html>`))
			})

			_, err := gw.SongDetail(context.Background(), "tok", []int64{1})
			if !errors.Is(err, shared.ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})

		t.Run("Malformed Multibyte Body Keeps Valid Text", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<p>" + strings.Repeat("操作频繁", 30) + "</p>"))
			})

			_, err := gw.SongDetail(context.Background(), "tok", []int64{1})
			if !errors.Is(err, shared.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if !utf8.ValidString(err.Error()) {
				t.Errorf("error message is not valid UTF-8: %q", err.Error())
			}
		})
	})

	t.Run("CloudImport", func(t *testing.T) {
		song := models.ResolvedSong{
			SongDescriptor: models.SongDescriptor{ID: 42, Size: 1024, Ext: "flac", Bitrate: 999000, MD5: "d41d8cd9"},
			Name:           "Name",
			Artist:         "Artist & Co",
			Album:          "Album",
		}

		t.Run("Sends All Fields", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				want := map[string]string{
					"id": "42", "cookie": "tok", "song": "Name", "artist": "Artist & Co", "album": "Album",
					"fileSize": "1024", "bitrate": "999000", "md5": "d41d8cd9", "fileType": "flac", "time": "1700000000",
				}
				for k, v := range want {
					if got := q.Get(k); got != v {
						t.Errorf("param %s = %q, want %q", k, got, v)
					}
				}
				w.Write([]byte(`{"code":200,"data":{"successSongs":[{"id":42}],"failed":[]}}`))
			})

			resp, err := gw.CloudImport(context.Background(), "tok", song)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(resp.Data.SuccessSongs) != 1 {
				t.Errorf("expected 1 success song, got %d", len(resp.Data.SuccessSongs))
			}
			if len(resp.Raw) == 0 {
				t.Error("expected raw body to be kept")
			}
		})

		t.Run("Rate Limited Body Is Not An Error", func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusMethodNotAllowed)
				w.Write([]byte(`{"code":405,"message":"操作频繁"}`))
			})

			resp, err := gw.CloudImport(context.Background(), "tok", song)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Code != CodeRateLimited {
				t.Errorf("expected code 405, got %d", resp.Code)
			}
		})
	})

	t.Run("Login And Cloud", func(t *testing.T) {
		var checks atomic.Int32
		gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/login/qr/key":
				w.Write([]byte(`{"code":200,"data":{"code":200,"unikey":"k-1"}}`))
			case "/login/qr/create":
				if r.URL.Query().Get("key") != "k-1" || r.URL.Query().Get("qrimg") != "true" {
					t.Errorf("unexpected create params %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"code":200,"data":{"qrurl":"https://music.example/login?codekey=k-1","qrimg":"data:image/png;base64,AA=="}}`))
			case "/login/qr/check":
				checks.Add(1)
				w.Write([]byte(`{"code":803,"message":"授权登陆成功","cookie":"MUSIC_U=xyz"}`))
			case "/user/cloud":
				w.Write([]byte(`{"code":200,"count":12,"size":"1048576","maxSize":64424509440}`))
			default:
				http.NotFound(w, r)
			}
		})
		ctx := context.Background()

		key, err := gw.QRKey(ctx)
		if err != nil || key.Data.UniKey != "k-1" {
			t.Fatalf("QRKey() = %+v, %v", key, err)
		}

		qr, err := gw.QRCreate(ctx, key.Data.UniKey)
		if err != nil || !strings.HasPrefix(qr.Data.QRImg, "data:image/png;base64,") {
			t.Fatalf("QRCreate() = %+v, %v", qr, err)
		}

		check, err := gw.QRCheck(ctx, key.Data.UniKey)
		if err != nil || check.Code != CodeQRAuthorized || check.Cookie != "MUSIC_U=xyz" {
			t.Fatalf("QRCheck() = %+v, %v", check, err)
		}
		if checks.Load() != 1 {
			t.Errorf("expected 1 check call, got %d", checks.Load())
		}

		cloud, err := gw.UserCloud(ctx, "MUSIC_U=xyz")
		if err != nil {
			t.Fatalf("UserCloud() error = %v", err)
		}
		if cloud.Count != 12 || cloud.Size != 1048576 || cloud.MaxSize != 64424509440 {
			t.Errorf("unexpected cloud info %+v", cloud)
		}
	})
}

func TestFlexInt(t *testing.T) {
	tc := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{in: `123`, want: 123},
		{in: `"456"`, want: 456},
		{in: `null`, want: 0},
		{in: `""`, want: 0},
		{in: `"abc"`, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			var f FlexInt
			err := f.UnmarshalJSON([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && f != tt.want {
				t.Errorf("UnmarshalJSON() = %d, want %d", f, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tc := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "ascii", in: "abcdef", n: 3, want: "abc..."},
		{name: "mid rune", in: "操作频繁", n: 4, want: "操..."},
		{name: "rune boundary", in: "操作频繁", n: 6, want: "操作..."},
		{name: "inside first rune", in: "操作", n: 2, want: "..."},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate([]byte(tt.in), tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}
