package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
)

func newBotServer(t *testing.T, handler http.HandlerFunc) *Publisher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := New(Config{Token: "123:abc", APIURL: srv.URL}, srv.Client(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPostReturnsMessageID(t *testing.T) {
	var gotPath, gotText, gotThread string
	p := newBotServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotText = r.FormValue("text")
		gotThread = r.FormValue("message_thread_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`))
	})

	to := transport.Target{Kind: transport.KindTelegram, ChatID: -100, ThreadID: 7}
	id, err := p.Post(context.Background(), to, transport.Notification{Title: "T", Description: "We're now on 520 members!"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if id != "42" {
		t.Fatalf("id = %q", id)
	}
	if !strings.HasSuffix(gotPath, "/sendMessage") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotText != "" && !strings.Contains(gotText, "520 members") {
		t.Fatalf("text = %q", gotText)
	}
	if gotThread != "" && gotThread != "7" {
		t.Fatalf("thread = %q", gotThread)
	}
}

func TestDeleteMapsNotFound(t *testing.T) {
	p := newBotServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`))
	})
	to := transport.Target{Kind: transport.KindTelegram, ChatID: -100}
	if err := p.Delete(context.Background(), to, "42"); !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteOK(t *testing.T) {
	var path string
	p := newBotServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})
	to := transport.Target{Kind: transport.KindTelegram, ChatID: -100}
	if err := p.Delete(context.Background(), to, "42"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !strings.HasSuffix(path, "/deleteMessage") {
		t.Fatalf("path = %q", path)
	}
	if err := p.Delete(context.Background(), to, "not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}, nil, logx.Nop()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	got := Render(transport.Notification{
		Title:       "A <b>",
		Description: "x & y",
		Fields:      []transport.Field{{Name: "Current Members", Value: "520"}},
	})
	want := "<b>A &lt;b&gt;</b>\nx &amp; y\n\n<b>Current Members:</b> 520"
	if got != want {
		t.Fatalf("Render =\n%q\nwant\n%q", got, want)
	}
}
