package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSortField(t *testing.T) {
	for _, f := range SortFields {
		got, ok := ParseSortField(string(f))
		if !ok || got != f {
			t.Errorf("ParseSortField(%q) = %q, %v; want %q, true", f, got, ok, f)
		}
	}
	for _, s := range []string{"", "password", "name; DROP TABLE recipes", "user_id"} {
		if _, ok := ParseSortField(s); ok {
			t.Errorf("ParseSortField(%q) accepted a column outside the allow-list", s)
		}
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		wantLast int
	}{
		{"empty", 0, 1},
		{"exact", 20, 2},
		{"partial", 21, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(nil, 1, tt.total)
			if p.LastPage != tt.wantLast {
				t.Errorf("LastPage = %d; want %d", p.LastPage, tt.wantLast)
			}
			if p.PerPage != PageSize {
				t.Errorf("PerPage = %d; want %d", p.PerPage, PageSize)
			}
			if p.Data == nil {
				t.Error("Data must serialize as [] not null")
			}
		})
	}
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, Email: "a@x.com", PasswordHash: []byte("secret-hash")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "secret-hash") || strings.Contains(string(b), "password") {
		t.Errorf("password leaked into JSON: %s", b)
	}
}

func TestRecipe_OwnedBy(t *testing.T) {
	r := &Recipe{UserID: 7}
	if !r.OwnedBy(7) {
		t.Error("expected owner 7")
	}
	if r.OwnedBy(8) {
		t.Error("user 8 must not own recipe of user 7")
	}
}
