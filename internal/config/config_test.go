package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/repo"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"BibPath", BibPath, "/test/repo/refs/bibliography.bib"},
		{"CredentialsPath", CredentialsPath, "/test/repo/memory/zotero.json"},
		{"StatePath", StatePath, "/test/repo/.bibsync"},
		{"IndexPath", IndexPath, "/test/repo/.bibsync/index.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func writeCredentials(t *testing.T, root, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, MemoryDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(CredentialsPath(root), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestFindWorkspace(t *testing.T) {
	root := t.TempDir()
	writeCredentials(t, root, `{}`)
	nested := filepath.Join(root, "refs", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindWorkspace(nested)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if gotReal, _ := filepath.EvalSymlinks(got); gotReal != want {
		t.Errorf("FindWorkspace() = %q, want %q", got, root)
	}
}

func TestIsWorkspace_GitDir(t *testing.T) {
	root := t.TempDir()
	if IsWorkspace(root) {
		t.Error("IsWorkspace() = true for empty directory")
	}
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if !IsWorkspace(root) {
		t.Error("IsWorkspace() = false for git checkout")
	}
}

func TestLoadCredentials(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantGroupID string
		wantKey     string
	}{
		{"string group id", `{"groupId": "6137135", "apiKey": "k1"}`, "6137135", "k1"},
		{"numeric group id", `{"groupId": 6137135, "apiKey": "k2"}`, "6137135", "k2"},
		{"legacy key", `{"sylvarumGroupID": 6137135, "apiKey": "k3"}`, "6137135", "k3"},
		{"new key wins over legacy", `{"groupId": "1", "sylvarumGroupID": "2", "apiKey": "k4"}`, "1", "k4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(GroupIDEnv, "")
			t.Setenv(APIKeyEnv, "")
			root := t.TempDir()
			writeCredentials(t, root, tt.content)

			creds, err := LoadCredentials(root)
			if err != nil {
				t.Fatalf("LoadCredentials() error = %v", err)
			}
			if creds.GroupID != tt.wantGroupID || creds.APIKey != tt.wantKey {
				t.Errorf("LoadCredentials() = %+v, want groupId %q apiKey %q", creds, tt.wantGroupID, tt.wantKey)
			}
		})
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv(GroupIDEnv, "")
	t.Setenv(APIKeyEnv, "")

	_, err := LoadCredentials(t.TempDir())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("LoadCredentials() error = %v, want ErrMissingCredentials", err)
	}
	if !strings.Contains(err.Error(), "groupId and apiKey") {
		t.Errorf("error %q should name both missing values", err)
	}
}

func TestLoadCredentials_EnvFallback(t *testing.T) {
	t.Setenv(GroupIDEnv, "")
	t.Setenv(APIKeyEnv, "from-env")
	root := t.TempDir()
	writeCredentials(t, root, `{"groupId": "42"}`)

	creds, err := LoadCredentials(root)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.GroupID != "42" || creds.APIKey != "from-env" {
		t.Errorf("LoadCredentials() = %+v", creds)
	}
}

func TestLoadCredentials_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	writeCredentials(t, root, "not json")

	_, err := LoadCredentials(root)
	if err == nil {
		t.Fatal("LoadCredentials() should fail on invalid JSON")
	}
	if errors.Is(err, ErrMissingCredentials) {
		t.Error("invalid JSON should not be reported as missing credentials")
	}
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc"`, "abc"},
		{`" 12 "`, "12"},
		{`12`, "12"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f FlexibleString
		if err := f.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) error = %v", tt.in, err)
			continue
		}
		if f.String() != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, f, tt.want)
		}
	}

	var f FlexibleString
	if err := f.UnmarshalJSON([]byte(`{"a":1}`)); err == nil {
		t.Error("UnmarshalJSON(object) should fail")
	}
}
