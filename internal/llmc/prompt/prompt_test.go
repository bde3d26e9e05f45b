package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/longkey1/llmchat/internal/llmc"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "translate.toml", `
system = "Translate into {{lang}}."
user = "Text: {{input}}"
model = "special-model"
temperature = 0.1
`)

	r, err := Render("bonjour", "translate", []string{dir}, []string{"lang:English"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if r.SystemPrompt != "Translate into English." || r.Text != "Text: bonjour" {
		t.Errorf("Render() = %+v", r)
	}

	s := r.Apply(llmc.Settings{Model: "default", SystemPrompt: "old", Temperature: 0.7})
	if s.SystemPrompt != "Translate into English." || s.Model != "special-model" || s.Temperature != float32(0.1) {
		t.Errorf("Apply() = %+v", s)
	}
}

func TestRenderWithoutUserPart(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "terse.toml", `system = "Answer in one sentence."`)

	r, err := Render("why is the sky blue", "terse", []string{dir}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if r.Text != "why is the sky blue" {
		t.Errorf("Text = %q", r.Text)
	}

	s := r.Apply(llmc.Settings{Model: "default", Temperature: 0.7})
	if s.Model != "default" || s.Temperature != float32(0.7) {
		t.Errorf("Apply() = %+v", s)
	}
}

func TestFindPrecedence(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	writePrompt(t, low, "p.toml", `system = "low"`)
	writePrompt(t, high, "p.toml", `system = "high"`)

	r, err := Render("x", "p", []string{low, high}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if r.SystemPrompt != "high" {
		t.Errorf("SystemPrompt = %q, want the later directory", r.SystemPrompt)
	}

	if _, err := Find("missing", []string{low, high}); err == nil {
		t.Error("Find(missing) error = nil")
	}
}

func TestProcessArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{name: "simple", args: []string{"a:b"}, want: map[string]string{"a": "b"}},
		{name: "quoted", args: []string{`"a: b c"`}, want: map[string]string{"a": "b c"}},
		{name: "value with colon", args: []string{`url:http\://x`}, want: map[string]string{"url": "http://x"}},
		{name: "missing colon", args: []string{"nope"}, wantErr: true},
		{name: "reserved input", args: []string{"input:x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := processArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("processArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("processArgs()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestList(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writePrompt(t, a, "zeta.toml", `system = "z"`)
	writePrompt(t, a, "dev/review.toml", `system = "r"`)
	writePrompt(t, a, "notes.txt", `ignored`)
	writePrompt(t, b, "zeta.toml", `system = "z2"`)
	writePrompt(t, b, "alpha.toml", `system = "a"`)

	entries, err := List([]string{a, b, filepath.Join(a, "does-not-exist")})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []Entry{{Name: "alpha", Dir: b}, {Name: "dev/review", Dir: a}, {Name: "zeta", Dir: a}}
	if len(entries) != len(want) {
		t.Fatalf("List() = %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}
