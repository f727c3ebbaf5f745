package main

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunWritesJPEG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "talk.jpg")
	var stdout bytes.Buffer
	if err := run([]string{"--url", "https://talkback.test/f/my-talk-abcd1234", "--size", "400", "--format", "jpeg", "--out", out}, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil || format != "jpeg" {
		t.Fatalf("decode: format=%q err=%v", format, err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Fatalf("bounds=%v", b)
	}
	if !strings.Contains(stdout.String(), "wrote "+out) {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestRunSlugToStdout(t *testing.T) {
	var stdout bytes.Buffer
	if err := run([]string{"--slug", "my-talk-abcd1234", "--site", "https://talkback.test/", "--format", "svg", "--size", "256", "-o", "-"}, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "<svg") {
		t.Fatalf("stdout is not svg: %.40q", stdout.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{},
		{"--url", "https://a.test", "--slug", "x"},
		{"--url", "https://a.test", "--format", "gif", "-o", "-"},
		{"--url", "https://a.test", "--size", "10", "-o", "-"},
	}
	for _, args := range cases {
		if err := run(args, &bytes.Buffer{}); err == nil {
			t.Errorf("run(%q): expected error", args)
		}
	}
}
