// Copyright (c) 2025 A Bit of Help, Inc.

package classifier

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
)

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(file, []byte("12345"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	src, err := Classify(file)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if src.Kind != File || src.Size != 5 || src.IsDir() {
		t.Errorf("Unexpected classification for file: %+v", src)
	}

	src, err = Classify(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if src.Kind != Directory || !src.IsDir() {
		t.Errorf("Unexpected classification for directory: %+v", src)
	}
}

func TestClassify_NotFound(t *testing.T) {
	_, err := Classify(filepath.Join(t.TempDir(), "missing"))
	if !customErrors.IsNotFoundError(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestClassify_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}

	link := filepath.Join(dir, "valid")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	src, err := Classify(link)
	if err != nil || src.Kind != File {
		t.Errorf("Expected symlink to a file to classify as file, got %+v, %v", src, err)
	}

	broken := filepath.Join(dir, "broken")
	if err := os.Symlink(filepath.Join(dir, "nowhere"), broken); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	_, err = Classify(broken)
	if !customErrors.IsUnsupportedError(err) {
		t.Errorf("Expected unsupported error, got %v", err)
	}
}

func TestClassify_SpecialFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no /dev/null on windows")
	}
	_, err := Classify(os.DevNull)
	if !customErrors.IsUnsupportedError(err) {
		t.Errorf("Expected unsupported error for %s, got %v", os.DevNull, err)
	}
}

func TestKindString(t *testing.T) {
	if File.String() != "file" || Directory.String() != "directory" || Kind(0).String() != "unknown" {
		t.Error("Unexpected Kind strings")
	}
}
