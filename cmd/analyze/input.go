package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"notes-backend/internal/extract"
)

// readNotes returns note text from a file, or from stdin when path is empty or "-".
// PDF and DOCX files go through the same extractor as uploads.
func readNotes(ctx context.Context, path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return checkNotes(string(data))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read notes file: %w", err)
	}
	name := filepath.Base(path)
	text, err := extract.ExtractTextFromBytes(ctx, data, extract.DetectMimeType(data, "", name), name)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", name, err)
	}
	return checkNotes(text)
}

func checkNotes(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("notes are empty")
	}
	return text, nil
}
