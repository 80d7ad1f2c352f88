package client

import (
	"fmt"
	"os"
	"path/filepath"

	"chatter/internal/server/imaging"
)

// ValidationError reports a command-line argument that cannot be used.
type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

// ParseUploadPaths checks that every argument names a readable regular file
// with an image extension the server accepts, and returns the cleaned paths.
func ParseUploadPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<files>", Cause: "no files provided"}
	}

	out := make([]string, 0, len(args))
	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}
		if info.IsDir() {
			return nil, &ValidationError{Arg: raw, Cause: "is a directory"}
		}
		if !imaging.AllowedExtension(p) {
			return nil, &ValidationError{Arg: raw, Cause: "unsupported image type (png, jpg, jpeg, gif)"}
		}
		out = append(out, p)
	}

	return out, nil
}
