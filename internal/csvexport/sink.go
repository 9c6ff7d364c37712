package csvexport

import (
	"fmt"
	"os"

	"github.com/catcha-app/geotag/pkg/logger"
)

// ShareOptions describe how an exported file is handed to the platform
// sharing surface.
type ShareOptions struct {
	MimeType    string
	DialogTitle string
}

// FileSink writes export files and offers them for sharing.
type FileSink interface {
	WriteUTF8(path, content string) error
	Share(path string, opts ShareOptions) error
}

// OSFileSink writes to the local filesystem. On a headless field unit there
// is no share dialog; Share just records where the file landed.
type OSFileSink struct {
	log logger.Logger
}

func NewOSFileSink(log logger.Logger) *OSFileSink {
	return &OSFileSink{log: log}
}

func (s *OSFileSink) WriteUTF8(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *OSFileSink) Share(path string, opts ShareOptions) error {
	s.log.Info("export ready", "path", path, "mimeType", opts.MimeType)
	return nil
}
