// Copyright 2025 James Ross
package producer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flyingrobots/orizuru/internal/codec"
	"go.uber.org/zap"
)

// FileJob is the payload DirProducer pushes: one entry per file discovered
// under a scanned directory.
type FileJob struct {
	ID           string `codec:"id"`
	FilePath     string `codec:"filepath"`
	FileSize     int64  `codec:"filesize"`
	CreationTime string `codec:"creation_time"`
}

// DirProducer walks a directory tree, glob-filters entries, and pushes one
// FileJob per matching file onto the wrapped Producer.
type DirProducer struct {
	p            *Producer
	cd           codec.Codec[FileJob]
	log          *zap.Logger
	IncludeGlobs []string
	ExcludeGlobs []string
}

func NewDirProducer(p *Producer, log *zap.Logger) *DirProducer {
	return &DirProducer{p: p, cd: codec.NewMsgpack[FileJob](), log: log, IncludeGlobs: []string{"**/*"}}
}

// Scan walks root and pushes one FileJob per included, non-excluded file.
func (d *DirProducer) Scan(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if !strings.HasPrefix(abs, absRoot+string(os.PathSeparator)) && abs != absRoot {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if !d.included(rel) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fi, err := os.Stat(path)
		if err != nil {
			return nil
		}
		job := FileJob{
			ID:           randID(),
			FilePath:     abs,
			FileSize:     fi.Size(),
			CreationTime: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := Push(ctx, d.p, d.cd, job); err != nil {
			return err
		}
		if d.log != nil {
			d.log.Info("enqueued file job", zap.String("id", job.ID), zap.String("path", abs))
		}
		return nil
	})
}

func (d *DirProducer) included(rel string) bool {
	matched := len(d.IncludeGlobs) == 0
	for _, g := range d.IncludeGlobs {
		if ok, _ := doublestar.PathMatch(g, rel); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, g := range d.ExcludeGlobs {
		if ok, _ := doublestar.PathMatch(g, rel); ok {
			return false
		}
	}
	return true
}

func randID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
