// Package export packages successful job outputs into a ZIP archive.
package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNothingToExport is returned when no job has an output yet.
var ErrNothingToExport = errors.New("no successful results to export")

// readConcurrency bounds parallel artifact reads.
const readConcurrency = 4

// Source exposes a queue's jobs and their outputs.
type Source interface {
	Jobs() []domain.Job
	OutputBytes(ctx context.Context, id uuid.UUID) ([]byte, domain.Job, error)
}

// ArchiveName is the download name of a tool's archive.
func ArchiveName(tool domain.Tool) string {
	return "processed_" + string(tool) + ".zip"
}

// Archive writes every successful output of src to w as a ZIP, in queue
// order, and returns the number of entries. Duplicate names get a numeric
// suffix.
func Archive(ctx context.Context, src Source, w io.Writer) (int, error) {
	var done []domain.Job
	for _, job := range src.Jobs() {
		if job.Status == domain.JobStatusSuccess && job.Output != nil {
			done = append(done, job)
		}
	}
	if len(done) == 0 {
		return 0, ErrNothingToExport
	}

	data := make([][]byte, len(done))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, job := range done {
		g.Go(func() error {
			b, _, err := src.OutputBytes(gctx, job.ID)
			if err != nil {
				return fmt.Errorf("failed to read output of job %s: %w", job.ID, err)
			}
			data[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	zw := zip.NewWriter(w)
	names := newNameSet()
	for i, job := range done {
		header := &zip.FileHeader{
			Name:     names.claim(EntryName(job.Output.Name)),
			Method:   zip.Store,
			Modified: job.UpdatedAt,
		}
		if header.Modified.IsZero() {
			header.Modified = time.Now()
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return 0, fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := fw.Write(data[i]); err != nil {
			return 0, fmt.Errorf("failed to write archive entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return len(done), nil
}

// EntryName makes a file name safe to use inside an archive, keeping its
// extension.
func EntryName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if strings.ContainsFunc(ext, func(r rune) bool { return !isSafe(r) }) {
		ext = ""
	}
	return SafeBaseName(strings.TrimSuffix(name, path.Ext(name))) + ext
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SafeBaseName folds name to ASCII letters, digits, dots, dashes and
// underscores. Anything else becomes an underscore.
func SafeBaseName(name string) string {
	folded, _, err := transform.String(foldDiacritics, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		if !isSafe(r) {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "image"
	}
	return out
}

func isSafe(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_')
}

type nameSet map[string]bool

func newNameSet() nameSet {
	return make(nameSet)
}

// claim returns name, or name with "_2", "_3"... before its extension if it
// was already taken.
func (s nameSet) claim(name string) string {
	if !s[name] {
		s[name] = true
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n) + ext
		if !s[candidate] {
			s[candidate] = true
			return candidate
		}
	}
}
