package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/pgxlate/internal/exprdoc"
)

// LoadMode controls how errors are handled during document loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedDocument is an expression document and the file it came from.
type LoadedDocument struct {
	Path     string
	Document *exprdoc.Document
}

// LoadError represents an error that occurred while loading CLI inputs.
type LoadError struct {
	Code    string
	Message string
	Path    string // offending file, if any
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// documentExts are the file extensions read as expression documents.
var documentExts = []string{".yaml", ".yml", ".cue"}

// LoadDocuments loads expression documents from paths. A directory path
// contributes every document file beneath it, in lexical order.
func LoadDocuments(paths []string, mode LoadMode) ([]LoadedDocument, []error) {
	files, err := FindDocumentFiles(paths)
	if err != nil {
		return nil, []error{err}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no expression documents found in %s", strings.Join(paths, ", "))}}
	}

	var (
		docs []LoadedDocument
		errs []error
	)
	for _, path := range files {
		doc, err := exprdoc.Load(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path})
			if mode == LoadModeFailFast {
				return docs, errs
			}
			continue
		}
		docs = append(docs, LoadedDocument{Path: path, Document: doc})
	}
	return docs, errs
}

// FindDocumentFiles expands paths into document files. Explicit file paths
// are kept whatever their extension; directories are walked.
func FindDocumentFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "path not found", Path: p}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err), Path: p}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findFiles(p, documentExts, "")
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Path: p}
		}
		files = append(files, found...)
	}
	return files, nil
}

// findFiles walks dir and returns the files with one of exts whose base
// name (without extension) matches the glob filter. An empty filter
// matches everything. Directories named "golden" are skipped.
func findFiles(dir string, exts []string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if !slices.Contains(exts, ext) {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No input files found
	ErrCodeLoadFailed  = "E004" // Document or scenario failed to load
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeConfig      = "E006" // Options file invalid
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Journal or server database error

	// Translation and validation failures
	ErrCodeTranslation   = "E101" // A document failed to translate
	ErrCodeUnknownType   = "E102" // No mapping for the requested type
	ErrCodeOptionsDiffer = "E103" // Options files disagree on registry-shaping settings
)
